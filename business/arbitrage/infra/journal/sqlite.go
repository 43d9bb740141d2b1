// Package journal persists order decisions to SQLite.
package journal

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fd1az/graph-arbitrage/business/arbitrage/app"
	"github.com/fd1az/graph-arbitrage/business/arbitrage/domain"
	"github.com/fd1az/graph-arbitrage/internal/apperror"
	"github.com/fd1az/graph-arbitrage/internal/id"
)

// Schema creates the decisions table.
const Schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id        TEXT PRIMARY KEY,
	cycle_id  TEXT NOT NULL,
	time      TIMESTAMP NOT NULL,
	strategy  TEXT NOT NULL,
	held      TEXT NOT NULL,
	outcome   TEXT NOT NULL,
	signal    TEXT NOT NULL,
	product   TEXT NOT NULL,
	order_id  TEXT NOT NULL,
	price     TEXT NOT NULL,
	size      TEXT NOT NULL,
	spread    TEXT NOT NULL,
	path      TEXT NOT NULL,
	reason    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS decisions_time ON decisions (time);
`

var _ app.Journal = (*SQLiteJournal)(nil)

// SQLiteJournal is a Journal backed by a SQLite file.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLite opens or creates the journal at path.
func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeJournalWriteFailed, "open "+path)
	}
	// sqlite3 allows one writer; the runner is the only one.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, apperror.Wrap(err, apperror.CodeJournalWriteFailed, "create schema")
	}

	return &SQLiteJournal{db: db}, nil
}

// Record stores one decision. The row id is a ULID at the decision time so
// ids sort chronologically.
func (j *SQLiteJournal) Record(ctx context.Context, d *domain.Decision) error {
	at := d.Time
	if at.IsZero() {
		at = time.Now()
	}

	var signal, product, path string
	if !d.Product.IsZero() {
		signal = d.Signal.String()
		product = d.Product.String()
	}
	if len(d.Path) > 0 {
		path = d.Path.String()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO decisions
		(id, cycle_id, time, strategy, held, outcome, signal, product, order_id, price, size, spread, path, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.NewAt(at), d.CycleID, at.UTC(), d.Strategy, string(d.Held), string(d.Outcome),
		signal, product, d.OrderID, priceString(d), sizeString(d), spreadString(d), path, d.Reason,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeJournalWriteFailed, "record decision")
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]app.JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, cycle_id, time, strategy, held, outcome, signal, product, order_id, price, size, spread, path, reason
		FROM decisions
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeJournalReadFailed, "query decisions")
	}
	defer rows.Close()

	var out []app.JournalEntry
	for rows.Next() {
		var (
			e       app.JournalEntry
			outcome string
		)
		if err := rows.Scan(
			&e.ID, &e.CycleID, &e.Time, &e.Strategy, &e.Held, &outcome, &e.Signal,
			&e.Product, &e.OrderID, &e.Price, &e.Size, &e.Spread, &e.Path, &e.Reason,
		); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeJournalReadFailed, "scan decision")
		}
		e.Outcome = domain.Outcome(outcome)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeJournalReadFailed, "read decisions")
	}
	return out, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func priceString(d *domain.Decision) string {
	if d.Size.IsZero() {
		return ""
	}
	return d.Price.String()
}

func sizeString(d *domain.Decision) string {
	if d.Size.IsZero() {
		return ""
	}
	return d.Size.String()
}

func spreadString(d *domain.Decision) string {
	if d.Spread.IsZero() {
		return ""
	}
	return d.Spread.String()
}
