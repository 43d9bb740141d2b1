package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fd1az/graph-arbitrage/business/arbitrage/app"
	"github.com/fd1az/graph-arbitrage/business/arbitrage/domain"
)

func TestWriteEntries(t *testing.T) {
	var buf bytes.Buffer
	err := writeEntries(&buf, []app.JournalEntry{{
		Time:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Held:    "USD",
		Outcome: domain.OutcomeOrderPlaced,
		Signal:  "buy",
		Product: "BTC-USD",
		Price:   "100",
		Size:    "1",
		OrderID: "order-1",
	}})
	if err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"OUTCOME", "order_placed", "BTC-USD", "order-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteEntriesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := writeEntries(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "no decisions") {
		t.Errorf("output = %q", buf.String())
	}
}
