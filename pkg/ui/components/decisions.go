package components

import (
	"fmt"
	"strings"
)

// DecisionRow is one strategy decision in the list.
type DecisionRow struct {
	Time    string
	Held    string
	Outcome string
	Signal  string
	Product string
	Price   string
	Size    string
	Spread  string
	Detail  string
	// Order marks decisions that placed, cancelled, cleared or rejected an order.
	Order bool
	// Failure marks rejected orders and provider failures.
	Failure bool
}

// DecisionsComponent renders the scrollable decisions list, newest first.
type DecisionsComponent struct {
	rows      []DecisionRow
	maxRows   int
	offset    int
	visible   int
	orderOnly bool
}

// NewDecisionsComponent creates a new decisions component.
func NewDecisionsComponent(maxRows, visible int) *DecisionsComponent {
	return &DecisionsComponent{
		rows:    make([]DecisionRow, 0, maxRows),
		maxRows: maxRows,
		visible: visible,
	}
}

// Add adds a new decision to the top of the list.
func (d *DecisionsComponent) Add(row DecisionRow) {
	d.rows = append([]DecisionRow{row}, d.rows...)
	if len(d.rows) > d.maxRows {
		d.rows = d.rows[:d.maxRows]
	}
	if d.offset > 0 {
		d.offset++
	}
}

// Clear clears all decisions.
func (d *DecisionsComponent) Clear() {
	d.rows = d.rows[:0]
	d.offset = 0
}

// ToggleOrderOnly hides decisions that did not touch an order.
func (d *DecisionsComponent) ToggleOrderOnly() {
	d.orderOnly = !d.orderOnly
	d.offset = 0
}

func (d *DecisionsComponent) ScrollUp() {
	if d.offset > 0 {
		d.offset--
	}
}

func (d *DecisionsComponent) ScrollDown() {
	if d.offset < len(d.filtered())-1 {
		d.offset++
	}
}

func (d *DecisionsComponent) filtered() []DecisionRow {
	if !d.orderOnly {
		return d.rows
	}
	out := make([]DecisionRow, 0, len(d.rows))
	for _, r := range d.rows {
		if r.Order {
			out = append(out, r)
		}
	}
	return out
}

// View renders the decisions component.
func (d *DecisionsComponent) View() string {
	rows := d.filtered()
	title := "DECISIONS"
	if d.orderOnly {
		title += " (orders only)"
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(title))
	sb.WriteString("\n\n")
	if len(rows) == 0 {
		sb.WriteString(dimStyle.Render("  No decisions yet..."))
		return sb.String()
	}

	end := min(d.offset+d.visible, len(rows))
	for _, r := range rows[d.offset:end] {
		line := fmt.Sprintf("%s %-4s %-16s", r.Time, r.Held, r.Outcome)
		if r.Product != "" {
			line += fmt.Sprintf(" %-4s %-8s", r.Signal, r.Product)
		}
		if r.Size != "" {
			line += fmt.Sprintf(" %s @ %s", r.Size, r.Price)
		}
		if r.Spread != "" {
			line += " x" + r.Spread
		}
		if r.Detail != "" {
			line += " " + r.Detail
		}

		switch {
		case r.Failure:
			sb.WriteString(badStyle.Render("  " + line))
		case r.Order:
			sb.WriteString(goodStyle.Render("  " + line))
		default:
			sb.WriteString(dimStyle.Render("  " + line))
		}
		sb.WriteString("\n")
	}
	if len(rows) > d.visible {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  %d-%d of %d", d.offset+1, end, len(rows))))
	}
	return sb.String()
}
