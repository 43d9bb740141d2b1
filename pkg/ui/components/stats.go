package components

import "fmt"

// Stats holds trading loop counters for display.
type Stats struct {
	Cycles    int64
	Skipped   int64
	Placed    int64
	Cancelled int64
	Cleared   int64
	Rejected  int64
	Failures  int64
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Stats returns the current counters.
func (s *StatsComponent) Stats() Stats {
	return s.stats
}

// Count updates the counters for one decision outcome.
func (s *StatsComponent) Count(outcome string) {
	s.stats.Cycles++
	switch outcome {
	case "order_placed":
		s.stats.Placed++
	case "order_cancelled":
		s.stats.Cancelled++
	case "order_cleared":
		s.stats.Cleared++
	case "order_rejected":
		s.stats.Rejected++
	case "provider_failure", "cancel_failed":
		s.stats.Failures++
	}
}

// Skip counts a skipped cycle.
func (s *StatsComponent) Skip() {
	s.stats.Skipped++
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	valueStyle, style := brightStyle, dimStyle

	failures := valueStyle.Render(fmt.Sprintf("%d", s.stats.Failures))
	if s.stats.Failures > 0 {
		failures = badStyle.Render(fmt.Sprintf("%d", s.stats.Failures))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Decisions: %s  │  Skipped: %s  │  Placed: %s  │  Cancelled: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Cycles)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Skipped)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Placed)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Cancelled)),
		) +
		fmt.Sprintf("Cleared: %s    │  Rejected: %s │  Failures: %s",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Cleared)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Rejected)),
			failures,
		)
}
