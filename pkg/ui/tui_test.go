package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/fd1az/graph-arbitrage/pkg/ui/components"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestDashboardShowsTickersAndDecisions(t *testing.T) {
	m := New("USD")
	m.phase = PhaseStartup
	m = update(t, m, tea.WindowSizeMsg{Width: 160, Height: 50})

	if !strings.Contains(m.View(), "Starting up") {
		t.Fatal("expected startup screen before the first cycle")
	}

	m = update(t, m, TickersMsg{At: time.Now(), Rows: []components.TickerRow{{
		Product: "BTC-USD",
		Bid:     decimal.RequireFromString("100"),
		Ask:     decimal.RequireFromString("101"),
		Valid:   true,
	}}})
	m = update(t, m, DecisionMsg{
		Held: "USD",
		Path: "USD_bid -> BTC_ask -> BTC_bid -> USD_ask",
		Row: components.DecisionRow{
			Time: "00:00:00", Held: "USD", Outcome: "order_placed",
			Signal: "buy", Product: "BTC-USD", Price: "100", Size: "1", Order: true,
		},
	})

	view := m.View()
	for _, want := range []string{"BTC-USD", "order_placed", "Held: USD", "best path"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if got := m.stats.Stats().Placed; got != 1 {
		t.Errorf("placed = %d, want 1", got)
	}
}

func TestPauseDropsUpdates(t *testing.T) {
	m := New("USD")
	m.phase = PhaseDashboard
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	if !m.paused {
		t.Fatal("expected paused")
	}

	m = update(t, m, TickersMsg{Rows: []components.TickerRow{{Product: "ETH-USD"}}})
	if m.tickers.Len() != 0 {
		t.Error("tickers updated while paused")
	}

	m = update(t, m, DecisionMsg{Held: "ETH", Row: components.DecisionRow{Outcome: "no_signal"}})
	if m.held != "ETH" {
		t.Errorf("held = %s, want ETH", m.held)
	}
	if m.stats.Stats().Cycles != 1 {
		t.Error("decisions are counted while paused")
	}
}

func TestSkipAndErrors(t *testing.T) {
	m := New("USD")
	m.phase = PhaseDashboard

	m = update(t, m, SkipMsg{Reason: "ticker BTC-USD unavailable"})
	if m.stats.Stats().Skipped != 1 {
		t.Error("skip not counted")
	}

	for i := 0; i < 5; i++ {
		m = update(t, m, ErrorMsg{Error: errFake(i)})
	}
	if len(m.errors) != 3 {
		t.Errorf("errors kept = %d, want 3", len(m.errors))
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	if len(m.errors) != 0 {
		t.Error("errors not cleared")
	}
}

type errFake int

func (e errFake) Error() string { return "boom" }

func TestDecisionsOrderOnlyFilter(t *testing.T) {
	d := components.NewDecisionsComponent(10, 5)
	d.Add(components.DecisionRow{Outcome: "no_signal"})
	d.Add(components.DecisionRow{Outcome: "order_placed", Product: "BTC-USD", Order: true})

	if !strings.Contains(d.View(), "no_signal") {
		t.Error("expected all decisions")
	}
	d.ToggleOrderOnly()
	view := d.View()
	if strings.Contains(view, "no_signal") || !strings.Contains(view, "order_placed") {
		t.Errorf("order-only view = %q", view)
	}
}

func TestKeyLeavesSplashAndStartsModules(t *testing.T) {
	started := make(chan struct{}, 1)
	OnStartModules = func() { started <- struct{}{} }
	t.Cleanup(func() { OnStartModules = nil })

	m := New("USD")
	if !strings.Contains(m.View(), "G R A P H") {
		t.Fatal("expected splash screen")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.phase != PhaseStartup {
		t.Fatalf("phase = %s, want startup", m.phase)
	}
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("modules not started")
	}

	m = update(t, m, StartupMsg{Step: StepExchange, Status: "failed", Message: "401"})
	view := m.View()
	if !strings.Contains(view, "Failed") || !strings.Contains(view, "Loading configuration") {
		t.Errorf("startup view = %q", view)
	}
}
