package ui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/graph-arbitrage/pkg/ui/components"
)

// Phase is the screen the dashboard is on.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// splashFor is how long the graph logo stays up unless a key is pressed.
const splashFor = 2 * time.Second

// Startup step keys, in display order.
const (
	StepConfig   = "config"
	StepExchange = "exchange"
	StepFeed     = "feed"
	StepFirst    = "cycle"
)

type startupStep struct {
	key    string
	label  string
	status string // pending, connecting, connected, failed, done
}

func (s startupStep) ready() bool {
	return s.status == "connected" || s.status == "done"
}

const (
	maxErrors   = 3
	maxActivity = 6
)

type errorEntry struct {
	msg string
	at  time.Time
}

// Model is the dashboard. It starts on a splash screen, shows startup
// progress until the first cycle lands and then the live view.
type Model struct {
	tickers     *components.TickersComponent
	decisions   *components.DecisionsComponent
	stats       *components.StatsComponent
	connections *components.StatusComponent
	keys        KeyMap
	help        help.Model

	phase    Phase
	openedAt time.Time

	quitting   bool
	paused     bool
	width      int
	height     int
	held       string
	lastPath   string
	lastUpdate time.Time
	lastCycle  time.Time
	errors     []errorEntry
	activity   []string

	steps     []startupStep
	stepsFrom time.Time
}

// New builds the dashboard for a bot whose reference currency is reference.
func New(reference string) Model {
	now := time.Now()
	return Model{
		tickers:     components.NewTickersComponent(reference),
		decisions:   components.NewDecisionsComponent(200, 12),
		stats:       components.NewStatsComponent(),
		connections: components.NewStatusComponent("Coinbase REST", "Coinbase feed"),
		keys:        DefaultKeyMap(),
		help:        help.New(),
		phase:       PhaseWelcome,
		openedAt:    now,
		held:        reference,
		steps: []startupStep{
			{StepConfig, "Loading configuration", "done"},
			{StepExchange, "Connecting to exchange", "pending"},
			{StepFeed, "Subscribing to tickers", "pending"},
			{StepFirst, "Running first cycle", "pending"},
		},
		stepsFrom: now,
	}
}

func (m Model) Init() tea.Cmd {
	return animate()
}

// animate drives the spinner and the splash timeout.
func animate() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) leaveSplash() {
	m.phase = PhaseStartup
	m.stepsFrom = time.Now()
	// Program.Send would deadlock from inside Update.
	if OnStartModules != nil {
		go OnStartModules()
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.leaveSplash()
			return m, animate()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.decisions.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.OrdersOnly):
			m.decisions.ToggleOrderOnly()
		case key.Matches(msg, m.keys.Up):
			m.decisions.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.decisions.ScrollDown()
		case key.Matches(msg, m.keys.Errors):
			m.errors = m.errors[:0]
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.openedAt) >= splashFor {
			m.leaveSplash()
		}
		return m, animate()

	case TickersMsg:
		if m.paused {
			return m, nil
		}
		m.tickers.Update(msg.Rows)
		m.lastUpdate = msg.At

	case DecisionMsg:
		m.stats.Count(msg.Row.Outcome)
		m.held = msg.Held
		m.lastCycle = time.Now()
		m.setStep(StepFirst, "done")
		if msg.Path != "" {
			m.lastPath = msg.Path
		}
		if m.paused {
			return m, nil
		}
		m.decisions.Add(msg.Row)
		if msg.Row.Order {
			m.note(fmt.Sprintf("%s %s %s", msg.Row.Outcome, msg.Row.Signal, msg.Row.Product))
		}

	case SkipMsg:
		m.stats.Skip()
		m.note("iteration skipped: " + msg.Reason)

	case ConnectionStatusMsg:
		m.connections.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			LastUpdate: time.Now(),
		})
		status := "disconnected"
		if msg.Connected {
			status = "connected"
		}
		m.note(msg.Name + " " + status)

	case ErrorMsg:
		m.errors = keepLast(append(m.errors, errorEntry{msg: msg.Error.Error(), at: time.Now()}), maxErrors)

	case LogMsg:
		m.note(msg.Level + ": " + msg.Message)

	case StartupMsg:
		m.setStep(msg.Step, msg.Status)
		if msg.Message != "" {
			m.note(msg.Message)
		}
	}

	return m, nil
}

func (m *Model) setStep(key, status string) {
	for i := range m.steps {
		if m.steps[i].key == key {
			// steps is shared with copies of the model; replace, don't mutate.
			steps := slices.Clone(m.steps)
			steps[i].status = status
			m.steps = steps
			return
		}
	}
}

func (m Model) startupComplete() bool {
	for _, step := range m.steps {
		if !step.ready() {
			return false
		}
	}
	return true
}

// note timestamps line onto the activity feed.
func (m *Model) note(line string) {
	m.activity = keepLast(append(m.activity, time.Now().Format("15:04:05")+"  "+line), maxActivity)
}

func keepLast[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return slices.Clone(s[len(s)-n:])
}

func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.splashView()
	case PhaseStartup:
		if m.lastCycle.IsZero() && !m.startupComplete() {
			return m.startupView()
		}
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(" Graph Arbitrage "))
	b.WriteString("\n\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	leftCol := m.tickers.View()
	if m.lastPath != "" {
		leftCol += "\n" + mutedStyle.Render("  best path: "+m.lastPath)
	}

	var right strings.Builder
	right.WriteString(m.activityView())
	right.WriteString("\n\n")
	right.WriteString(m.decisions.View())
	rightCol := right.String()

	if m.width > 100 {
		left := boxStyle.Width(m.width/2 - 2).Render(leftCol)
		r := boxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, r))
	} else {
		width := max(m.width-4, 40)
		b.WriteString(boxStyle.Width(width).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(boxStyle.Width(width).Render(rightCol))
	}
	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(errHeader.Render("ERRORS") + mutedStyle.Render(" (e: clear)") + "\n")
		for _, e := range m.errors {
			b.WriteString(errStyle.Render("  • "+e.msg) + " " +
				mutedStyle.Render(time.Since(e.at).Round(time.Second).String()+" ago") + "\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(pausedStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m Model) activityView() string {
	lines := []string{headerStyle.Render("ACTIVITY"), ""}
	if len(m.activity) == 0 {
		lines = append(lines, mutedStyle.Render("  no cycles yet"))
	}
	for _, a := range m.activity {
		lines = append(lines, mutedStyle.Render("  "+a))
	}
	return strings.Join(lines, "\n")
}

const graphLogo = `
      ┌──────┐        ┌──────┐
      │ USD  │ ─────▶ │ BTC  │
      └──────┘        └──────┘
          ▲               │
          │   ┌──────┐    │
          └── │ ETH  │ ◀──┘
              └──────┘
`

func (m Model) splashView() string {
	dots := strings.Repeat(".", int(time.Since(m.openedAt)/(300*time.Millisecond))%4)
	return strings.Join([]string{
		"\n\n",
		logoStyle.Render(graphLogo),
		mutedStyle.Render("         G R A P H   A R B I T R A G E"),
		"\n",
		okStyle.Render("              building the graph" + dots),
		"",
		mutedStyle.Render("      any key to continue"),
		"",
	}, "\n")
}

var spinnerFrames = []string{"◐", "◓", "◑", "◒"}

func (m Model) startupView() string {
	var sb strings.Builder
	sb.WriteString("\n\n" + headerStyle.Render("  Graph Arbitrage") + "\n\n")
	sb.WriteString(titleStyle.Render("Starting up...") + "\n\n")

	since := time.Since(m.stepsFrom)
	for _, step := range m.steps {
		icon, label, style := "○", "Pending", mutedStyle
		switch {
		case step.ready():
			icon, label, style = "✓", "Ready", okStyle
		case step.status == "connecting":
			icon = spinnerFrames[int(since/(200*time.Millisecond))%len(spinnerFrames)]
			label, style = "Connecting...", warnStyle
		case step.status == "failed":
			icon, label, style = "✗", "Failed", errStyle
		}
		fmt.Fprintf(&sb, "  %s %-26s %s\n", style.Render(icon), step.label, style.Render(label))
	}

	sb.WriteString("\n" + mutedStyle.Render("  "+since.Round(time.Second).String()+" elapsed") + "\n")
	return sb.String()
}

func (m Model) statusLine() string {
	parts := []string{
		heldStyle.Render("Held: " + m.held),
		fmt.Sprintf("Products: %d", m.tickers.Len()),
		m.connections.View(),
	}
	if !m.lastCycle.IsZero() {
		ago := time.Since(m.lastCycle).Round(time.Second)
		fresh := ""
		if ago < 2*time.Second {
			fresh = " ▪"
		}
		parts = append(parts, mutedStyle.Render("Last cycle: "+ago.String()+" ago"+fresh))
	}
	return strings.Join(parts, " │ ")
}

// Program is the running dashboard, set by the run command.
var Program *tea.Program

// OnStartModules runs once when the splash screen is dismissed.
var OnStartModules func()

// Send delivers msg to Program if one is running.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
