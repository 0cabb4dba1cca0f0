package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackpack/pkg/compose"
	"github.com/matzehuels/stackpack/pkg/observability"
)

var (
	tableHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	tableBorderStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Messages
// =============================================================================

type packCheckedMsg struct {
	pack       string
	applicable bool
	err        error
}

type packBuiltMsg struct {
	pack     string
	duration time.Duration
	err      error
}

type provisionQueuedMsg struct {
	op            observability.Op
	name, version string
}

type provisionStartMsg struct {
	op            observability.Op
	name, version string
}

type provisionDoneMsg struct {
	op            observability.Op
	name, version string
	installed     bool
	duration      time.Duration
	err           error
}

type composeDoneMsg struct{ err error }

type tickMsg time.Time

// =============================================================================
// ProgressModel - Live composition display
// =============================================================================

type packState int

const (
	packChecking packState = iota
	packBuilding
	packSkipped
	packReady
	packFailed
)

type packRow struct {
	name     string
	state    packState
	duration time.Duration
}

type installRow struct {
	spec     string
	running  bool
	done     bool
	failed   bool
	duration time.Duration
}

// ProgressModel is the bubbletea model showing pack and provisioning status
// while a composition runs.
type ProgressModel struct {
	Packs    []packRow
	Installs []installRow
	Frame    int
	Done     bool
	Err      error

	cancel context.CancelFunc
}

// NewProgressModel creates a progress model. cancel is called on ctrl+c.
func NewProgressModel(cancel context.CancelFunc) ProgressModel {
	return ProgressModel{cancel: cancel}
}

func (m ProgressModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && m.cancel != nil {
			m.cancel()
		}
	case tickMsg:
		if m.Done {
			return m, nil
		}
		m.Frame++
		return m, tick()
	case packCheckedMsg:
		row := m.pack(msg.pack)
		switch {
		case msg.err != nil:
			row.state = packFailed
		case msg.applicable:
			row.state = packBuilding
		default:
			row.state = packSkipped
		}
	case packBuiltMsg:
		row := m.pack(msg.pack)
		row.duration = msg.duration
		if msg.err != nil {
			row.state = packFailed
		} else {
			row.state = packReady
		}
	case provisionQueuedMsg:
		if msg.op == observability.OpUse {
			m.install(msg.name, msg.version)
		}
	case provisionStartMsg:
		if msg.op == observability.OpUse {
			m.install(msg.name, msg.version).running = true
		}
	case provisionDoneMsg:
		if msg.op == observability.OpUse {
			row := m.install(msg.name, msg.version)
			row.running = false
			row.done = msg.installed || msg.err == nil
			row.failed = msg.err != nil
			row.duration = msg.duration
		}
	case composeDoneMsg:
		m.Done = true
		m.Err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

// pack returns the row for name, appending one in arrival order.
func (m *ProgressModel) pack(name string) *packRow {
	for i := range m.Packs {
		if m.Packs[i].name == name {
			return &m.Packs[i]
		}
	}
	m.Packs = append(m.Packs, packRow{name: name})
	return &m.Packs[len(m.Packs)-1]
}

func (m *ProgressModel) install(name, version string) *installRow {
	spec := name + "@" + version
	for i := range m.Installs {
		if m.Installs[i].spec == spec {
			return &m.Installs[i]
		}
	}
	m.Installs = append(m.Installs, installRow{spec: spec})
	return &m.Installs[len(m.Installs)-1]
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Composing configuration"))
	b.WriteString("\n")

	if len(m.Packs) > 0 {
		rows := make([][]string, 0, len(m.Packs))
		for _, p := range m.Packs {
			rows = append(rows, []string{p.name, m.packStatus(p), formatDuration(p.duration)})
		}
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(tableBorderStyle).
			Headers("Pack", "Status", "Time").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return tableHeaderStyle
				}
				return lipgloss.NewStyle().Padding(0, 1)
			})
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	for _, in := range m.Installs {
		switch {
		case in.failed:
			b.WriteString(styleIconError.Render(iconError) + " " + in.spec)
		case in.done:
			b.WriteString(styleIconSuccess.Render(iconSuccess) + " " + in.spec + " " + StyleDim.Render(formatDuration(in.duration)))
		case in.running:
			b.WriteString(m.spinnerFrame() + " " + StyleDim.Render("installing "+in.spec))
		default:
			b.WriteString(StyleDim.Render(iconInfo + " queued " + in.spec))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m ProgressModel) packStatus(p packRow) string {
	switch p.state {
	case packSkipped:
		return styleSkipped.Render("not applicable")
	case packReady:
		return styleApplied.Render(iconSuccess + " applied")
	case packFailed:
		return styleIconError.Render(iconError + " failed")
	case packBuilding:
		return m.spinnerFrame() + " building"
	default:
		return m.spinnerFrame() + " checking"
	}
}

func (m ProgressModel) spinnerFrame() string {
	return styleIconSpinner.Render(spinnerFrames[m.Frame%len(spinnerFrames)])
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}

// =============================================================================
// Tea Hooks
// =============================================================================

// teaHooks forwards provisioning and composition events to a running program.
type teaHooks struct {
	send func(tea.Msg)
}

var (
	_ observability.ProvisionHooks = (*teaHooks)(nil)
	_ observability.ComposeHooks   = (*teaHooks)(nil)
)

func (h *teaHooks) OnProvisionQueued(_ context.Context, op observability.Op, name, version string, _ int) {
	h.send(provisionQueuedMsg{op: op, name: name, version: version})
}

func (h *teaHooks) OnProvisionStart(_ context.Context, op observability.Op, name, version string) {
	h.send(provisionStartMsg{op: op, name: name, version: version})
}

func (h *teaHooks) OnProvisionComplete(_ context.Context, op observability.Op, name, version string, installed bool, d time.Duration, err error) {
	h.send(provisionDoneMsg{op: op, name: name, version: version, installed: installed, duration: d, err: err})
}

func (h *teaHooks) OnPackChecked(_ context.Context, pack string, applicable bool, err error) {
	h.send(packCheckedMsg{pack: pack, applicable: applicable, err: err})
}

func (h *teaHooks) OnPackBuilt(_ context.Context, pack string, d time.Duration, err error) {
	h.send(packBuiltMsg{pack: pack, duration: d, err: err})
}

func (h *teaHooks) OnComposeComplete(context.Context, []string, time.Duration, error) {}

// runWithProgress runs fn while a bubbletea program renders its events on
// stderr. Log output below warning level is held back while the display runs.
func runWithProgress(ctx context.Context, logger *log.Logger, fn func(context.Context, hookSet) (*compose.Result, error)) (*compose.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	level := logger.GetLevel()
	if level < log.WarnLevel {
		logger.SetLevel(log.WarnLevel)
		defer logger.SetLevel(level)
	}

	p := tea.NewProgram(NewProgressModel(cancel), tea.WithOutput(os.Stderr))
	hooks := &teaHooks{send: p.Send}

	var (
		res *compose.Result
		err error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		res, err = fn(ctx, hookSet{provision: hooks, compose: hooks})
		p.Send(composeDoneMsg{err: err})
	}()

	if _, perr := p.Run(); perr != nil {
		logger.Warn("progress display failed", "err", perr)
	}
	<-finished
	return res, err
}
