package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/scour/pkg/scour/logging"
	"github.com/jamesainslie/scour/pkg/scour/report"
	"github.com/jamesainslie/scour/pkg/scour/sampler"
)

// Options configures the monitor.
type Options struct {
	Sampler  *sampler.Sampler
	Interval time.Duration

	// Logs, if set, supplies the warnings shown under the process table.
	Logs *logging.Buffer
}

// shownLogEntries is the number of log lines under the process table.
const shownLogEntries = 3

// sampleMsg carries the result of one Sample call.
type sampleMsg struct {
	seq  int
	snap *sampler.Snapshot
	err  error
}

// tickMsg asks for the next sample. Ticks from an older seq are dropped.
type tickMsg struct {
	seq int
}

// Model is the Bubble Tea model of the resource monitor.
type Model struct {
	sampler  *sampler.Sampler
	interval time.Duration
	logs     *logging.Buffer

	ctx    context.Context
	cancel context.CancelFunc

	table   table.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	snap   *sampler.Snapshot
	err    error
	paused bool

	// seq increases whenever the polling chain is restarted.
	seq int

	width  int
	height int
}

// NewModel creates a monitor model.
func NewModel(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.Sampler == nil {
		opts.Sampler = sampler.New()
	}
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}

	t := table.New(
		table.WithColumns(processColumns(80)),
		table.WithFocused(true),
		table.WithHeight(6),
	)
	t.SetStyles(tableStyles())

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		sampler:  opts.Sampler,
		interval: opts.Interval,
		logs:     opts.Logs,
		ctx:      ctx,
		cancel:   cancel,
		table:    t,
		spinner:  s,
		help:     help.New(),
		keys:     newKeyMap(),
		width:    80,
		height:   24,
	}
}

// Init starts sampling.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.sample())
}

func (m Model) sample() tea.Cmd {
	s, ctx, seq := m.sampler, m.ctx, m.seq
	return func() tea.Msg {
		snap, err := s.Sample(ctx)
		return sampleMsg{seq: seq, snap: snap, err: err}
	}
}

func (m Model) tick() tea.Cmd {
	seq := m.seq
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return tickMsg{seq: seq}
	})
}

// restart begins a new polling chain with an immediate sample.
func (m Model) restart() (Model, tea.Cmd) {
	m.seq++
	return m, m.sample()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(processColumns(msg.Width))
		m.table.SetHeight(max(msg.Height-14, 3))
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sampleMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.snap = msg.snap
			m.table.SetRows(processRows(msg.snap))
		}
		if m.paused || msg.seq != m.seq {
			return m, nil
		}
		return m, m.tick()

	case tickMsg:
		if m.paused || msg.seq != m.seq {
			return m, nil
		}
		return m, m.sample()

	case spinner.TickMsg:
		if m.snap != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Rank):
		if m.sampler.Rank() == sampler.RankCPU {
			m.sampler.SetRank(sampler.RankMemory)
		} else {
			m.sampler.SetRank(sampler.RankCPU)
		}
		if m.paused {
			return m, nil
		}
		return m.restart()

	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
		if m.paused {
			return m, nil
		}
		return m.restart()

	case key.Matches(msg, m.keys.Refresh):
		return m.restart()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the monitor.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.snap == nil {
		if m.err != nil {
			b.WriteString(errorTextStyle.Render("Sampling failed: " + m.err.Error()))
		} else {
			b.WriteString(m.spinner.View() + " Sampling...")
		}
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keys))
		return outerBoxStyle.Render(b.String())
	}

	barWidth := min(max(m.width-50, minBarWidth), 40)
	snap := m.snap

	b.WriteString(renderGauge("cpu", snap.CPU, fmt.Sprintf("%d cores", snap.NumCPU), barWidth))
	b.WriteString("\n")
	b.WriteString(renderGauge("memory", snap.MemoryFraction(), usageDetail(snap.MemoryUsed, snap.MemoryTotal), barWidth))
	b.WriteString("\n")
	disk := "unavailable"
	if snap.DiskTotal > 0 {
		disk = usageDetail(snap.DiskUsed, snap.DiskTotal) + "  " + snap.DiskPath
	}
	b.WriteString(renderGauge("disk", snap.DiskFraction(), disk, barWidth))
	b.WriteString("\n\n")

	b.WriteString(m.table.View())
	b.WriteString("\n")

	if !snap.ProcessCPUReady {
		b.WriteString(mutedTextStyle.Render("Process CPU is shown from the next refresh."))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorTextStyle.Render("Last sample failed: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.renderLogs())

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return outerBoxStyle.Render(b.String())
}

func (m Model) renderHeader() string {
	name := titleStyle.Render("SCOUR")
	info := fmt.Sprintf("  monitor  •  every %s  •  by %s", m.interval, m.sampler.Rank())
	header := fmt.Sprintf(" 🧹 %s%s", name, mutedTextStyle.Render(info))
	if m.snap != nil {
		header += mutedTextStyle.Render("  •  " + m.snap.Time.Format(time.TimeOnly))
	}
	if m.paused {
		header += lipgloss.NewStyle().Foreground(warningColor).Bold(true).Render("  ❚❚ PAUSED")
	}
	return header
}

// renderLogs shows the newest warnings and errors.
func (m Model) renderLogs() string {
	if m.logs == nil {
		return ""
	}
	var b strings.Builder
	for _, e := range m.logs.Last(shownLogEntries, logging.LevelWarn) {
		style := warningTextStyle
		if e.Level >= logging.LevelError {
			style = errorTextStyle
		}
		line := fmt.Sprintf("%s %s %s: %s", e.Time.Format(time.TimeOnly), strings.ToUpper(e.Level.String()), e.Component, e.Message)
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// processColumns sizes the name column to the terminal width.
func processColumns(width int) []table.Column {
	nameWidth := max(width-40, 16)
	return []table.Column{
		{Title: "PID", Width: 8},
		{Title: "Name", Width: nameWidth},
		{Title: "CPU", Width: 8},
		{Title: "Memory", Width: 10},
	}
}

// processRows converts the snapshot's processes into table rows.
func processRows(snap *sampler.Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(snap.Processes))
	for _, p := range snap.Processes {
		cpu := "-"
		if snap.ProcessCPUReady {
			cpu = report.FormatPercent(p.CPU)
		}
		rows = append(rows, table.Row{
			strconv.Itoa(int(p.PID)),
			p.Name,
			cpu,
			humanize.IBytes(p.Memory),
		})
	}
	return rows
}

// Run starts the monitor and blocks until the user quits.
func Run(opts Options) error {
	m := NewModel(opts)
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
