// internal/ui/dashboard.go

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hpcq/internal/tunnel"
	"hpcq/internal/ui/messages"
)

// TunnelSource is what the dashboard polls. *tunnel.Manager satisfies it.
type TunnelSource interface {
	Tunnels() []tunnel.Snapshot
	CloseAll()
}

// Model is the bubbletea model of the tunnel dashboard.
type Model struct {
	source  TunnelSource
	host    string
	logFile string
	refresh time.Duration

	layout BaseLayout
	table  table.Model
	help   help.Model
	snaps  []tunnel.Snapshot

	quitting bool
}

func NewModel(source TunnelSource, host, logFile string, refresh time.Duration) Model {
	width, height := TerminalSize()
	layout := NewBaseLayout(width, height)
	snaps := source.Tunnels()

	return Model{
		source:  source,
		host:    host,
		logFile: logFile,
		refresh: refresh,
		layout:  layout,
		table:   CreateBubbleTable(tunnelColumns(width), tunnelRows(snaps), layout.ContentHeight),
		help:    help.New(),
		snaps:   snaps,
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return messages.TickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick(m.refresh)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.TickMsg:
		m.snaps = m.source.Tunnels()
		m.table.SetRows(tunnelRows(m.snaps))
		return m, tick(m.refresh)

	case tea.WindowSizeMsg:
		m.layout = NewBaseLayout(msg.Width, msg.Height)
		m.table.SetColumns(tunnelColumns(msg.Width))
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(m.layout.ContentHeight)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	active := 0
	for _, s := range m.snaps {
		if s.State == tunnel.Active {
			active++
		}
	}
	status := ActiveStyle.Render(fmt.Sprintf("%d active", active))
	if exited := len(m.snaps) - active; exited > 0 {
		status += "  " + ExitedStyle.Render(fmt.Sprintf("%d exited", exited))
	}
	header := m.layout.Header().Render(
		TitleStyle.Render("hpcq tunnels via "+m.host) + "  " + status,
	)

	var content string
	if len(m.snaps) == 0 {
		content = DescriptionStyle.Render("No tunnels open.")
	} else {
		content = m.table.View()
	}

	footer := []string{m.help.View(keys)}
	if m.logFile != "" {
		footer = append(footer, DescriptionStyle.Render("log: "+m.logFile))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		content,
		m.layout.Footer().Render(strings.Join(footer, "  ")),
	)
}

// Dashboard runs the model full screen and closes every tunnel on the way out.
type Dashboard struct {
	source  TunnelSource
	host    string
	logFile string
	refresh time.Duration
	options []tea.ProgramOption
}

func NewDashboard(source TunnelSource, host, logFile string, refresh time.Duration, options ...tea.ProgramOption) *Dashboard {
	return &Dashboard{
		source:  source,
		host:    host,
		logFile: logFile,
		refresh: refresh,
		options: options,
	}
}

// Run blocks until the operator quits. Tunnels are closed even when the program fails.
func (d *Dashboard) Run() error {
	defer d.source.CloseAll()

	opts := append([]tea.ProgramOption{tea.WithAltScreen()}, d.options...)
	p := tea.NewProgram(NewModel(d.source, d.host, d.logFile, d.refresh), opts...)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}
