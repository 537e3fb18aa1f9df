// internal/ui/layout.go

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"hpcq/internal/models"
	"hpcq/internal/tunnel"
)

// BaseLayout holds the dashboard's dimensions.
type BaseLayout struct {
	Width         int
	Height        int
	HeaderHeight  int
	FooterHeight  int
	ContentHeight int
}

func NewBaseLayout(width, height int) BaseLayout {
	const (
		headerHeight = 2
		footerHeight = 2
	)

	content := height - headerHeight - footerHeight
	if content < 3 {
		content = 3
	}
	return BaseLayout{
		Width:         width,
		Height:        height,
		HeaderHeight:  headerHeight,
		FooterHeight:  footerHeight,
		ContentHeight: content,
	}
}

func (l BaseLayout) Header() lipgloss.Style {
	return lipgloss.NewStyle().
		Width(l.Width).
		Height(l.HeaderHeight - 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Border)
}

func (l BaseLayout) Footer() lipgloss.Style {
	return lipgloss.NewStyle().
		Width(l.Width).
		Height(l.FooterHeight - 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Border)
}

var tunnelHeaders = []string{"Job", "Local", "Target", "State", "Uptime", "Last output"}

// tunnelColumns sizes the table columns; the last one takes what is left.
func tunnelColumns(width int) []table.Column {
	cols := []table.Column{
		{Title: tunnelHeaders[0], Width: 22},
		{Title: tunnelHeaders[1], Width: 16},
		{Title: tunnelHeaders[2], Width: 14},
		{Title: tunnelHeaders[3], Width: 7},
		{Title: tunnelHeaders[4], Width: 9},
	}
	used := 0
	for _, c := range cols {
		used += c.Width + 2
	}
	last := width - used - 2
	if last < 12 {
		last = 12
	}
	return append(cols, table.Column{Title: tunnelHeaders[5], Width: last})
}

func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func snapshotRow(s tunnel.Snapshot) []string {
	return []string{
		s.Job.Name,
		fmt.Sprintf("localhost:%d", s.LocalPort),
		s.Job.Target(),
		s.State.String(),
		formatUptime(s.Uptime),
		strings.TrimSpace(s.LastLine),
	}
}

func tunnelRows(snaps []tunnel.Snapshot) []table.Row {
	rows := make([]table.Row, len(snaps))
	for i, s := range snaps {
		rows[i] = table.Row(snapshotRow(s))
	}
	return rows
}

// CreateBubbleTable builds the interactive tunnel table.
func CreateBubbleTable(columns []table.Column, rows []table.Row, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(height),
		table.WithFocused(true),
	)

	style := table.Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(Highlight).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(Subtle).
			Padding(0, 1),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(Highlight).
			Bold(true),
		Cell: lipgloss.NewStyle().
			Padding(0, 1),
	}

	t.SetStyles(style)
	return t
}

// RenderTunnelTable renders a static table, used when there is no terminal to drive.
func RenderTunnelTable(snaps []tunnel.Snapshot) string {
	rows := make([][]string, len(snaps))
	for i, s := range snaps {
		rows[i] = snapshotRow(s)
	}
	return renderStatic(tunnelHeaders, rows)
}

var submissionHeaders = []string{"Job", "SLURM ID", "Results"}

// RenderSubmissionTable lists the jobs accepted by the scheduler.
func RenderSubmissionTable(subs []models.Submission) string {
	rows := make([][]string, len(subs))
	for i, s := range subs {
		id := s.SlurmJobID
		if id == "" {
			id = "-"
		}
		rows[i] = []string{s.JobName, id, s.ResultsDir}
	}
	return renderStatic(submissionHeaders, rows)
}

func renderStatic(headers []string, rows [][]string) string {
	tableStyle := func(row, col int) lipgloss.Style {
		switch {
		case row == -1: // headers
			return lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(Highlight).
				Bold(true)
		default:
			return lipgloss.NewStyle().
				Padding(0, 1)
		}
	}

	return ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Border)).
		StyleFunc(tableStyle).
		Headers(headers...).
		Rows(rows...).
		Render()
}
