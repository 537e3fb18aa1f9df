package ui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	qt "github.com/frankban/quicktest"

	"hpcq/internal/models"
	"hpcq/internal/tunnel"
	"hpcq/internal/ui/messages"
)

type fakeSource struct {
	mu     sync.Mutex
	snaps  []tunnel.Snapshot
	closed int
}

func (f *fakeSource) Tunnels() []tunnel.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tunnel.Snapshot(nil), f.snaps...)
}

func (f *fakeSource) CloseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	f.snaps = nil
}

func snapshot(name string, port uint16, state tunnel.State) tunnel.Snapshot {
	return tunnel.Snapshot{
		ID:        name + "-id",
		Job:       models.Job{Name: name, ComputeNode: "gpu01", RemotePort: 8080},
		LocalPort: port,
		State:     state,
		Uptime:    90 * time.Second,
	}
}

func TestTickRefreshesRows(t *testing.T) {
	c := qt.New(t)
	src := &fakeSource{}
	m := NewModel(src, "eagle", "", 250*time.Millisecond)
	c.Assert(m.table.Rows(), qt.HasLen, 0)
	c.Assert(m.View(), qt.Contains, "No tunnels open.")

	src.snaps = []tunnel.Snapshot{snapshot("sim1", 30000, tunnel.Active), snapshot("sim2", 30001, tunnel.Exited)}
	next, cmd := m.Update(messages.TickMsg(time.Now()))
	c.Assert(cmd, qt.Not(qt.IsNil))

	m = next.(Model)
	rows := m.table.Rows()
	c.Assert(rows, qt.HasLen, 2)
	c.Assert([]string(rows[0]), qt.DeepEquals, []string{"sim1", "localhost:30000", "gpu01:8080", "Active", "00:01:30", ""})
	c.Assert(rows[1][3], qt.Equals, "Exited")
	c.Assert(m.View(), qt.Contains, "1 exited")
}

func TestQuitKeys(t *testing.T) {
	c := qt.New(t)

	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	} {
		m := NewModel(&fakeSource{}, "eagle", "", time.Second)
		next, cmd := m.Update(msg)
		c.Assert(cmd, qt.Not(qt.IsNil))
		c.Assert(cmd(), qt.Equals, tea.Quit())
		c.Assert(next.(Model).View(), qt.Equals, "")
	}
}

func TestOtherKeysDoNotQuit(t *testing.T) {
	c := qt.New(t)
	m := NewModel(&fakeSource{}, "eagle", "", time.Second)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	c.Assert(next.(Model).quitting, qt.IsFalse)
}

func TestWindowSizeResizesLayout(t *testing.T) {
	c := qt.New(t)
	m := NewModel(&fakeSource{}, "eagle", "/tmp/hpcq-tunnel.log", time.Second)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	m = next.(Model)
	c.Assert(m.layout.Width, qt.Equals, 160)
	c.Assert(m.layout.ContentHeight, qt.Equals, 36)
	c.Assert(m.View(), qt.Contains, "log: /tmp/hpcq-tunnel.log")
}

func TestDashboardRunClosesTunnels(t *testing.T) {
	c := qt.New(t)
	src := &fakeSource{snaps: []tunnel.Snapshot{snapshot("sim1", 30000, tunnel.Active)}}

	var out bytes.Buffer
	d := NewDashboard(src, "eagle", "", 10*time.Millisecond,
		tea.WithInput(strings.NewReader("q")),
		tea.WithOutput(&out),
	)
	c.Assert(d.Run(), qt.IsNil)
	c.Assert(src.closed, qt.Equals, 1)
}

func TestRenderTunnelTable(t *testing.T) {
	c := qt.New(t)

	out := RenderTunnelTable([]tunnel.Snapshot{snapshot("sim1", 30000, tunnel.Active)})
	c.Assert(out, qt.Contains, "sim1")
	c.Assert(out, qt.Contains, "localhost:30000")
	c.Assert(out, qt.Contains, "gpu01:8080")
}

func TestRenderSubmissionTable(t *testing.T) {
	c := qt.New(t)

	out := RenderSubmissionTable([]models.Submission{
		{JobName: "a", SlurmJobID: "4242", ResultsDir: "/home/hpc/jobs/run1/a.zarr"},
		{JobName: "b", ResultsDir: "/home/hpc/jobs/run1/b.zarr"},
	})
	c.Assert(out, qt.Contains, "SLURM ID")
	c.Assert(out, qt.Contains, "4242")
	c.Assert(out, qt.Contains, "/home/hpc/jobs/run1/b.zarr")
}

func TestFormatUptime(t *testing.T) {
	c := qt.New(t)

	c.Assert(formatUptime(3*time.Hour+4*time.Minute+5*time.Second+300*time.Millisecond), qt.Equals, "03:04:05")
	c.Assert(formatUptime(0), qt.Equals, "00:00:00")
}
