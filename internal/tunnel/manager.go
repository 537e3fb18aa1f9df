// internal/tunnel/manager.go

package tunnel

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"hpcq/internal/apperr"
	"hpcq/internal/config"
	"hpcq/internal/logger"
	"hpcq/internal/models"
)

var log = logger.Get("tunnel")

const waitDelay = 2 * time.Second

type State int

const (
	Active State = iota
	Exited
)

func (s State) String() string {
	switch s {
	case Active:
		return "Active"
	case Exited:
		return "Exited"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Tunnel is one local port forward backed by an ssh child process.
type Tunnel struct {
	ID        string
	Job       models.Job
	LocalPort uint16
	StartedAt time.Time

	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	output *lineBuffer

	mu       sync.RWMutex
	exitedAt time.Time
	exitErr  error
}

// Snapshot is a point-in-time view of a tunnel for display.
type Snapshot struct {
	ID        string
	Job       models.Job
	LocalPort uint16
	State     State
	Uptime    time.Duration
	LastLine  string
	ExitErr   error
}

// Manager owns every tunnel child process of this invocation.
type Manager struct {
	hostAlias string
	cfg       config.TunnelConfig
	ports     *PortAllocator

	tunnels map[string]*Tunnel
	order   []string
	mu      sync.RWMutex

	newCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
	now        func() time.Time
}

// NewManager creates a manager that forwards through hostAlias, resolved by the
// ssh binary's own client configuration.
func NewManager(hostAlias string, cfg config.TunnelConfig) *Manager {
	return &Manager{
		hostAlias:  hostAlias,
		cfg:        cfg,
		ports:      NewPortAllocator(cfg.BindAddress, cfg.PortStart, cfg.PortEnd),
		tunnels:    make(map[string]*Tunnel),
		newCommand: exec.CommandContext,
		now:        time.Now,
	}
}

// Args returns the ssh arguments that forward localPort to the job's dashboard.
func (m *Manager) Args(localPort uint16, job models.Job) []string {
	var args []string
	if m.cfg.ConfigFile != "" {
		args = append(args, "-F", m.cfg.ConfigFile)
	}
	return append(args, "-N", "-T", "-L", fmt.Sprintf("%d:%s", localPort, job.Target()), m.hostAlias)
}

// Open starts one tunnel per job. If the very first port allocation fails the
// error is returned; a later shortage ends the loop with the tunnels opened so far.
// A process that cannot be started closes everything opened by this call.
func (m *Manager) Open(jobs []models.Job) ([]*Tunnel, error) {
	var opened []*Tunnel
	for i, job := range jobs {
		port, err := m.ports.Allocate()
		if err != nil {
			if i == 0 {
				return nil, err
			}
			log.Warningf("ran out of local ports: %d of %d tunnels opened", len(opened), len(jobs))
			return opened, nil
		}

		t, err := m.start(job, port)
		if err != nil {
			m.ports.Release(port)
			for _, o := range opened {
				m.Close(o)
			}
			return nil, apperr.Op(apperr.TunnelError, "spawn", fmt.Sprintf("failed to start tunnel for %s", job.Name), err)
		}
		log.Infof("%s: localhost:%d -> %s", job.Name, port, job.Target())
		opened = append(opened, t)
	}
	return opened, nil
}

func (m *Manager) start(job models.Job, port uint16) (*Tunnel, error) {
	ctx, cancel := context.WithCancel(context.Background())

	t := &Tunnel{
		ID:        uuid.NewString(),
		Job:       job,
		LocalPort: port,
		cancel:    cancel,
		done:      make(chan struct{}),
		output:    newLineBuffer(m.cfg.LogLines),
	}

	cmd := m.newCommand(ctx, m.cfg.SSHBinary, m.Args(port, job)...)
	cmd.Stdout = t.output
	cmd.Stderr = t.output
	cmd.WaitDelay = waitDelay
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, err
	}
	t.cmd = cmd
	t.StartedAt = m.now()

	m.mu.Lock()
	m.tunnels[t.ID] = t
	m.order = append(m.order, t.ID)
	m.mu.Unlock()

	go func() {
		err := cmd.Wait()
		t.mu.Lock()
		t.exitedAt = m.now()
		t.exitErr = err
		t.mu.Unlock()
		if ctx.Err() == nil {
			log.Warningf("%s: tunnel process exited: %v", job.Name, exitReason(err))
		}
		close(t.done)
	}()

	return t, nil
}

// Close kills the tunnel's process, waits for it and releases its port.
func (m *Manager) Close(t *Tunnel) error {
	m.mu.Lock()
	if _, ok := m.tunnels[t.ID]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("tunnel %s is not open", t.ID)
	}
	delete(m.tunnels, t.ID)
	for i, id := range m.order {
		if id == t.ID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	t.cancel()
	<-t.done
	m.ports.Release(t.LocalPort)
	log.Debugf("%s: closed tunnel on port %d", t.Job.Name, t.LocalPort)
	return nil
}

// CloseAll closes every open tunnel.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	open := make([]*Tunnel, 0, len(m.order))
	for _, id := range m.order {
		open = append(open, m.tunnels[id])
	}
	m.mu.RUnlock()

	for _, t := range open {
		if err := m.Close(t); err != nil {
			log.Debugf("close: %v", err)
		}
	}
}

// Tunnels returns snapshots of the open tunnels in the order they were opened.
func (m *Manager) Tunnels() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	snaps := make([]Snapshot, 0, len(m.order))
	for _, id := range m.order {
		snaps = append(snaps, m.tunnels[id].snapshot(now))
	}
	return snaps
}

// Ports exposes the allocator, mainly for inspection.
func (m *Manager) Ports() *PortAllocator {
	return m.ports
}

// Output returns the buffered output lines of a tunnel's process.
func (t *Tunnel) Output() []string {
	return t.output.Lines()
}

// Running reports whether the process has not exited yet.
func (t *Tunnel) Running() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

func (t *Tunnel) snapshot(now time.Time) Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{
		ID:        t.ID,
		Job:       t.Job,
		LocalPort: t.LocalPort,
		State:     Active,
		Uptime:    now.Sub(t.StartedAt),
		LastLine:  t.output.Last(),
	}
	if !t.exitedAt.IsZero() {
		s.State = Exited
		s.Uptime = t.exitedAt.Sub(t.StartedAt)
		s.ExitErr = t.exitErr
	}
	return s
}

func exitReason(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("exit status %d", exitErr.ExitCode())
	}
	if err == nil {
		return "exit status 0"
	}
	return err.Error()
}
