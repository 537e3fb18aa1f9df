// internal/ssh/types.go

package ssh

// CommandResult is the outcome of one remote command.
// Stderr is only kept when ExitCode is nonzero.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the command exited with status 0.
func (r *CommandResult) Success() bool {
	return r.ExitCode == 0
}

// SessionState is the lifecycle state of a Session.
type SessionState int

const (
	StateConnected SessionState = iota
	StateClosed
)

const (
	TransferSFTP = "sftp"
	TransferSCP  = "scp"
)
