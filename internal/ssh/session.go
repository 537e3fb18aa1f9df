// internal/ssh/session.go

package ssh

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"

	"hpcq/internal/apperr"
	"hpcq/internal/models"
)

// Session owns one authenticated transport. Every Run opens its own channel;
// uploads share a single lazily opened transfer channel.
type Session struct {
	profile  models.ConnectionProfile
	client   *ssh.Client
	transfer string
	uploader uploader

	state      SessionState
	stateMutex sync.RWMutex
}

func newSession(profile models.ConnectionProfile, client *ssh.Client, transfer string) *Session {
	if transfer == "" {
		transfer = TransferSFTP
	}
	return &Session{
		profile:  profile,
		client:   client,
		transfer: transfer,
		state:    StateConnected,
	}
}

// Profile returns the profile the session was opened with.
func (s *Session) Profile() models.ConnectionProfile {
	return s.profile
}

// Run executes command on a fresh channel and waits for its exit status.
// A nonzero exit is reported in the result, not as an error.
func (s *Session) Run(command string) (*CommandResult, error) {
	if s.GetState() != StateConnected {
		return nil, apperr.Op(apperr.CommandError, "run", fmt.Sprintf("session closed, cannot run %q", command), nil)
	}

	session, err := s.client.NewSession()
	if err != nil {
		return nil, apperr.Op(apperr.CommandError, "run", fmt.Sprintf("failed to open channel for %q", command), err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	log.Tracef("run: %s", command)
	err = session.Run(command)
	result := &CommandResult{Stdout: stdout.String()}
	if err == nil {
		return result, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitStatus()
		result.Stderr = stderr.String()
		log.Debugf("%q exited with %d: %s", command, result.ExitCode, strings.TrimSpace(result.Stderr))
		return result, nil
	}

	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		return nil, apperr.Op(apperr.CommandError, "run", fmt.Sprintf("%q ended without an exit status", command), err)
	}
	return nil, apperr.Op(apperr.CommandError, "run", fmt.Sprintf("failed to run %q", command), err)
}

// OpenUpload creates or truncates remotePath and returns a writer for its content.
// The file is complete once the writer has been closed without error.
func (s *Session) OpenUpload(remotePath string) (io.WriteCloser, error) {
	if s.GetState() != StateConnected {
		return nil, apperr.Op(apperr.TransferError, "upload", fmt.Sprintf("session closed, cannot upload %s", remotePath), nil)
	}

	if s.uploader == nil {
		u, err := newUploader(s.client, s.transfer)
		if err != nil {
			return nil, apperr.Op(apperr.TransferError, "upload", fmt.Sprintf("failed to open %s channel", s.transfer), err)
		}
		s.uploader = u
	}

	w, err := s.uploader.Create(remotePath)
	if err != nil {
		return nil, apperr.Op(apperr.TransferError, "upload", fmt.Sprintf("failed to create %s", remotePath), err)
	}
	return &uploadWriter{WriteCloser: w, path: remotePath}, nil
}

// Close releases the transfer channel and the transport.
func (s *Session) Close() error {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed

	var errs []string
	if s.uploader != nil {
		if err := s.uploader.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("transfer close error: %v", err))
		}
		s.uploader = nil
	}
	if err := s.client.Close(); err != nil && !errors.Is(err, io.EOF) {
		errs = append(errs, fmt.Sprintf("client close error: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Session) GetState() SessionState {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.state
}

// uploadWriter maps backend write/close failures to TransferError.
type uploadWriter struct {
	io.WriteCloser
	path string
}

func (w *uploadWriter) Write(p []byte) (int, error) {
	n, err := w.WriteCloser.Write(p)
	if err != nil {
		return n, apperr.Op(apperr.TransferError, "upload", fmt.Sprintf("failed to write %s", w.path), err)
	}
	return n, nil
}

func (w *uploadWriter) Close() error {
	if err := w.WriteCloser.Close(); err != nil {
		return apperr.Op(apperr.TransferError, "upload", fmt.Sprintf("failed to finish %s", w.path), err)
	}
	return nil
}
