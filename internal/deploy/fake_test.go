package deploy

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"hpcq/internal/apperr"
	"hpcq/internal/ssh"
)

// fakeRemote records commands and uploads. Results are keyed by command prefix.
type fakeRemote struct {
	commands  []string
	uploads   map[string]string
	order     []string
	results   map[string]*ssh.CommandResult
	runErr    map[string]error
	failOpen  map[string]bool
	failWrite map[string]bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		uploads:   map[string]string{},
		results:   map[string]*ssh.CommandResult{},
		runErr:    map[string]error{},
		failOpen:  map[string]bool{},
		failWrite: map[string]bool{},
	}
}

func (f *fakeRemote) Run(command string) (*ssh.CommandResult, error) {
	f.commands = append(f.commands, command)
	for prefix, err := range f.runErr {
		if strings.HasPrefix(command, prefix) {
			return nil, err
		}
	}
	for prefix, res := range f.results {
		if strings.HasPrefix(command, prefix) {
			return res, nil
		}
	}
	return &ssh.CommandResult{}, nil
}

func (f *fakeRemote) OpenUpload(remotePath string) (io.WriteCloser, error) {
	if f.failOpen[remotePath] {
		return nil, errors.New("permission denied")
	}
	return &fakeUpload{remote: f, path: remotePath}, nil
}

type fakeUpload struct {
	remote *fakeRemote
	path   string
	buf    bytes.Buffer
}

func (u *fakeUpload) Write(p []byte) (int, error) {
	if u.remote.failWrite[u.path] {
		return 0, errors.New("connection lost")
	}
	return u.buf.Write(p)
}

func (u *fakeUpload) Close() error {
	u.remote.uploads[u.path] = u.buf.String()
	u.remote.order = append(u.remote.order, u.path)
	return nil
}

func transportFailure() error {
	return apperr.Op(apperr.CommandError, "run", "failed to open channel", io.EOF)
}
