// internal/ssh/sshtest/server.go

// Package sshtest runs an in-process SSH server for tests. Commands are
// executed with sh and the sftp subsystem is served by pkg/sftp.
package sshtest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	qt "github.com/frankban/quicktest"
	gliderssh "github.com/gliderlabs/ssh"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Options shape the environment commands run in.
type Options struct {
	// Home is exported as HOME and used as the working directory of commands.
	Home string
	// Path entries are prepended to PATH.
	Path []string
}

type Server struct {
	Addr    string
	HostKey ssh.Signer

	mu       sync.Mutex
	commands []string
}

// WriteKey generates an ed25519 client key under dir and returns its path and public half.
func WriteKey(c *qt.C, dir string) (string, ssh.PublicKey) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	c.Assert(err, qt.IsNil)
	block, err := ssh.MarshalPrivateKey(priv, "")
	c.Assert(err, qt.IsNil)
	path := filepath.Join(dir, "id_ed25519")
	c.Assert(os.WriteFile(path, pem.EncodeToMemory(block), 0600), qt.IsNil)
	sshPub, err := ssh.NewPublicKey(pub)
	c.Assert(err, qt.IsNil)
	return path, sshPub
}

// Start serves until the test ends. Only the authorized key is accepted.
func Start(c *qt.C, authorized ssh.PublicKey, opts Options) *Server {
	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	c.Assert(err, qt.IsNil)
	hostKey, err := ssh.NewSignerFromKey(hostPriv)
	c.Assert(err, qt.IsNil)

	s := &Server{HostKey: hostKey}
	env := opts.environ()

	srv := &gliderssh.Server{
		Handler: func(sess gliderssh.Session) {
			s.record(sess.RawCommand())
			cmd := exec.Command("sh", "-c", sess.RawCommand())
			cmd.Env = env
			cmd.Dir = opts.Home
			cmd.Stdout = sess
			cmd.Stderr = sess.Stderr()
			if err := cmd.Run(); err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					sess.Exit(exitErr.ExitCode())
					return
				}
				sess.Exit(255)
				return
			}
			sess.Exit(0)
		},
		PublicKeyHandler: func(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
			return gliderssh.KeysEqual(key, authorized)
		},
		SubsystemHandlers: map[string]gliderssh.SubsystemHandler{
			"sftp": func(sess gliderssh.Session) {
				server, err := sftp.NewServer(sess)
				if err != nil {
					return
				}
				server.Serve()
				server.Close()
			},
		},
	}
	srv.AddHostKey(hostKey)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, qt.IsNil)
	go srv.Serve(ln)
	c.Cleanup(func() { srv.Close() })

	s.Addr = ln.Addr().String()
	return s
}

// Commands returns every exec request received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *Server) record(command string) {
	s.mu.Lock()
	s.commands = append(s.commands, command)
	s.mu.Unlock()
}

func (o Options) environ() []string {
	env := os.Environ()
	if o.Home != "" {
		env = append(env, "HOME="+o.Home)
	}
	if len(o.Path) > 0 {
		env = append(env, "PATH="+strings.Join(append(append([]string{}, o.Path...), os.Getenv("PATH")), string(os.PathListSeparator)))
	}
	return env
}
