package ssh

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"golang.org/x/crypto/ssh/knownhosts"

	"hpcq/internal/apperr"
	"hpcq/internal/models"
	"hpcq/internal/ssh/sshtest"
)

func connectTo(c *qt.C, srv *sshtest.Server, keyPath string, transfer string) *Session {
	profile := models.ConnectionProfile{Host: "test", Address: srv.Addr, User: "hpc", KeyPath: keyPath}
	s, err := Connect(context.Background(), profile, Options{InsecureIgnoreHostKey: true, Transfer: transfer})
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { s.Close() })
	return s
}

func TestConnectMissingKeyFailsBeforeNetwork(t *testing.T) {
	c := qt.New(t)

	// 203.0.113.0/24 is TEST-NET-3; a dial there would hang, not fail fast.
	profile := models.ConnectionProfile{Host: "eagle", Address: "203.0.113.7:22", User: "hpc", KeyPath: filepath.Join(c.TempDir(), "absent")}
	_, err := Connect(context.Background(), profile, Options{InsecureIgnoreHostKey: true})
	c.Assert(errors.Is(err, apperr.ErrKeyFileMissing), qt.IsTrue)
	c.Assert(apperr.HasType(err, apperr.ConnectError), qt.IsTrue)
}

func TestConnectUnparsableKey(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(c.TempDir(), "id_rsa")
	c.Assert(os.WriteFile(path, []byte("not a key"), 0600), qt.IsNil)
	profile := models.ConnectionProfile{Address: "203.0.113.7:22", User: "hpc", KeyPath: path}
	_, err := Connect(context.Background(), profile, Options{InsecureIgnoreHostKey: true})
	c.Assert(err, qt.ErrorMatches, `key: failed to parse .*`)
}

func TestConnectDialFailure(t *testing.T) {
	c := qt.New(t)
	keyPath, _ := sshtest.WriteKey(c, c.TempDir())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, qt.IsNil)
	addr := ln.Addr().String()
	ln.Close()

	profile := models.ConnectionProfile{Address: addr, User: "hpc", KeyPath: keyPath}
	_, err = Connect(context.Background(), profile, Options{InsecureIgnoreHostKey: true})
	c.Assert(errors.Is(err, apperr.ErrDial), qt.IsTrue)
}

func TestConnectAuthRejected(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	keyPath, _ := sshtest.WriteKey(c, dir)
	_, otherPub := sshtest.WriteKey(c, c.TempDir())
	srv := sshtest.Start(c, otherPub, sshtest.Options{})

	profile := models.ConnectionProfile{Address: srv.Addr, User: "hpc", KeyPath: keyPath}
	_, err := Connect(context.Background(), profile, Options{InsecureIgnoreHostKey: true})
	c.Assert(errors.Is(err, apperr.ErrAuthRejected), qt.IsTrue)
}

func TestConnectVerifiesKnownHosts(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	keyPath, pub := sshtest.WriteKey(c, dir)
	srv := sshtest.Start(c, pub, sshtest.Options{})
	profile := models.ConnectionProfile{Address: srv.Addr, User: "hpc", KeyPath: keyPath}

	known := filepath.Join(dir, "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize(srv.Addr)}, srv.HostKey.PublicKey())
	c.Assert(os.WriteFile(known, []byte(line+"\n"), 0600), qt.IsNil)

	s, err := Connect(context.Background(), profile, Options{KnownHostsPath: known})
	c.Assert(err, qt.IsNil)
	s.Close()

	empty := filepath.Join(dir, "empty_known_hosts")
	c.Assert(os.WriteFile(empty, nil, 0600), qt.IsNil)
	_, err = Connect(context.Background(), profile, Options{KnownHostsPath: empty})
	c.Assert(errors.Is(err, apperr.ErrHandshake), qt.IsTrue)
}

func TestRunCapturesStdoutAndExitStatus(t *testing.T) {
	c := qt.New(t)
	keyPath, pub := sshtest.WriteKey(c, c.TempDir())
	s := connectTo(c, sshtest.Start(c, pub, sshtest.Options{}), keyPath, TransferSFTP)

	res, err := s.Run("echo hello; echo noise >&2")
	c.Assert(err, qt.IsNil)
	c.Assert(res.ExitCode, qt.Equals, 0)
	c.Assert(res.Stdout, qt.Equals, "hello\n")
	c.Assert(res.Stderr, qt.Equals, "")
	c.Assert(res.Success(), qt.IsTrue)

	res, err = s.Run("echo partial; echo broken >&2; exit 3")
	c.Assert(err, qt.IsNil)
	c.Assert(res.ExitCode, qt.Equals, 3)
	c.Assert(res.Stdout, qt.Equals, "partial\n")
	c.Assert(res.Stderr, qt.Equals, "broken\n")
}

func TestMkdirIsIdempotent(t *testing.T) {
	c := qt.New(t)
	keyPath, pub := sshtest.WriteKey(c, c.TempDir())
	s := connectTo(c, sshtest.Start(c, pub, sshtest.Options{}), keyPath, TransferSFTP)

	dir := filepath.Join(c.TempDir(), "jobs", "run1")
	for i := 0; i < 2; i++ {
		res, err := s.Run("mkdir -p " + dir)
		c.Assert(err, qt.IsNil)
		c.Assert(res.ExitCode, qt.Equals, 0)
	}
	info, err := os.Stat(dir)
	c.Assert(err, qt.IsNil)
	c.Assert(info.IsDir(), qt.IsTrue)
}

func TestSFTPUploadTruncates(t *testing.T) {
	c := qt.New(t)
	keyPath, pub := sshtest.WriteKey(c, c.TempDir())
	s := connectTo(c, sshtest.Start(c, pub, sshtest.Options{}), keyPath, TransferSFTP)

	remote := filepath.Join(c.TempDir(), "a.mx3")
	c.Assert(os.WriteFile(remote, []byte("old content that is longer"), 0644), qt.IsNil)

	w, err := s.OpenUpload(remote)
	c.Assert(err, qt.IsNil)
	_, err = io.WriteString(w, "Nx := 64")
	c.Assert(err, qt.IsNil)
	c.Assert(w.Close(), qt.IsNil)

	data, err := os.ReadFile(remote)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "Nx := 64")

	// The SFTP channel is reused for the next upload.
	w, err = s.OpenUpload(filepath.Join(filepath.Dir(remote), "b.mx3"))
	c.Assert(err, qt.IsNil)
	c.Assert(w.Close(), qt.IsNil)
}

func TestSFTPUploadIntoMissingDirectory(t *testing.T) {
	c := qt.New(t)
	keyPath, pub := sshtest.WriteKey(c, c.TempDir())
	s := connectTo(c, sshtest.Start(c, pub, sshtest.Options{}), keyPath, TransferSFTP)

	_, err := s.OpenUpload(filepath.Join(c.TempDir(), "missing", "a.mx3"))
	c.Assert(apperr.HasType(err, apperr.TransferError), qt.IsTrue)
}

func TestSCPUpload(t *testing.T) {
	c := qt.New(t)
	if _, err := exec.LookPath("scp"); err != nil {
		c.Skip("scp binary not available")
	}
	keyPath, pub := sshtest.WriteKey(c, c.TempDir())
	s := connectTo(c, sshtest.Start(c, pub, sshtest.Options{}), keyPath, TransferSCP)

	remote := filepath.Join(c.TempDir(), "amumax.sh")
	w, err := s.OpenUpload(remote)
	c.Assert(err, qt.IsNil)
	_, err = io.WriteString(w, "#!/bin/bash\n")
	c.Assert(err, qt.IsNil)
	c.Assert(w.Close(), qt.IsNil)

	data, err := os.ReadFile(remote)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "#!/bin/bash\n")
}

func TestRunAfterClose(t *testing.T) {
	c := qt.New(t)
	keyPath, pub := sshtest.WriteKey(c, c.TempDir())
	s := connectTo(c, sshtest.Start(c, pub, sshtest.Options{}), keyPath, TransferSFTP)

	c.Assert(s.Close(), qt.IsNil)
	c.Assert(s.Close(), qt.IsNil)
	_, err := s.Run("true")
	c.Assert(apperr.HasType(err, apperr.CommandError), qt.IsTrue)
}
