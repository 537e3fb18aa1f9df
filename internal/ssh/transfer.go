// internal/ssh/transfer.go

package ssh

import (
	"bytes"
	"context"
	"fmt"
	"io"

	scp "github.com/bramvdbogaerde/go-scp"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

const scpFileMode = "0644"

// uploader is a transfer backend bound to one SSH client.
type uploader interface {
	Create(remotePath string) (io.WriteCloser, error)
	Close() error
}

func newUploader(client *ssh.Client, backend string) (uploader, error) {
	switch backend {
	case TransferSFTP:
		c, err := sftp.NewClient(client)
		if err != nil {
			return nil, fmt.Errorf("failed to create SFTP client: %w", err)
		}
		log.Debugf("opened SFTP subsystem")
		return &sftpUploader{client: c}, nil
	case TransferSCP:
		c, err := scp.NewClientBySSH(client)
		if err != nil {
			return nil, fmt.Errorf("failed to create SCP client: %w", err)
		}
		return &scpUploader{client: &c}, nil
	default:
		return nil, fmt.Errorf("unknown transfer backend %q", backend)
	}
}

type sftpUploader struct {
	client *sftp.Client
}

// Create opens the remote file with O_CREATE|O_TRUNC.
func (u *sftpUploader) Create(remotePath string) (io.WriteCloser, error) {
	return u.client.Create(remotePath)
}

func (u *sftpUploader) Close() error {
	return u.client.Close()
}

// scpUploader buffers each file and sends it with one scp sink command on Close.
type scpUploader struct {
	client *scp.Client
}

func (u *scpUploader) Create(remotePath string) (io.WriteCloser, error) {
	return &scpFile{client: u.client, path: remotePath}, nil
}

// Close is a no-op: go-scp opens a session per copy and the SSH client is
// closed by the owning Session.
func (u *scpUploader) Close() error {
	return nil
}

type scpFile struct {
	client *scp.Client
	path   string
	buf    bytes.Buffer
	closed bool
}

func (f *scpFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, fmt.Errorf("write to closed upload %s", f.path)
	}
	return f.buf.Write(p)
}

func (f *scpFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.client.CopyFile(context.Background(), bytes.NewReader(f.buf.Bytes()), f.path, scpFileMode)
}
