// internal/ssh/connect.go

package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"hpcq/internal/apperr"
	"hpcq/internal/logger"
	"hpcq/internal/models"
	"hpcq/internal/utils"
)

var log = logger.Get("ssh")

// Options tune how Connect reaches and verifies the cluster.
type Options struct {
	KnownHostsPath        string
	InsecureIgnoreHostKey bool
	// DialTimeout bounds only the TCP connect. Zero means no timeout.
	DialTimeout time.Duration
	// Transfer selects the upload backend: TransferSFTP (default) or TransferSCP.
	Transfer string
}

// Connect opens and authenticates one SSH transport to the profile's address.
// Nothing touches the network until the key file has been found and parsed.
func Connect(ctx context.Context, profile models.ConnectionProfile, opts Options) (*Session, error) {
	signer, err := loadSigner(profile.KeyPath)
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := hostKeyCallback(opts)
	if err != nil {
		return nil, err
	}

	host, port, err := net.SplitHostPort(profile.Address)
	if err != nil {
		return nil, apperr.Op(apperr.ConnectError, "resolve", fmt.Sprintf("invalid address %q", profile.Address),
			fmt.Errorf("%w: %v", apperr.ErrResolve, err))
	}
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil || len(addrs) == 0 {
		return nil, apperr.Op(apperr.ConnectError, "resolve", fmt.Sprintf("couldn't resolve %s", host),
			fmt.Errorf("%w: %v", apperr.ErrResolve, err))
	}

	target := net.JoinHostPort(addrs[0], port)
	log.Debugf("dialing %s (%s) as %s", profile.Address, target, profile.User)

	dialer := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, apperr.Op(apperr.ConnectError, "dial", fmt.Sprintf("couldn't reach %s", profile.Address),
			fmt.Errorf("%w: %v", apperr.ErrDial, err))
	}

	config := &ssh.ClientConfig{
		User:            profile.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, profile.Address, config)
	if err != nil {
		conn.Close()
		sentinel := apperr.ErrHandshake
		if strings.Contains(err.Error(), "unable to authenticate") {
			sentinel = apperr.ErrAuthRejected
		}
		return nil, apperr.Op(apperr.ConnectError, "handshake", fmt.Sprintf("failed to establish session with %s", profile.Address),
			fmt.Errorf("%w: %v", sentinel, err))
	}

	log.Infof("connected to %s", profile)
	return newSession(profile, ssh.NewClient(c, chans, reqs), opts.Transfer), nil
}

func loadSigner(keyPath string) (ssh.Signer, error) {
	if _, err := os.Stat(keyPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.Op(apperr.ConnectError, "key", keyPath, apperr.ErrKeyFileMissing)
		}
		return nil, apperr.Op(apperr.ConnectError, "key", fmt.Sprintf("failed to stat %s", keyPath), err)
	}

	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, apperr.Op(apperr.ConnectError, "key", fmt.Sprintf("failed to read %s", keyPath), err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		var passErr *ssh.PassphraseMissingError
		if errors.As(err, &passErr) {
			return nil, apperr.Op(apperr.ConnectError, "key", fmt.Sprintf("%s is passphrase-protected", keyPath), err)
		}
		return nil, apperr.Op(apperr.ConnectError, "key", fmt.Sprintf("failed to parse %s", keyPath), err)
	}
	return signer, nil
}

func hostKeyCallback(opts Options) (ssh.HostKeyCallback, error) {
	if opts.InsecureIgnoreHostKey {
		log.Warningf("host key verification disabled")
		return ssh.InsecureIgnoreHostKey(), nil
	}

	path, err := utils.ExpandHome(opts.KnownHostsPath)
	if err != nil {
		return nil, apperr.Op(apperr.ConnectError, "known_hosts", "failed to resolve home directory", err)
	}
	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, apperr.Op(apperr.ConnectError, "known_hosts", fmt.Sprintf("failed to load %s", path), err)
	}
	return callback, nil
}
