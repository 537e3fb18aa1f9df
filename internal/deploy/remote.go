// internal/deploy/remote.go

package deploy

import (
	"io"

	"hpcq/internal/logger"
	"hpcq/internal/ssh"
)

var log = logger.Get("deploy")

// Remote is the part of *ssh.Session the pipeline needs.
type Remote interface {
	Run(command string) (*ssh.CommandResult, error)
	OpenUpload(remotePath string) (io.WriteCloser, error)
}
