// internal/deploy/deployer.go

package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hpcq/internal/apperr"
	"hpcq/internal/models"
	"hpcq/internal/utils"
)

// DeployResult describes what ended up on the cluster.
type DeployResult struct {
	RemoteDir    string
	JobFiles     []string
	TemplatePath string
}

type Deployer struct {
	remote Remote
}

func NewDeployer(remote Remote) *Deployer {
	return &Deployer{remote: remote}
}

// Deploy creates the remote directory, uploads every mapped file in order and then
// the submission template into jobsRoot. The first failure stops the run; files
// already uploaded are left in place.
func (d *Deployer) Deploy(mapping *models.PathMapping, templatePath, jobsRoot string) (*DeployResult, error) {
	if err := d.mkdir(mapping.RemoteDir); err != nil {
		return nil, err
	}

	result := &DeployResult{RemoteDir: mapping.RemoteDir}
	for _, e := range mapping.Entries {
		if err := d.upload(e.Local, e.Remote); err != nil {
			return result, err
		}
		log.Infof("uploaded %s", e.Remote)
		result.JobFiles = append(result.JobFiles, e.Remote)
	}

	remoteTemplate := utils.JoinRemote(jobsRoot, filepath.Base(templatePath))
	if err := d.upload(templatePath, remoteTemplate); err != nil {
		return result, err
	}
	log.Infof("uploaded template %s", remoteTemplate)
	result.TemplatePath = remoteTemplate

	return result, nil
}

func (d *Deployer) mkdir(dir string) error {
	res, err := d.remote.Run("mkdir -p " + dir)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return apperr.Op(apperr.DeployError, "mkdir", fmt.Sprintf("couldn't create %s (exit %d): %s", dir, res.ExitCode, strings.TrimSpace(res.Stderr)), nil)
	}
	return nil
}

func (d *Deployer) upload(local, remote string) error {
	data, err := os.ReadFile(local)
	if err != nil {
		return apperr.Op(apperr.TransferError, "read", fmt.Sprintf("failed to read %s", local), err)
	}

	w, err := d.remote.OpenUpload(remote)
	if err != nil {
		return transferError(local, remote, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return transferError(local, remote, err)
	}
	if err := w.Close(); err != nil {
		return transferError(local, remote, err)
	}
	return nil
}

func transferError(local, remote string, err error) error {
	if apperr.HasType(err, apperr.TransferError) {
		return err
	}
	return apperr.Op(apperr.TransferError, "upload", fmt.Sprintf("%s -> %s", local, remote), err)
}
