// internal/deploy/home.go

package deploy

import (
	"fmt"
	"strings"

	"hpcq/internal/apperr"
)

const homeCommand = `echo "$HOME"`

// ExpandRemoteHome replaces a leading "~" or "~/" in root with the login
// user's home directory on the cluster. SFTP, scp and sbatch --output all
// take paths literally, so a tilde must be gone before any remote path is built.
// Other roots are returned unchanged without touching the remote.
func ExpandRemoteHome(remote Remote, root string) (string, error) {
	if root != "~" && !strings.HasPrefix(root, "~/") {
		return root, nil
	}

	res, err := remote.Run(homeCommand)
	if err != nil {
		return "", err
	}
	home := strings.TrimSpace(res.Stdout)
	if res.ExitCode != 0 || !strings.HasPrefix(home, "/") {
		return "", apperr.Op(apperr.DeployError, "home", fmt.Sprintf("couldn't resolve remote home directory for %s (exit %d, got %q)", root, res.ExitCode, home), nil)
	}

	expanded := strings.TrimRight(home, "/") + strings.TrimPrefix(root, "~")
	if expanded == "" {
		expanded = "/"
	}
	log.Debugf("remote %s is %s", root, expanded)
	return expanded, nil
}
