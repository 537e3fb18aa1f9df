// internal/utils/paths.go

package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ToSFTPPath converts a local path fragment to the forward-slash form used on the cluster
func ToSFTPPath(path string) string {
	if runtime.GOOS == "windows" {
		return strings.ReplaceAll(path, "\\", "/")
	}
	return path
}

// JoinRemote appends elements to a remote root without cleaning the root.
// "./jobs" stays "./jobs". A leading "~" is kept as is; callers that hand the
// result to SFTP or sbatch expand it first (deploy.ExpandRemoteHome).
func JoinRemote(root string, elems ...string) string {
	root = ToSFTPPath(root)
	absolute := strings.HasPrefix(root, "/")
	joined := strings.TrimRight(root, "/")
	for _, e := range elems {
		e = strings.Trim(ToSFTPPath(e), "/")
		if e == "" {
			continue
		}
		if joined == "" && !absolute {
			joined = e
			continue
		}
		joined += "/" + e
	}
	if joined == "" && absolute {
		return "/"
	}
	return joined
}

// ExpandHome resolves a leading "~" against the local home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
