// internal/config/sshconfig.go

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/kevinburke/ssh_config"

	"hpcq/internal/apperr"
	"hpcq/internal/models"
	"hpcq/internal/utils"
)

const defaultSSHPort = "22"

// LoadProfile builds the connection profile for alias from an OpenSSH client config file.
func LoadProfile(sshConfigPath, alias string) (models.ConnectionProfile, error) {
	path, err := utils.ExpandHome(sshConfigPath)
	if err != nil {
		return models.ConnectionProfile{}, apperr.Op(apperr.ConfigError, "ssh config", "failed to resolve home directory", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return models.ConnectionProfile{}, apperr.Op(apperr.ConfigError, "ssh config", fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		return models.ConnectionProfile{}, apperr.Op(apperr.ConfigError, "ssh config", fmt.Sprintf("failed to parse %s", path), err)
	}

	return profileFromConfig(cfg, alias)
}

func profileFromConfig(cfg *ssh_config.Config, alias string) (models.ConnectionProfile, error) {
	missing := func(key string) error {
		return apperr.Op(apperr.ConfigError, "ssh config", fmt.Sprintf("host %q has no %s", alias, key), nil)
	}
	lookup := func(key string) (string, error) {
		v, err := cfg.Get(alias, key)
		if err != nil {
			return "", apperr.Op(apperr.ConfigError, "ssh config", fmt.Sprintf("failed to read %s for %q", key, alias), err)
		}
		return v, nil
	}

	hostName, err := lookup("HostName")
	if err != nil {
		return models.ConnectionProfile{}, err
	}
	if hostName == "" {
		return models.ConnectionProfile{}, missing("HostName")
	}

	port, err := lookup("Port")
	if err != nil {
		return models.ConnectionProfile{}, err
	}
	if port == "" {
		port = defaultSSHPort
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return models.ConnectionProfile{}, apperr.Op(apperr.ConfigError, "ssh config", fmt.Sprintf("host %q has invalid Port %q", alias, port), nil)
	}

	user, err := lookup("User")
	if err != nil {
		return models.ConnectionProfile{}, err
	}
	if user == "" {
		return models.ConnectionProfile{}, missing("User")
	}

	identities, err := cfg.GetAll(alias, "IdentityFile")
	if err != nil {
		return models.ConnectionProfile{}, apperr.Op(apperr.ConfigError, "ssh config", fmt.Sprintf("failed to read IdentityFile for %q", alias), err)
	}
	if len(identities) == 0 || identities[0] == "" {
		return models.ConnectionProfile{}, missing("IdentityFile")
	}
	keyPath, err := utils.ExpandHome(identities[0])
	if err != nil {
		return models.ConnectionProfile{}, apperr.Op(apperr.ConfigError, "ssh config", "failed to resolve home directory", err)
	}

	return models.ConnectionProfile{
		Host:    alias,
		Address: net.JoinHostPort(hostName, port),
		User:    user,
		KeyPath: keyPath,
	}, nil
}
