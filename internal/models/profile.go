// internal/models/profile.go

package models

import "fmt"

// ConnectionProfile holds what is needed to reach and authenticate against the cluster.
type ConnectionProfile struct {
	Host    string `yaml:"host"`    // alias from the SSH client config
	Address string `yaml:"address"` // host:port
	User    string `yaml:"user"`
	KeyPath string `yaml:"key_path"`
}

func (p ConnectionProfile) String() string {
	return fmt.Sprintf("%s (%s@%s, key %s)", p.Host, p.User, p.Address, p.KeyPath)
}
