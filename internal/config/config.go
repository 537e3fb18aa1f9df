// internal/config/config.go

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hpcq/internal/apperr"
	"hpcq/internal/ssh"
)

const (
	DefaultConfigFileName = "hpcq.yaml"
	DefaultConfigDir      = ".config/hpcq"
	DefaultHost           = "eagle"
)

// Config holds the tool's own settings. It is read once and passed by value.
type Config struct {
	Host                  string        `yaml:"host"`
	SSHConfigPath         string        `yaml:"ssh_config"`
	KnownHostsPath        string        `yaml:"known_hosts"`
	InsecureIgnoreHostKey bool          `yaml:"insecure_ignore_host_key"`
	DialTimeout           time.Duration `yaml:"dial_timeout"`
	Transfer              string        `yaml:"transfer"`

	Jobs      JobsConfig      `yaml:"jobs"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Tunnel    TunnelConfig    `yaml:"tunnel"`
	UI        UIConfig        `yaml:"ui"`
	Log       LogConfig       `yaml:"log"`
}

type JobsConfig struct {
	Root       string `yaml:"root"`
	JobExt     string `yaml:"job_ext"`
	ResultsExt string `yaml:"results_ext"`
	LogFile    string `yaml:"log_file"`
	Submit     string `yaml:"submit"`
}

type DiscoveryConfig struct {
	Query        string `yaml:"query"`
	Delimiter    string `yaml:"delimiter"`
	NodeFilter   string `yaml:"node_filter"`
	MetadataPath string `yaml:"metadata_path"`
}

type TunnelConfig struct {
	SSHBinary string `yaml:"ssh_binary"`
	// ConfigFile is passed to the ssh binary with -F when set.
	ConfigFile  string `yaml:"ssh_config_file"`
	BindAddress string `yaml:"bind_address"`
	PortStart   uint16 `yaml:"port_start"`
	PortEnd     uint16 `yaml:"port_end"`
	LogLines    int    `yaml:"log_lines"`
}

type UIConfig struct {
	Refresh time.Duration `yaml:"refresh"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the settings used when no config file is found.
func Default() Config {
	return Config{
		Host:           DefaultHost,
		SSHConfigPath:  "~/.ssh/config",
		KnownHostsPath: "~/.ssh/known_hosts",
		DialTimeout:    15 * time.Second,
		Transfer:       ssh.TransferSFTP,
		Jobs: JobsConfig{
			Root:       "~/jobs",
			JobExt:     "mx3",
			ResultsExt: "zarr",
			LogFile:    "slurm.logs",
			Submit:     "sbatch",
		},
		Discovery: DiscoveryConfig{
			Query:        "sacct --format=JobName%22,Nodelist%8 --state=R -nPX",
			Delimiter:    "|",
			NodeFilter:   "gpu",
			MetadataPath: "{{{jobsRoot}}}/{{{name}}}.{{{resultsExt}}}/gui",
		},
		Tunnel: TunnelConfig{
			SSHBinary:   "ssh",
			BindAddress: "127.0.0.1",
			PortStart:   30000,
			PortEnd:     45000,
			LogLines:    50,
		},
		UI: UIConfig{
			Refresh: 250 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "INFO",
			File:  filepath.Join(os.TempDir(), "hpcq-tunnel.log"),
		},
	}
}

type Manager struct {
	configPath string
	loadedFrom string
}

// NewManager creates a config manager. An empty path means search the default locations.
func NewManager(configPath string) *Manager {
	return &Manager{configPath: configPath}
}

// LoadEnvFiles loads variables from .env files in the current directory, if present.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return apperr.Op(apperr.ConfigError, "env", fmt.Sprintf("failed to load %s", f), err)
		}
	}
	return nil
}

// GetEnv returns the variable's value or defaultValue when unset or empty.
func GetEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Candidates lists the config paths tried, in order.
func (m *Manager) Candidates() []string {
	path := m.configPath
	if path == "" {
		path = os.Getenv("HPCQ_CONFIG")
	}
	if path != "" {
		return []string{path}
	}
	paths := []string{DefaultConfigFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigDir, "config.yaml"))
	}
	return paths
}

// LoadedFrom returns the file the last Load read, or "" when defaults were used.
func (m *Manager) LoadedFrom() string {
	return m.loadedFrom
}

// Load reads the first existing candidate over the defaults and applies environment overrides.
// An explicitly named file that does not exist is an error.
func (m *Manager) Load() (Config, error) {
	cfg := Default()
	explicit := m.configPath != "" || os.Getenv("HPCQ_CONFIG") != ""
	m.loadedFrom = ""

	for _, path := range m.Candidates() {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && !explicit {
				continue
			}
			return cfg, apperr.Op(apperr.ConfigError, "read", fmt.Sprintf("failed to read config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, apperr.Op(apperr.ConfigError, "parse", fmt.Sprintf("failed to parse config file %s", path), err)
		}
		m.loadedFrom = path
		break
	}

	cfg.Host = GetEnv("HPCQ_HOST", cfg.Host)
	cfg.SSHConfigPath = GetEnv("HPCQ_SSH_CONFIG", cfg.SSHConfigPath)
	cfg.Log.Level = GetEnv("HPCQ_LOG_LEVEL", cfg.Log.Level)

	return cfg, cfg.Validate()
}

// Validate rejects settings the pipeline cannot work with.
func (c Config) Validate() error {
	invalid := func(msg string) error {
		return apperr.Op(apperr.ConfigError, "validate", msg, nil)
	}
	switch {
	case c.Host == "":
		return invalid("host alias is empty")
	case c.Jobs.JobExt == "" || c.Jobs.ResultsExt == "":
		return invalid("job and results extensions must be set")
	case c.Jobs.LogFile == "":
		return invalid("jobs.log_file is empty")
	case c.Tunnel.PortStart == 0 || c.Tunnel.PortStart > c.Tunnel.PortEnd:
		return invalid(fmt.Sprintf("invalid tunnel port range %d-%d", c.Tunnel.PortStart, c.Tunnel.PortEnd))
	case c.Transfer != ssh.TransferSFTP && c.Transfer != ssh.TransferSCP:
		return invalid(fmt.Sprintf("unknown transfer backend %q", c.Transfer))
	case c.Discovery.Delimiter == "":
		return invalid("discovery.delimiter is empty")
	case c.UI.Refresh <= 0:
		return invalid("ui.refresh must be positive")
	}
	return nil
}
