// cmd/hpcq/commands/root.go

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"hpcq/internal/apperr"
	"hpcq/internal/config"
	"hpcq/internal/logger"
	"hpcq/internal/models"
	"hpcq/internal/ssh"
)

var log = logger.Get("cli")

// GlobalOptions are the persistent flags shared by every subcommand.
type GlobalOptions struct {
	ConfigPath    string
	Host          string
	SSHConfigPath string
	Verbose       int
	Quiet         bool
}

// runtimeEnv is everything a subcommand needs once flags, config and logging are settled.
type runtimeEnv struct {
	cfg     config.Config
	profile models.ConnectionProfile
	sshOpts ssh.Options
}

func NewRootCmd() *cobra.Command {
	opts := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "hpcq",
		Short: "Queue mx3 simulations on a SLURM cluster and tunnel into running jobs",
		Long: `hpcq deploys local .mx3 input files to an HPC cluster over SSH, submits each one
as a SLURM batch job, and opens local port forwards to the dashboards of running jobs.

The cluster is reached through a host alias from your OpenSSH client config
(default alias "eagle"). HostName, User and IdentityFile must be set for it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "path to hpcq.yaml (default: ./hpcq.yaml, then ~/.config/hpcq/config.yaml)")
	flags.StringVar(&opts.Host, "host", "", "SSH host alias of the cluster login node")
	flags.StringVar(&opts.SSHConfigPath, "ssh-config", "", "OpenSSH client config to read the host alias from")
	flags.CountVarP(&opts.Verbose, "verbose", "v", "increase log verbosity (-v debug, -vv trace)")
	flags.BoolVarP(&opts.Quiet, "quiet", "q", false, "only log errors")

	rootCmd.AddCommand(newQueueCmd(opts))
	rootCmd.AddCommand(newTunnelCmd(opts))

	return rootCmd
}

// setup loads configuration, applies flag overrides, installs logging and
// resolves the connection profile.
func setup(cmd *cobra.Command, opts *GlobalOptions) (*runtimeEnv, error) {
	if err := config.LoadEnvFiles(); err != nil {
		return nil, err
	}

	manager := config.NewManager(opts.ConfigPath)
	cfg, err := manager.Load()
	if err != nil {
		return nil, err
	}
	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.SSHConfigPath != "" {
		cfg.SSHConfigPath = opts.SSHConfigPath
	}

	base, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, apperr.Op(apperr.ConfigError, "log level", cfg.Log.Level, err)
	}
	level := logger.LevelFromVerbosity(base, opts.Verbose, opts.Quiet)
	if err := logger.Setup(cmd.ErrOrStderr(), level); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	if from := manager.LoadedFrom(); from != "" {
		log.Debugf("loaded config from %s", from)
	}

	profile, err := config.LoadProfile(cfg.SSHConfigPath, cfg.Host)
	if err != nil {
		return nil, err
	}
	log.Debugf("using %s", profile)

	return &runtimeEnv{
		cfg:     cfg,
		profile: profile,
		sshOpts: ssh.Options{
			KnownHostsPath:        cfg.KnownHostsPath,
			InsecureIgnoreHostKey: cfg.InsecureIgnoreHostKey,
			DialTimeout:           cfg.DialTimeout,
			Transfer:              cfg.Transfer,
		},
	}, nil
}
