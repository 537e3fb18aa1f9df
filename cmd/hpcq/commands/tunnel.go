// cmd/hpcq/commands/tunnel.go

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"hpcq/internal/config"
	"hpcq/internal/jobs"
	"hpcq/internal/logger"
	"hpcq/internal/models"
	"hpcq/internal/ssh"
	"hpcq/internal/tunnel"
	"hpcq/internal/ui"
	"hpcq/internal/utils"
)

func newTunnelCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tunnel",
		Short: "Forward local ports to the dashboards of running jobs",
		Long: `Find running jobs on GPU nodes with sacct, read the node:port each job published
in its results directory, and start one "ssh -N -T -L" forward per job.

A live table of the tunnels is shown until you press q; all tunnels are closed on exit.
While the table is shown, logs go to log.file ($TMPDIR/hpcq-tunnel.log by default).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, opts)
			if err != nil {
				return err
			}

			found, err := discover(cmd, env)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No running jobs with a dashboard found.")
				return nil
			}

			tunnelCfg := env.cfg.Tunnel
			if tunnelCfg.ConfigFile == "" && env.cfg.SSHConfigPath != config.Default().SSHConfigPath {
				path, err := utils.ExpandHome(env.cfg.SSHConfigPath)
				if err != nil {
					return err
				}
				tunnelCfg.ConfigFile = path
			}
			manager := tunnel.NewManager(env.profile.Host, tunnelCfg)
			if _, err := manager.Open(found); err != nil {
				return err
			}

			if !ui.StdinIsTerminal() {
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTunnelTable(manager.Tunnels()))
				manager.CloseAll()
				return nil
			}

			restore, err := logger.RedirectToFile(env.cfg.Log.File)
			if err != nil {
				manager.CloseAll()
				return err
			}
			defer restore()

			return ui.NewDashboard(manager, env.profile.Host, env.cfg.Log.File, env.cfg.UI.Refresh).Run()
		},
	}
}

// discover uses one SSH session for the accounting query and metadata reads.
// The tunnels themselves go through separate ssh processes.
func discover(cmd *cobra.Command, env *runtimeEnv) ([]models.Job, error) {
	session, err := ssh.Connect(cmd.Context(), env.profile, env.sshOpts)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	d, err := jobs.NewDiscoverer(session, env.cfg.Discovery, env.cfg.Jobs)
	if err != nil {
		return nil, err
	}
	found, err := d.Discover()
	if err != nil {
		return nil, err
	}
	log.Infof("found %d running jobs", len(found))
	return found, nil
}
