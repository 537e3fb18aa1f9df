// cmd/hpcq/commands/queue.go

package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hpcq/internal/apperr"
	"hpcq/internal/deploy"
	"hpcq/internal/ssh"
	"hpcq/internal/ui"
)

func newQueueCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "queue TEMPLATE INPUT_DIR [JOBS_ROOT]",
		Short: "Upload .mx3 files and submit each one with sbatch",
		Long: `Upload every .mx3 file found directly in INPUT_DIR to JOBS_ROOT/<basename of INPUT_DIR>
on the cluster, upload the batch TEMPLATE to JOBS_ROOT, and submit one job per file.

Each job writes its results and slurm.logs into a directory named after the job
file with the extension replaced (a.mx3 -> a.zarr). JOBS_ROOT defaults to jobs.root
from the config (~/jobs).`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, opts)
			if err != nil {
				return err
			}

			templatePath, inputDir := args[0], args[1]
			jobsRoot := env.cfg.Jobs.Root
			if len(args) == 3 {
				jobsRoot = args[2]
			}

			if info, err := os.Stat(templatePath); err != nil || info.IsDir() {
				if err == nil {
					err = errors.New("is a directory")
				}
				return apperr.Op(apperr.ConfigError, "template", fmt.Sprintf("submission template %s is not usable", templatePath), err)
			}

			// Validate the input directory before connecting; the mapping is
			// rebuilt against the resolved remote root inside deploy.Queue.
			mapping, err := deploy.MapPaths(inputDir, jobsRoot, env.cfg.Jobs.JobExt)
			if err != nil {
				return err
			}
			log.Infof("found %d .%s files in %s", len(mapping.Entries), env.cfg.Jobs.JobExt, mapping.SourceDir)

			session, err := ssh.Connect(cmd.Context(), env.profile, env.sshOpts)
			if err != nil {
				return err
			}
			defer session.Close()

			result, err := deploy.Queue(session, inputDir, templatePath, jobsRoot, env.cfg.Jobs)
			if result == nil {
				return err
			}
			if len(result.Submissions) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSubmissionTable(result.Submissions))
			}
			if err != nil {
				return fmt.Errorf("%d of %d jobs submitted: %w", len(result.Submissions), len(result.Deploy.JobFiles), err)
			}
			return nil
		},
	}
}
