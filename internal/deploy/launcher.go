// internal/deploy/launcher.go

package deploy

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"hpcq/internal/apperr"
	"hpcq/internal/config"
	"hpcq/internal/models"
	"hpcq/internal/utils"
)

var submittedRe = regexp.MustCompile(`Submitted batch job (\d+)`)

// Launcher submits uploaded job files to the scheduler, one sbatch call per file.
type Launcher struct {
	remote     Remote
	submit     string
	resultsExt string
	logFile    string
}

func NewLauncher(remote Remote, jobs config.JobsConfig) *Launcher {
	submit := jobs.Submit
	if submit == "" {
		submit = "sbatch"
	}
	return &Launcher{
		remote:     remote,
		submit:     submit,
		resultsExt: jobs.ResultsExt,
		logFile:    jobs.LogFile,
	}
}

// ResultsDir replaces the final extension of a job file with the results extension.
func ResultsDir(jobFile, resultsExt string) string {
	return strings.TrimSuffix(jobFile, path.Ext(jobFile)) + "." + resultsExt
}

// JobName is the job file's base name without its final extension.
func JobName(jobFile string) string {
	base := path.Base(jobFile)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Launch submits jobFiles in order against templateRef. It stops at the first
// failure and returns the submissions accepted before it.
func (l *Launcher) Launch(jobFiles []string, templateRef string) ([]models.Submission, error) {
	var submissions []models.Submission
	for _, jobFile := range jobFiles {
		sub, err := l.launchOne(jobFile, templateRef)
		if err != nil {
			return submissions, err
		}
		log.Infof("submitted %s as job %s", sub.JobName, displayID(sub.SlurmJobID))
		submissions = append(submissions, *sub)
	}
	return submissions, nil
}

func (l *Launcher) launchOne(jobFile, templateRef string) (*models.Submission, error) {
	sub := &models.Submission{
		JobName:    JobName(jobFile),
		JobFile:    jobFile,
		ResultsDir: ResultsDir(jobFile, l.resultsExt),
	}

	res, err := l.remote.Run("mkdir -p " + sub.ResultsDir)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, apperr.Op(apperr.SubmitError, "mkdir", fmt.Sprintf("couldn't create %s (exit %d): %s", sub.ResultsDir, res.ExitCode, strings.TrimSpace(res.Stderr)), nil)
	}

	cmd := fmt.Sprintf("%s --job-name=%s --output=%s %s %s",
		l.submit, sub.JobName, utils.JoinRemote(sub.ResultsDir, l.logFile), templateRef, jobFile)
	res, err = l.remote.Run(cmd)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, apperr.Op(apperr.SubmitError, "sbatch", fmt.Sprintf("%s rejected (exit %d): %s", sub.JobName, res.ExitCode, strings.TrimSpace(res.Stderr)), nil)
	}

	if m := submittedRe.FindStringSubmatch(res.Stdout); m != nil {
		sub.SlurmJobID = m[1]
	}
	return sub, nil
}

func displayID(id string) string {
	if id == "" {
		return "(unknown id)"
	}
	return id
}
