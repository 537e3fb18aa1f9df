// internal/deploy/queue.go

package deploy

import (
	"hpcq/internal/config"
	"hpcq/internal/models"
)

// QueueResult is what a queue run left on the cluster.
type QueueResult struct {
	Deploy      *DeployResult
	Submissions []models.Submission
}

// Queue runs the whole pipeline over one session: resolve the jobs root, map
// srcDir under it, upload, then submit every job file against the uploaded
// template. On a submission failure the result still holds the accepted jobs.
func Queue(remote Remote, srcDir, templatePath, jobsRoot string, jobs config.JobsConfig) (*QueueResult, error) {
	root, err := ExpandRemoteHome(remote, jobsRoot)
	if err != nil {
		return nil, err
	}

	mapping, err := MapPaths(srcDir, root, jobs.JobExt)
	if err != nil {
		return nil, err
	}

	deployed, err := NewDeployer(remote).Deploy(mapping, templatePath, root)
	if err != nil {
		return nil, err
	}
	log.Infof("all %d files uploaded to %s", len(deployed.JobFiles), deployed.RemoteDir)

	result := &QueueResult{Deploy: deployed}
	result.Submissions, err = NewLauncher(remote, jobs).Launch(deployed.JobFiles, deployed.TemplatePath)
	return result, err
}
