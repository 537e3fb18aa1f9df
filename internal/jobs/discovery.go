// internal/jobs/discovery.go

package jobs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aymerick/raymond"

	"hpcq/internal/apperr"
	"hpcq/internal/config"
	"hpcq/internal/logger"
	"hpcq/internal/models"
	"hpcq/internal/ssh"
)

var log = logger.Get("jobs")

// Runner executes one remote command.
type Runner interface {
	Run(command string) (*ssh.CommandResult, error)
}

// Discoverer finds running jobs and the dashboard port each one published.
type Discoverer struct {
	runner    Runner
	discovery config.DiscoveryConfig
	jobs      config.JobsConfig
	metadata  *raymond.Template
}

func NewDiscoverer(runner Runner, discovery config.DiscoveryConfig, jobs config.JobsConfig) (*Discoverer, error) {
	tpl, err := raymond.Parse(discovery.MetadataPath)
	if err != nil {
		return nil, apperr.Op(apperr.ConfigError, "metadata template", fmt.Sprintf("failed to parse %q", discovery.MetadataPath), err)
	}
	return &Discoverer{
		runner:    runner,
		discovery: discovery,
		jobs:      jobs,
		metadata:  tpl,
	}, nil
}

// MetadataPath renders the remote path of a job's metadata file.
func (d *Discoverer) MetadataPath(name string) (string, error) {
	path, err := d.metadata.Exec(map[string]string{
		"jobsRoot":   d.jobs.Root,
		"name":       name,
		"resultsExt": d.jobs.ResultsExt,
	})
	if err != nil {
		return "", apperr.Op(apperr.ConfigError, "metadata template", fmt.Sprintf("failed to render for %s", name), err)
	}
	return path, nil
}

// Discover runs the accounting query and resolves every matching job's metadata.
// Jobs whose metadata is missing or malformed are skipped, not reported as errors.
func (d *Discoverer) Discover() ([]models.Job, error) {
	res, err := d.runner.Run(d.discovery.Query)
	if err != nil {
		return nil, apperr.Op(apperr.QueryError, "sacct", "accounting query failed", err)
	}
	if res.ExitCode != 0 {
		return nil, apperr.Op(apperr.QueryError, "sacct", fmt.Sprintf("accounting query exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)), nil)
	}

	var jobs []models.Job
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, d.discovery.Delimiter)
		if len(fields) < 2 {
			log.Debugf("skipping accounting line %q", line)
			continue
		}
		name := strings.TrimSpace(fields[0])
		node := strings.TrimSpace(fields[1])
		if name == "" || !strings.Contains(node, d.discovery.NodeFilter) {
			log.Tracef("ignoring %q on %q", name, node)
			continue
		}

		job, ok, err := d.resolve(name, node)
		if err != nil {
			return nil, err
		}
		if ok {
			jobs = append(jobs, job)
		}
	}

	log.Debugf("discovered %d running jobs", len(jobs))
	return jobs, nil
}

func (d *Discoverer) resolve(name, node string) (models.Job, bool, error) {
	path, err := d.MetadataPath(name)
	if err != nil {
		return models.Job{}, false, err
	}

	res, err := d.runner.Run("cat " + path)
	if err != nil {
		return models.Job{}, false, err
	}
	if res.ExitCode != 0 {
		log.Infof("%s has no readable metadata at %s, skipping", name, path)
		return models.Job{}, false, nil
	}

	metaNode, port, err := ParseMetadata(res.Stdout)
	if err != nil {
		log.Infof("skipping %s: %v", name, err)
		return models.Job{}, false, nil
	}
	if metaNode != node {
		log.Debugf("%s: metadata names node %s, accounting says %s", name, metaNode, node)
	}

	return models.Job{Name: name, ComputeNode: node, RemotePort: port}, true, nil
}

// ParseMetadata parses "<node>:<port>" as written by a running job.
func ParseMetadata(content string) (string, uint16, error) {
	content = strings.TrimSpace(content)
	node, portStr, ok := strings.Cut(content, ":")
	if !ok || node == "" {
		return "", 0, fmt.Errorf("malformed metadata %q", content)
	}
	port, err := strconv.ParseUint(strings.TrimSpace(portStr), 10, 16)
	if err != nil || port == 0 {
		return "", 0, fmt.Errorf("invalid port in metadata %q", content)
	}
	return node, uint16(port), nil
}
