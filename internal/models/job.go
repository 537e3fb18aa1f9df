// internal/models/job.go

package models

import "fmt"

// FileMapping pairs a local job file with its destination on the cluster.
type FileMapping struct {
	Local  string
	Remote string
}

// PathMapping is the deterministic result of mapping a local input directory
// onto the remote jobs root.
type PathMapping struct {
	SourceDir string
	RemoteDir string
	Entries   []FileMapping
}

// RemotePaths returns the destination paths in mapping order.
func (m PathMapping) RemotePaths() []string {
	paths := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		paths[i] = e.Remote
	}
	return paths
}

// Job is a running scheduler job that exposes a dashboard on its compute node.
type Job struct {
	Name        string
	ComputeNode string
	RemotePort  uint16
}

// Target is the forward destination as seen from the login node.
func (j Job) Target() string {
	return fmt.Sprintf("%s:%d", j.ComputeNode, j.RemotePort)
}

// Submission records one accepted sbatch call.
type Submission struct {
	JobName    string
	JobFile    string
	ResultsDir string
	SlurmJobID string
}
