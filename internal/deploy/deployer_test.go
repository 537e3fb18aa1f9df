package deploy

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"hpcq/internal/apperr"
	"hpcq/internal/ssh"
)

func writeTemplate(c *qt.C) string {
	path := filepath.Join(c.TempDir(), "amumax.sh")
	c.Assert(os.WriteFile(path, []byte("#!/bin/bash\namumax $1\n"), 0755), qt.IsNil)
	return path
}

func TestDeployUploadsInOrder(t *testing.T) {
	c := qt.New(t)
	src := makeInputDir(c, map[string]string{"a.mx3": "A", "b.mx3": "B"})
	tpl := writeTemplate(c)
	m, err := MapPaths(src, "./jobs", "mx3")
	c.Assert(err, qt.IsNil)

	remote := newFakeRemote()
	res, err := NewDeployer(remote).Deploy(m, tpl, "./jobs")
	c.Assert(err, qt.IsNil)

	c.Assert(remote.commands, qt.DeepEquals, []string{"mkdir -p ./jobs/run1"})
	c.Assert(remote.order, qt.DeepEquals, []string{"./jobs/run1/a.mx3", "./jobs/run1/b.mx3", "./jobs/amumax.sh"})
	c.Assert(remote.uploads["./jobs/run1/b.mx3"], qt.Equals, "B")
	c.Assert(remote.uploads["./jobs/amumax.sh"], qt.Equals, "#!/bin/bash\namumax $1\n")
	c.Assert(res, qt.DeepEquals, &DeployResult{
		RemoteDir:    "./jobs/run1",
		JobFiles:     []string{"./jobs/run1/a.mx3", "./jobs/run1/b.mx3"},
		TemplatePath: "./jobs/amumax.sh",
	})
}

func TestDeployMkdirFailure(t *testing.T) {
	c := qt.New(t)
	src := makeInputDir(c, map[string]string{"a.mx3": "A"})
	m, err := MapPaths(src, "/readonly/jobs", "mx3")
	c.Assert(err, qt.IsNil)

	remote := newFakeRemote()
	remote.results["mkdir -p"] = &ssh.CommandResult{ExitCode: 1, Stderr: "mkdir: cannot create directory: Permission denied\n"}

	_, err = NewDeployer(remote).Deploy(m, writeTemplate(c), "/readonly/jobs")
	c.Assert(apperr.HasType(err, apperr.DeployError), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, `mkdir: couldn't create /readonly/jobs/run1 \(exit 1\): mkdir: cannot create directory: Permission denied`)
	c.Assert(remote.order, qt.HasLen, 0)
}

func TestDeployMkdirTransportFailure(t *testing.T) {
	c := qt.New(t)
	src := makeInputDir(c, map[string]string{"a.mx3": "A"})
	m, err := MapPaths(src, "./jobs", "mx3")
	c.Assert(err, qt.IsNil)

	remote := newFakeRemote()
	remote.runErr["mkdir"] = transportFailure()

	_, err = NewDeployer(remote).Deploy(m, writeTemplate(c), "./jobs")
	c.Assert(apperr.HasType(err, apperr.CommandError), qt.IsTrue)
	c.Assert(apperr.HasType(err, apperr.DeployError), qt.IsFalse)
}

func TestDeployStopsAtFirstUploadFailure(t *testing.T) {
	c := qt.New(t)
	src := makeInputDir(c, map[string]string{"a.mx3": "A", "b.mx3": "B", "c.mx3": "C"})
	m, err := MapPaths(src, "./jobs", "mx3")
	c.Assert(err, qt.IsNil)

	remote := newFakeRemote()
	remote.failWrite["./jobs/run1/b.mx3"] = true

	res, err := NewDeployer(remote).Deploy(m, writeTemplate(c), "./jobs")
	c.Assert(apperr.HasType(err, apperr.TransferError), qt.IsTrue)
	// b.mx3 is left behind partially written; c.mx3 is never attempted.
	c.Assert(remote.order, qt.DeepEquals, []string{"./jobs/run1/a.mx3", "./jobs/run1/b.mx3"})
	c.Assert(remote.uploads["./jobs/run1/b.mx3"], qt.Equals, "")
	c.Assert(res.JobFiles, qt.DeepEquals, []string{"./jobs/run1/a.mx3"})
	c.Assert(res.TemplatePath, qt.Equals, "")
}

func TestDeployMissingTemplate(t *testing.T) {
	c := qt.New(t)
	src := makeInputDir(c, map[string]string{"a.mx3": "A"})
	m, err := MapPaths(src, "./jobs", "mx3")
	c.Assert(err, qt.IsNil)

	remote := newFakeRemote()
	_, err = NewDeployer(remote).Deploy(m, filepath.Join(c.TempDir(), "missing.sh"), "./jobs")
	c.Assert(apperr.HasType(err, apperr.TransferError), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, `read: failed to read .*missing.sh: .*`)
}

func TestDeployOpenFailureIsTransferError(t *testing.T) {
	c := qt.New(t)
	src := makeInputDir(c, map[string]string{"a.mx3": "A"})
	m, err := MapPaths(src, "./jobs", "mx3")
	c.Assert(err, qt.IsNil)

	remote := newFakeRemote()
	remote.failOpen["./jobs/run1/a.mx3"] = true
	_, err = NewDeployer(remote).Deploy(m, writeTemplate(c), "./jobs")
	c.Assert(err, qt.ErrorMatches, `upload: .*a.mx3 -> ./jobs/run1/a.mx3: permission denied`)
}
