package deploy

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/SavagePirate/assetdeploy/internal/domain"
	"github.com/SavagePirate/assetdeploy/internal/logging"
)

// Executor installs a resolved artifact on the remote target and hands
// the operator an interactive session. The whole installation is one
// composite remote command, idempotent per run id: the download is
// skip-if-exists and extraction lands in a per-run-id directory, so
// re-deploying the same run only re-points the live symlink.
type Executor struct {
	profile    *domain.Profile
	authHeader string
	logger     *logging.Logger
}

func NewExecutor(profile *domain.Profile, authHeader string, logger *logging.Logger) *Executor {
	return &Executor{
		profile:    profile,
		authHeader: authHeader,
		logger:     logger,
	}
}

// Command builds the composite remote command for one run: directory
// setup, authenticated download, extraction, symlink switch, then an
// interactive shell for the operator.
func (e *Executor) Command(runID int64, url string) string {
	p := e.profile
	archive := fmt.Sprintf("%s/%s-%d.zip", p.ArtifactsDir, p.ArtifactName, runID)
	extractDir := fmt.Sprintf("%s/%s-%d", p.ArtifactsDir, p.ArtifactName, runID)

	return strings.Join([]string{
		fmt.Sprintf("mkdir -p %s", Quote(p.ArtifactsDir)),
		fmt.Sprintf("mkdir -p %s", Quote(p.DeployDir)),
		fmt.Sprintf("wget --header=%s -O %s --no-clobber %s", Quote(e.authHeader), Quote(archive), Quote(url)),
		fmt.Sprintf("unzip -q -o %s -d %s", Quote(archive), Quote(extractDir)),
		fmt.Sprintf("cat %s/commit.txt", extractDir),
		fmt.Sprintf("ln -f -s %s/%s %s/%s", extractDir, p.LinkName, p.DeployDir, p.LinkName),
		"/bin/bash",
	}, ";")
}

// Attach runs the composite command on the remote host inside a tmux
// session and hands the terminal to the operator. It returns the remote
// session's exit code, which becomes the tool's own.
func (e *Executor) Attach(runID int64, url string) (int, error) {
	e.logger.Printf("Deploying %s to %s ...\n", url, e.profile.Host)

	command := e.Command(runID, url)
	cmd := exec.Command("ssh", "-t", e.profile.Host,
		"tmux", "new-session", "-s", e.profile.SessionName,
		fmt.Sprintf("/bin/sh -c %s", Quote(command)))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
