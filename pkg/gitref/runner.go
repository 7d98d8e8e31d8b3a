package gitref

import (
	"bytes"
	"os/exec"
	"strings"
)

// GitRunner abstracts git command execution for testability.
type GitRunner interface {
	// HeadSHA returns the full commit id of HEAD.
	HeadSHA() (string, error)

	// RemoteURL returns the configured URL of the named remote.
	RemoteURL(remote string) (string, error)
}

// RealGitRunner executes actual git commands in Dir (current directory when empty).
type RealGitRunner struct {
	Dir string
}

func (r *RealGitRunner) HeadSHA() (string, error) {
	return r.output("rev-parse", "HEAD")
}

func (r *RealGitRunner) RemoteURL(remote string) (string, error) {
	return r.output("remote", "get-url", remote)
}

func (r *RealGitRunner) output(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}
