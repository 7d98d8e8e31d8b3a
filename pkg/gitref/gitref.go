// Package gitref resolves the repository and commit from a local checkout,
// for running the gate outside GitHub Actions.
package gitref

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultRemote is the remote used to derive owner and repository.
const DefaultRemote = "origin"

// Head returns the commit checked out by r.
func Head(r GitRunner) (string, error) {
	sha, err := r.HeadSHA()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if sha == "" {
		return "", fmt.Errorf("failed to resolve HEAD: empty output")
	}
	return sha, nil
}

// Repository returns owner and name parsed from the URL of remote.
func Repository(r GitRunner, remote string) (owner, repo string, err error) {
	raw, err := r.RemoteURL(remote)
	if err != nil {
		return "", "", fmt.Errorf("failed to get remote %q: %w", remote, err)
	}
	return ParseRemoteURL(raw)
}

// ParseRemoteURL extracts owner and repository from the remote URL forms git
// accepts: https://host/owner/repo(.git), ssh://git@host/owner/repo(.git)
// and scp-like git@host:owner/repo(.git).
func ParseRemoteURL(raw string) (owner, repo string, err error) {
	raw = strings.TrimSpace(raw)

	var path string
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", fmt.Errorf("invalid remote URL %q: %w", raw, err)
		}
		path = u.Path
	} else if _, after, ok := strings.Cut(raw, ":"); ok && !strings.HasPrefix(raw, "/") {
		path = after
	} else {
		return "", "", fmt.Errorf("unsupported remote URL %q", raw)
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return "", "", fmt.Errorf("remote URL %q has no owner/repository path", raw)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}
