// Package actionsctx reads the GitHub Actions runtime: workflow inputs,
// default environment variables, the event payload and step outputs.
package actionsctx

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// EnvGetter abstracts environment lookups for testing.
type EnvGetter interface {
	LookupEnv(key string) (string, bool)
}

// RealEnvGetter uses the process environment.
type RealEnvGetter struct{}

func (r *RealEnvGetter) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// FileSystem abstracts file access for testing.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	AppendFile(name string, data []byte) error
}

// RealFileSystem implements FileSystem using the real file system.
type RealFileSystem struct{}

// ReadFile reads the entire file contents.
func (r *RealFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name) //nolint:gosec // path comes from the runner environment
}

// AppendFile appends data, creating the file if needed.
func (r *RealFileSystem) AppendFile(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // GITHUB_OUTPUT is runner-owned
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Context is the subset of the Actions default environment we use.
type Context struct {
	InActions  bool   // GITHUB_ACTIONS=true
	Repository string // GITHUB_REPOSITORY, "owner/name"
	SHA        string // GITHUB_SHA
	Job        string // GITHUB_JOB
	APIURL     string // GITHUB_API_URL
	EventName  string // GITHUB_EVENT_NAME
	EventPath  string // GITHUB_EVENT_PATH
	OutputPath string // GITHUB_OUTPUT
}

// FromEnv reads the runner environment.
func FromEnv(env EnvGetter) Context {
	get := func(key string) string {
		v, _ := env.LookupEnv(key)
		return strings.TrimSpace(v)
	}
	return Context{
		InActions:  get("GITHUB_ACTIONS") == "true",
		Repository: get("GITHUB_REPOSITORY"),
		SHA:        get("GITHUB_SHA"),
		Job:        get("GITHUB_JOB"),
		APIURL:     get("GITHUB_API_URL"),
		EventName:  get("GITHUB_EVENT_NAME"),
		EventPath:  get("GITHUB_EVENT_PATH"),
		OutputPath: get("GITHUB_OUTPUT"),
	}
}

// Input returns a workflow input the way the runner exposes it:
// INPUT_<NAME> with spaces replaced by underscores, upper-cased and trimmed.
func Input(env EnvGetter, name string) string {
	key := "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
	v, _ := env.LookupEnv(key)
	return strings.TrimSpace(v)
}

// SplitRepository splits "owner/name".
func SplitRepository(full string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(full, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/name", full)
	}
	return owner, repo, nil
}

// PullRequestHeadSHA returns pull_request.head.sha from the event payload,
// or "" when the event carries no pull request.
func (c Context) PullRequestHeadSHA(fs FileSystem) (string, error) {
	if c.EventPath == "" {
		return "", nil
	}
	data, err := fs.ReadFile(c.EventPath)
	if err != nil {
		return "", fmt.Errorf("failed to read event payload: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("event payload %s is not valid JSON", c.EventPath)
	}
	return gjson.GetBytes(data, "pull_request.head.sha").String(), nil
}

// WriteOutputs appends step outputs to GITHUB_OUTPUT. It is a no-op outside Actions.
func (c Context) WriteOutputs(fs FileSystem, outputs map[string]string) error {
	if c.OutputPath == "" || len(outputs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, strings.ReplaceAll(outputs[k], "\n", " "))
	}
	if err := fs.AppendFile(c.OutputPath, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to write step outputs: %w", err)
	}
	return nil
}
