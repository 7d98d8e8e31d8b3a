// Package gatefile finds and parses the optional .checkgate.yml file.
package gatefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Names are the file names searched for, in order.
var Names = []string{".checkgate.yml", ".checkgate.yaml"}

// ErrNotFound is returned by FindFile when no file exists up to the
// repository root or the home directory.
var ErrNotFound = errors.New(".checkgate.yml file not found")

// File is the on-disk configuration. Unset fields leave the defaults alone.
type File struct {
	Repository   string `yaml:"repository"`
	APIURL       string `yaml:"api-url"`
	SelfJob      string `yaml:"self-job"`
	Workflow     string `yaml:"workflow-name"`
	WaitInterval *int   `yaml:"wait-interval"`
	WaitMax      *int   `yaml:"wait-max"`
	FailOnNoWork *bool  `yaml:"no-work-break"`
	UsePRHead    *bool  `yaml:"use-pr-head"`
	FetchRetries *int   `yaml:"fetch-retries"`
}

// FindFile returns explicitPath if set, otherwise walks up from startDir
// until a config file, a .git directory, the home directory or the root.
func FindFile(startDir, explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %w", err)
		}
		return explicitPath, nil
	}

	// Without a home directory the walk stops only at .git or the root.
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	currentDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		for _, name := range Names {
			path := filepath.Join(currentDir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		if homeDir != "" && currentDir == homeDir {
			break
		}
		if _, err := os.Stat(filepath.Join(currentDir, ".git")); err == nil {
			break
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return "", ErrNotFound
}

// ParseFile reads and strictly decodes path. Unknown keys are an error.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // intentional: reading the config file
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a config document. An empty document yields an empty File.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &f, nil
}
