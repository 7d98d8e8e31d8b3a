// Package config resolves the settings of one gate run from defaults, the
// config file, workflow inputs and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vertti/checkgate/pkg/checkrun"
	"github.com/vertti/checkgate/pkg/ghchecks"
	"github.com/vertti/checkgate/pkg/poll"
)

const (
	DefaultInterval        = 10 * time.Second
	DefaultMaxWait         = 600 * time.Second
	DefaultFetchRetryDelay = 5 * time.Second
)

// Config is immutable once loaded.
type Config struct {
	Owner string
	Repo  string
	Ref   string

	SelfJob  string
	Workflow string

	Interval     time.Duration
	MaxWait      time.Duration
	FailOnNoWork bool
	UsePRHead    bool

	FetchRetries    int
	FetchRetryDelay time.Duration

	APIURL      string
	Credentials ghchecks.Credentials
}

// Repository returns "owner/name".
func (c Config) Repository() string {
	return c.Owner + "/" + c.Repo
}

// Validate reports every missing or invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Owner == "" || c.Repo == "" {
		errs = append(errs, errors.New("repository is required (owner/name)"))
	}
	if c.Ref == "" {
		errs = append(errs, errors.New("ref is required"))
	}
	if c.Interval < 0 {
		errs = append(errs, fmt.Errorf("wait interval must be >= 0, got %s", c.Interval))
	}
	if c.MaxWait < 0 {
		errs = append(errs, fmt.Errorf("max wait must be >= 0, got %s", c.MaxWait))
	}
	if c.FetchRetries < 0 {
		errs = append(errs, fmt.Errorf("fetch retries must be >= 0, got %d", c.FetchRetries))
	}
	if c.Credentials.Token == "" && !c.Credentials.IsApp() {
		errs = append(errs, ghchecks.ErrNoCredentials)
	}
	if c.Credentials.IsApp() && (c.Credentials.InstallationID == 0 || len(c.Credentials.PrivateKey) == 0) {
		errs = append(errs, errors.New("app auth needs an installation id and a private key"))
	}
	return errors.Join(errs...)
}

// PollConfig returns the loop settings.
func (c Config) PollConfig() poll.Config {
	return poll.Config{
		Owner:           c.Owner,
		Repo:            c.Repo,
		Ref:             c.Ref,
		Filter:          checkrun.Filter{SelfJob: c.SelfJob, Workflow: c.Workflow},
		Interval:        c.Interval,
		MaxWait:         c.MaxWait,
		FailOnNoWork:    c.FailOnNoWork,
		FetchRetries:    c.FetchRetries,
		FetchRetryDelay: c.FetchRetryDelay,
	}
}

// truthy lists the accepted spellings of true, compared case-insensitively.
var truthy = map[string]bool{
	"true": true,
	"yes":  true,
	"1":    true,
}

// ParseBool reports whether s is one of true, yes or 1 (any case).
// Everything else, including the empty string, is false.
func ParseBool(s string) bool {
	return truthy[strings.ToLower(strings.TrimSpace(s))]
}

// ParseSeconds parses a non-negative whole number of seconds.
func ParseSeconds(name, s string) (time.Duration, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a whole number of seconds", name, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: must be >= 0, got %d", name, n)
	}
	return time.Duration(n) * time.Second, nil
}
