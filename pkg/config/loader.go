package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/vertti/checkgate/pkg/actionsctx"
	"github.com/vertti/checkgate/pkg/gatefile"
	"github.com/vertti/checkgate/pkg/ghchecks"
	"github.com/vertti/checkgate/pkg/gitref"
)

// Workflow input names, matching the action's inputs.
const (
	InputWaitInterval = "wait-interval"
	InputWaitMax      = "wait-max"
	InputRef          = "ref"
	InputToken        = "repo-token"
	InputNoWorkBreak  = "no-work-break"
	InputWorkflow     = "workflow-name"
	InputUsePRHead    = "use-pr-head"
	InputFetchRetries = "fetch-retries"
)

// Overrides are values given on the command line. Nil fields were not given.
type Overrides struct {
	ConfigFile string

	Repository      *string
	Ref             *string
	SelfJob         *string
	Workflow        *string
	Interval        *time.Duration
	MaxWait         *time.Duration
	FailOnNoWork    *bool
	UsePRHead       *bool
	FetchRetries    *int
	FetchRetryDelay *time.Duration
	APIURL          *string
	Token           *string
	AppID           *int64
	InstallationID  *int64
	PrivateKeyFile  *string
}

// Loader resolves a Config. Each collaborator is injected for testing.
type Loader struct {
	Env     actionsctx.EnvGetter
	FS      actionsctx.FileSystem
	Git     gitref.GitRunner
	WorkDir string
}

// NewLoader returns a Loader wired to the real environment.
func NewLoader(workDir string) *Loader {
	return &Loader{
		Env:     &actionsctx.RealEnvGetter{},
		FS:      &actionsctx.RealFileSystem{},
		Git:     &gitref.RealGitRunner{Dir: workDir},
		WorkDir: workDir,
	}
}

// Load layers defaults, config file, workflow inputs and overrides, then
// fills the repository, ref and job from the runner or the local checkout.
func (l *Loader) Load(o Overrides) (Config, actionsctx.Context, error) {
	actx := actionsctx.FromEnv(l.Env)
	cfg := Config{
		Interval:        DefaultInterval,
		MaxWait:         DefaultMaxWait,
		FetchRetryDelay: DefaultFetchRetryDelay,
	}
	var repository, privateKeyFile string

	file, err := l.loadFile(o.ConfigFile)
	if err != nil {
		return Config{}, actx, err
	}
	if file != nil {
		applyFile(&cfg, &repository, file)
	}

	if err := l.applyInputs(&cfg); err != nil {
		return Config{}, actx, err
	}

	applyOverrides(&cfg, &repository, &privateKeyFile, o)

	if err := l.resolveRepository(&cfg, repository, actx); err != nil {
		return Config{}, actx, err
	}
	if err := l.resolveRef(&cfg, actx); err != nil {
		return Config{}, actx, err
	}
	if cfg.SelfJob == "" {
		cfg.SelfJob = actx.Job
	}
	if cfg.APIURL == "" {
		cfg.APIURL = actx.APIURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = ghchecks.DefaultAPIURL
	}
	if cfg.Credentials.Token == "" && !cfg.Credentials.IsApp() {
		if v, ok := l.Env.LookupEnv("GITHUB_TOKEN"); ok {
			cfg.Credentials.Token = v
		}
	}
	if privateKeyFile != "" {
		key, err := l.FS.ReadFile(privateKeyFile)
		if err != nil {
			return Config{}, actx, fmt.Errorf("failed to read private key: %w", err)
		}
		cfg.Credentials.PrivateKey = key
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, actx, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, actx, nil
}

func (l *Loader) loadFile(explicit string) (*gatefile.File, error) {
	path, err := gatefile.FindFile(l.WorkDir, explicit)
	if errors.Is(err, gatefile.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return gatefile.ParseFile(path)
}

func applyFile(cfg *Config, repository *string, f *gatefile.File) {
	if f.Repository != "" {
		*repository = f.Repository
	}
	if f.APIURL != "" {
		cfg.APIURL = f.APIURL
	}
	if f.SelfJob != "" {
		cfg.SelfJob = f.SelfJob
	}
	if f.Workflow != "" {
		cfg.Workflow = f.Workflow
	}
	if f.WaitInterval != nil {
		cfg.Interval = time.Duration(*f.WaitInterval) * time.Second
	}
	if f.WaitMax != nil {
		cfg.MaxWait = time.Duration(*f.WaitMax) * time.Second
	}
	if f.FailOnNoWork != nil {
		cfg.FailOnNoWork = *f.FailOnNoWork
	}
	if f.UsePRHead != nil {
		cfg.UsePRHead = *f.UsePRHead
	}
	if f.FetchRetries != nil {
		cfg.FetchRetries = *f.FetchRetries
	}
}

func (l *Loader) applyInputs(cfg *Config) error {
	input := func(name string) string { return actionsctx.Input(l.Env, name) }

	if v := input(InputWaitInterval); v != "" {
		d, err := ParseSeconds(InputWaitInterval, v)
		if err != nil {
			return err
		}
		cfg.Interval = d
	}
	if v := input(InputWaitMax); v != "" {
		d, err := ParseSeconds(InputWaitMax, v)
		if err != nil {
			return err
		}
		cfg.MaxWait = d
	}
	if v := input(InputFetchRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a whole number", InputFetchRetries, v)
		}
		cfg.FetchRetries = n
	}
	if v := input(InputRef); v != "" {
		cfg.Ref = v
	}
	if v := input(InputToken); v != "" {
		cfg.Credentials.Token = v
	}
	if v := input(InputWorkflow); v != "" {
		cfg.Workflow = v
	}
	if v := input(InputNoWorkBreak); v != "" {
		cfg.FailOnNoWork = ParseBool(v)
	}
	if v := input(InputUsePRHead); v != "" {
		cfg.UsePRHead = ParseBool(v)
	}
	return nil
}

func applyOverrides(cfg *Config, repository, privateKeyFile *string, o Overrides) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(repository, o.Repository)
	set(&cfg.Ref, o.Ref)
	set(&cfg.SelfJob, o.SelfJob)
	set(&cfg.Workflow, o.Workflow)
	set(&cfg.APIURL, o.APIURL)
	set(&cfg.Credentials.Token, o.Token)
	set(privateKeyFile, o.PrivateKeyFile)

	if o.Interval != nil {
		cfg.Interval = *o.Interval
	}
	if o.MaxWait != nil {
		cfg.MaxWait = *o.MaxWait
	}
	if o.FailOnNoWork != nil {
		cfg.FailOnNoWork = *o.FailOnNoWork
	}
	if o.UsePRHead != nil {
		cfg.UsePRHead = *o.UsePRHead
	}
	if o.FetchRetries != nil {
		cfg.FetchRetries = *o.FetchRetries
	}
	if o.FetchRetryDelay != nil {
		cfg.FetchRetryDelay = *o.FetchRetryDelay
	}
	if o.AppID != nil {
		cfg.Credentials.AppID = *o.AppID
	}
	if o.InstallationID != nil {
		cfg.Credentials.InstallationID = *o.InstallationID
	}
}

func (l *Loader) resolveRepository(cfg *Config, repository string, actx actionsctx.Context) error {
	if repository == "" {
		repository = actx.Repository
	}
	if repository != "" {
		owner, repo, err := actionsctx.SplitRepository(repository)
		if err != nil {
			return err
		}
		cfg.Owner, cfg.Repo = owner, repo
		return nil
	}

	owner, repo, err := gitref.Repository(l.Git, gitref.DefaultRemote)
	if err != nil {
		return fmt.Errorf("repository not set and not derivable from git: %w", err)
	}
	cfg.Owner, cfg.Repo = owner, repo
	return nil
}

func (l *Loader) resolveRef(cfg *Config, actx actionsctx.Context) error {
	if cfg.Ref != "" {
		return nil
	}
	if cfg.UsePRHead {
		sha, err := actx.PullRequestHeadSHA(l.FS)
		if err != nil {
			return err
		}
		if sha != "" {
			cfg.Ref = sha
			return nil
		}
	}
	if actx.SHA != "" {
		cfg.Ref = actx.SHA
		return nil
	}

	sha, err := gitref.Head(l.Git)
	if err != nil {
		return fmt.Errorf("ref not set and not derivable from git: %w", err)
	}
	cfg.Ref = sha
	return nil
}
