package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vertti/checkgate/pkg/actionsctx"
	"github.com/vertti/checkgate/pkg/config"
	"github.com/vertti/checkgate/pkg/ghchecks"
	"github.com/vertti/checkgate/pkg/metrics"
)

// targetFlags select the commit to inspect and how to authenticate.
// wait and status share them.
type targetFlags struct {
	repo           string
	ref            string
	prHead         bool
	selfJob        string
	workflow       string
	token          string
	appID          int64
	installationID int64
	privateKeyFile string
	apiURL         string
}

func (f *targetFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.repo, "repo", "", "repository as owner/name (default: GITHUB_REPOSITORY or the origin remote)")
	fs.StringVar(&f.ref, "ref", "", "commit SHA, branch or tag (default: GITHUB_SHA or HEAD)")
	fs.BoolVar(&f.prHead, "pr-head", false, "default the ref to the pull request head from the event payload")
	fs.StringVar(&f.selfJob, "self-job", "", "check run to ignore (default: GITHUB_JOB)")
	fs.StringVar(&f.workflow, "workflow", "", "only wait on the check run with this name")

	fs.StringVar(&f.token, "token", "", "GitHub token (default: repo-token input or GITHUB_TOKEN)")
	fs.Int64Var(&f.appID, "app-id", 0, "GitHub App id")
	fs.Int64Var(&f.installationID, "installation-id", 0, "GitHub App installation id")
	fs.StringVar(&f.privateKeyFile, "private-key-file", "", "GitHub App private key (PEM)")
	fs.StringVar(&f.apiURL, "api-url", "", "API base URL (default: GITHUB_API_URL or "+ghchecks.DefaultAPIURL+")")
}

func (f *targetFlags) validate(fs *pflag.FlagSet) error {
	if err := requireAtMostOne(
		flagSet{"--token", fs.Changed("token")},
		flagSet{"--app-id", fs.Changed("app-id")},
	); err != nil {
		return err
	}
	return requireAllOrNone(
		flagSet{"--app-id", fs.Changed("app-id")},
		flagSet{"--installation-id", fs.Changed("installation-id")},
		flagSet{"--private-key-file", fs.Changed("private-key-file")},
	)
}

// overrides returns the flags the user actually passed.
func (f *targetFlags) overrides(fs *pflag.FlagSet) config.Overrides {
	o := config.Overrides{ConfigFile: configFile}
	if fs.Changed("repo") {
		o.Repository = &f.repo
	}
	if fs.Changed("ref") {
		o.Ref = &f.ref
	}
	if fs.Changed("pr-head") {
		o.UsePRHead = &f.prHead
	}
	if fs.Changed("self-job") {
		o.SelfJob = &f.selfJob
	}
	if fs.Changed("workflow") {
		o.Workflow = &f.workflow
	}
	if fs.Changed("token") {
		o.Token = &f.token
	}
	if fs.Changed("app-id") {
		o.AppID = &f.appID
	}
	if fs.Changed("installation-id") {
		o.InstallationID = &f.installationID
	}
	if fs.Changed("private-key-file") {
		o.PrivateKeyFile = &f.privateKeyFile
	}
	if fs.Changed("api-url") {
		o.APIURL = &f.apiURL
	}
	return o
}

// session is everything a command needs once configuration is resolved.
type session struct {
	ctx      context.Context
	cfg      config.Config
	actx     actionsctx.Context
	recorder *metrics.Recorder
	fetcher  *ghchecks.Fetcher
}

func newSession(ctx context.Context, cmd *cobra.Command, f *targetFlags, extend func(*config.Overrides)) (*session, error) {
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx)

	if err := f.validate(cmd.Flags()); err != nil {
		return nil, err
	}
	o := f.overrides(cmd.Flags())
	if extend != nil {
		extend(&o)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, actx, err := config.NewLoader(workDir).Load(o)
	if err != nil {
		return nil, err
	}

	client, err := ghchecks.NewClient(ctx, cfg.Credentials, cfg.APIURL)
	if err != nil {
		return nil, err
	}
	recorder := metrics.NewRecorder(cfg.Repository())

	zerolog.Ctx(ctx).Debug().
		Str("repository", cfg.Repository()).
		Str("ref", cfg.Ref).
		Str("self_job", cfg.SelfJob).
		Str("workflow", cfg.Workflow).
		Str("api_url", cfg.APIURL).
		Bool("app_auth", cfg.Credentials.IsApp()).
		Msg("resolved configuration")

	return &session{
		ctx:      ctx,
		cfg:      cfg,
		actx:     actx,
		recorder: recorder,
		fetcher:  ghchecks.NewFetcher(client, ghchecks.WithRecorder(recorder)),
	}, nil
}

func (s *session) name() string {
	return fmt.Sprintf("checks: %s@%s", s.cfg.Repository(), s.cfg.Ref)
}
