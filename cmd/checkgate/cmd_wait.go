package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vertti/checkgate/pkg/actionsctx"
	"github.com/vertti/checkgate/pkg/config"
	"github.com/vertti/checkgate/pkg/exec"
	"github.com/vertti/checkgate/pkg/output"
	"github.com/vertti/checkgate/pkg/poll"
)

// ErrGateFailed is returned when the gate does not open.
var ErrGateFailed = errors.New("gate failed")

var (
	waitTarget          targetFlags
	waitInterval        time.Duration
	waitMax             time.Duration
	waitFailOnNoWork    bool
	waitFetchRetries    int
	waitFetchRetryDelay time.Duration
	waitMetricsFile     string

	executor exec.Executor = &exec.RealExecutor{}
)

var waitCmd = &cobra.Command{
	Use:   "wait [flags] [-- command [args...]]",
	Short: "Block until the other check runs on a commit have finished",
	Long: `Poll the check runs of a commit until they all pass, one fails or the
wait budget is spent. The run of the invoking job is ignored.

When a command follows --, checkgate replaces itself with it once the gate opens.

Examples:
  checkgate wait
  checkgate wait --workflow build --max-wait 20m
  checkgate wait --interval 30s -- make deploy`,
	Args: waitArgs,
	RunE: runWait,
}

func init() {
	waitTarget.register(waitCmd.Flags())

	waitCmd.Flags().DurationVar(&waitInterval, "interval", config.DefaultInterval, "time between polls")
	waitCmd.Flags().DurationVar(&waitMax, "max-wait", config.DefaultMaxWait, "total time to wait before failing")
	waitCmd.Flags().BoolVar(&waitFailOnNoWork, "fail-on-no-work", false, "fail when there are no other check runs")
	waitCmd.Flags().IntVar(&waitFetchRetries, "fetch-retries", 0, "extra attempts when reading check runs fails")
	waitCmd.Flags().DurationVar(&waitFetchRetryDelay, "fetch-retry-delay", config.DefaultFetchRetryDelay, "delay between fetch attempts")
	waitCmd.Flags().StringVar(&waitMetricsFile, "metrics-file", "", "write Prometheus metrics to this file when done")

	rootCmd.AddCommand(waitCmd)
}

// waitArgs only accepts positional arguments after --.
func waitArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 && cmd.ArgsLenAtDash() != 0 {
		return fmt.Errorf("unexpected argument %q, put the command to run after --", args[0])
	}
	return nil
}

func runWait(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(ctx, cmd, &waitTarget, func(o *config.Overrides) {
		fs := cmd.Flags()
		if fs.Changed("interval") {
			o.Interval = &waitInterval
		}
		if fs.Changed("max-wait") {
			o.MaxWait = &waitMax
		}
		if fs.Changed("fail-on-no-work") {
			o.FailOnNoWork = &waitFailOnNoWork
		}
		if fs.Changed("fetch-retries") {
			o.FetchRetries = &waitFetchRetries
		}
		if fs.Changed("fetch-retry-delay") {
			o.FetchRetryDelay = &waitFetchRetryDelay
		}
	})
	if err != nil {
		return err
	}

	controller := poll.New(s.cfg.PollConfig(), s.fetcher, poll.WithObserver(s.recorder))
	result := controller.Run(s.ctx)
	output.PrintResult(cmd.OutOrStdout(), result.CheckResult(s.name()))

	logger := zerolog.Ctx(s.ctx)
	outputs := map[string]string{
		"result":  result.Outcome.String(),
		"subject": result.State.Subject,
	}
	if err := s.actx.WriteOutputs(&actionsctx.RealFileSystem{}, outputs); err != nil {
		logger.Warn().Err(err).Msg("could not write step outputs")
	}
	if waitMetricsFile != "" {
		if err := s.recorder.WriteToTextfile(waitMetricsFile); err != nil {
			logger.Warn().Err(err).Str("path", waitMetricsFile).Msg("could not write metrics")
		}
	}

	if !result.OK() {
		return ErrGateFailed
	}
	if len(args) == 0 {
		return nil
	}

	env := exec.Environ(map[string]string{
		"CHECKGATE_RESULT": result.Outcome.String(),
		"CHECKGATE_REF":    s.cfg.Ref,
	})
	if err := executor.Exec(args, env); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}
