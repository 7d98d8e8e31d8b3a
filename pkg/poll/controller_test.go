package poll

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vertti/checkgate/pkg/check"
	"github.com/vertti/checkgate/pkg/checkrun"
	"github.com/vertti/checkgate/pkg/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	self       = testutil.Run("wait", "in_progress", "")
	onlySelf   = testutil.Snapshot(self)
	allPassed  = testutil.Snapshot(self, testutil.Run("build", "completed", "success"), testutil.Run("test", "completed", "success"))
	stillGoing = testutil.Snapshot(self, testutil.Run("build", "in_progress", ""))
	lintFailed = testutil.Snapshot(self, testutil.Run("lint", "completed", "failure"), testutil.Run("build", "in_progress", ""))
)

func baseConfig() Config {
	return Config{
		Owner:    "octo",
		Repo:     "repo",
		Ref:      "3f2a1c",
		Filter:   checkrun.Filter{SelfJob: "wait"},
		Interval: 5 * time.Second,
		MaxWait:  60 * time.Second,
	}
}

func runWith(cfg Config, fetcher Fetcher, opts ...Option) (Result, *testutil.RecordingSleeper) {
	sleeper := &testutil.RecordingSleeper{}
	opts = append([]Option{WithSleeper(sleeper.Sleep)}, opts...)
	return New(cfg, fetcher, opts...).Run(context.Background()), sleeper
}

func TestRun_SucceedsOnFirstFetch(t *testing.T) {
	fetcher := testutil.SequenceFetcher(allPassed)

	result, sleeper := runWith(baseConfig(), fetcher)

	assert.Equal(t, OutcomeSucceeded, result.Outcome)
	require.NoError(t, result.Err)
	assert.True(t, result.OK())
	assert.Equal(t, 1, result.State.Fetches)
	assert.Empty(t, sleeper.Durations)
	assert.Equal(t, []testutil.FetchCall{{Owner: "octo", Repo: "repo", Ref: "3f2a1c"}}, fetcher.Calls())
}

func TestRun_TimeoutBoundary(t *testing.T) {
	tests := []struct {
		name        string
		interval    time.Duration
		maxWait     time.Duration
		wantFetches int
		wantElapsed time.Duration
	}{
		{"interval 5 max 12", 5 * time.Second, 12 * time.Second, 3, 10 * time.Second},
		{"elapsed equal to budget gets another fetch", 5 * time.Second, 10 * time.Second, 3, 10 * time.Second},
		{"budget just below second boundary", 5 * time.Second, 9 * time.Second, 2, 5 * time.Second},
		{"zero budget", 5 * time.Second, 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.Interval = tt.interval
			cfg.MaxWait = tt.maxWait
			fetcher := testutil.SequenceFetcher(stillGoing)

			result, sleeper := runWith(cfg, fetcher)

			assert.Equal(t, OutcomeFailed, result.Outcome)
			require.ErrorIs(t, result.Err, ErrTimeout)
			var timeoutErr *TimeoutError
			require.ErrorAs(t, result.Err, &timeoutErr)
			assert.Equal(t, tt.maxWait, timeoutErr.MaxWait)
			assert.Equal(t, "build", timeoutErr.Subject)
			assert.Len(t, fetcher.Calls(), tt.wantFetches)
			assert.Equal(t, tt.wantElapsed, result.State.Elapsed)
			// No sleep is spent once the next one would overrun the budget.
			assert.Len(t, sleeper.Durations, tt.wantFetches-1)
			assert.Equal(t, tt.wantFetches-1, result.State.Sleeps)
		})
	}
}

func TestRun_NoWork(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		result, sleeper := runWith(baseConfig(), testutil.SequenceFetcher(onlySelf))

		assert.Equal(t, OutcomeNoWorkAccepted, result.Outcome)
		assert.NoError(t, result.Err)
		assert.True(t, result.OK())
		assert.Empty(t, sleeper.Durations)
	})

	t.Run("rejected", func(t *testing.T) {
		cfg := baseConfig()
		cfg.FailOnNoWork = true

		result, _ := runWith(cfg, testutil.SequenceFetcher(onlySelf))

		assert.Equal(t, OutcomeNoWorkRejected, result.Outcome)
		require.ErrorIs(t, result.Err, ErrNoWork)
		assert.EqualError(t, result.Err, "no checks for this reference")
		assert.False(t, result.OK())
	})

	t.Run("evaluated on every fetch", func(t *testing.T) {
		fetcher := testutil.SequenceFetcher(stillGoing, onlySelf)

		result, _ := runWith(baseConfig(), fetcher)

		assert.Equal(t, OutcomeNoWorkAccepted, result.Outcome)
		assert.Len(t, fetcher.Calls(), 2)
	})
}

func TestRun_WaitsForBuildToFinish(t *testing.T) {
	cfg := baseConfig()
	cfg.Interval = 2 * time.Second
	fetcher := testutil.SequenceFetcher(
		testutil.Snapshot(self, testutil.Run("build", "queued", "")),
		testutil.Snapshot(self, testutil.Run("build", "in_progress", "")),
		testutil.Snapshot(self, testutil.Run("build", "completed", "success")),
	)

	result, sleeper := runWith(cfg, fetcher)

	assert.Equal(t, OutcomeSucceeded, result.Outcome)
	assert.Len(t, fetcher.Calls(), 3)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeper.Durations)
	assert.Equal(t, 2, result.State.Sleeps)
	assert.Equal(t, 4*time.Second, result.State.Elapsed)
	assert.Equal(t, "build", result.State.Subject, "subject keeps the last non-success run")
}

func TestRun_DependencyFailure(t *testing.T) {
	fetcher := testutil.SequenceFetcher(lintFailed)

	result, sleeper := runWith(baseConfig(), fetcher)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	var depErr *DependencyError
	require.ErrorAs(t, result.Err, &depErr)
	assert.Equal(t, "lint", depErr.Name)
	assert.Equal(t, checkrun.ConclusionFailure, depErr.Conclusion)
	assert.EqualError(t, result.Err, `check run "lint" concluded with failure`)
	assert.Len(t, fetcher.Calls(), 1, "an error is terminal on first sighting")
	assert.Empty(t, sleeper.Durations)
}

func TestRun_WorkflowFilterIgnoresOtherFailures(t *testing.T) {
	cfg := baseConfig()
	cfg.Filter.Workflow = "build"
	fetcher := testutil.SequenceFetcher(
		lintFailed,
		testutil.Snapshot(self, testutil.Run("lint", "completed", "failure"), testutil.Run("build", "completed", "success")),
	)

	result, sleeper := runWith(cfg, fetcher)

	assert.Equal(t, OutcomeSucceeded, result.Outcome)
	assert.Len(t, fetcher.Calls(), 2)
	assert.Len(t, sleeper.Durations, 1)
}

func TestRun_TransportError(t *testing.T) {
	apiErr := errors.New("401 Bad credentials")

	t.Run("fatal without retries", func(t *testing.T) {
		fetcher := &testutil.MockFetcher{FetchFunc: func(context.Context, string, string, string) (checkrun.Snapshot, error) {
			return checkrun.Snapshot{}, apiErr
		}}

		result, sleeper := runWith(baseConfig(), fetcher)

		assert.Equal(t, OutcomeFailed, result.Outcome)
		require.ErrorIs(t, result.Err, apiErr)
		var transportErr *TransportError
		require.ErrorAs(t, result.Err, &transportErr)
		assert.Equal(t, 1, transportErr.Attempts)
		assert.Len(t, fetcher.Calls(), 1)
		assert.Empty(t, sleeper.Durations)
	})

	t.Run("retried when configured", func(t *testing.T) {
		cfg := baseConfig()
		cfg.FetchRetries = 2
		cfg.FetchRetryDelay = 3 * time.Second
		calls := 0
		fetcher := &testutil.MockFetcher{FetchFunc: func(context.Context, string, string, string) (checkrun.Snapshot, error) {
			calls++
			if calls < 3 {
				return checkrun.Snapshot{}, apiErr
			}
			return allPassed, nil
		}}

		result, sleeper := runWith(cfg, fetcher)

		assert.Equal(t, OutcomeSucceeded, result.Outcome)
		assert.Equal(t, 3, result.State.Fetches)
		assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, sleeper.Durations)
		assert.Zero(t, result.State.Elapsed, "retry delays do not count toward the budget")
	})

	t.Run("retries exhausted", func(t *testing.T) {
		cfg := baseConfig()
		cfg.FetchRetries = 1
		fetcher := &testutil.MockFetcher{FetchFunc: func(context.Context, string, string, string) (checkrun.Snapshot, error) {
			return checkrun.Snapshot{}, apiErr
		}}

		result, _ := runWith(cfg, fetcher)

		var transportErr *TransportError
		require.ErrorAs(t, result.Err, &transportErr)
		assert.Equal(t, 2, transportErr.Attempts)
		assert.Contains(t, result.Err.Error(), "after 2 attempts")
	})
}

func TestRun_ContextCancelledWhileSleeping(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := baseConfig()
	cfg.Interval = time.Hour
	cfg.MaxWait = 2 * time.Hour
	result := New(cfg, testutil.SequenceFetcher(stillGoing)).Run(ctx)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	require.ErrorIs(t, result.Err, context.Canceled)
	assert.Equal(t, 1, result.State.Fetches)
	assert.Zero(t, result.State.Elapsed)
}

func TestRun_WarnsOnZeroInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		maxWait  time.Duration
		wantWarn bool
	}{
		{"zero interval with budget", 0, time.Minute, true},
		{"zero interval and zero budget", 0, 0, false},
		{"positive interval", 5 * time.Second, time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			ctx := zerolog.New(&logs).WithContext(context.Background())
			cfg := baseConfig()
			cfg.Interval = tt.interval
			cfg.MaxWait = tt.maxWait
			sleeper := &testutil.RecordingSleeper{}

			New(cfg, testutil.SequenceFetcher(allPassed), WithSleeper(sleeper.Sleep)).Run(ctx)

			if tt.wantWarn {
				assert.Contains(t, logs.String(), ZeroIntervalWarning)
				assert.Contains(t, logs.String(), `"level":"warn"`)
			} else {
				assert.NotContains(t, logs.String(), ZeroIntervalWarning)
			}
		})
	}
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))
	require.NoError(t, sleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

type recordingObserver struct {
	polls  []checkrun.Verdict
	result *Result
}

func (o *recordingObserver) ObservePoll(v checkrun.Verdict) { o.polls = append(o.polls, v) }
func (o *recordingObserver) ObserveResult(r Result)         { o.result = &r }

func TestRun_NotifiesObserver(t *testing.T) {
	observer := &recordingObserver{}

	result, _ := runWith(baseConfig(), testutil.SequenceFetcher(stillGoing, allPassed), WithObserver(observer))

	assert.Equal(t, []checkrun.Verdict{checkrun.VerdictInProgress, checkrun.VerdictSuccess}, observer.polls)
	require.NotNil(t, observer.result)
	assert.Equal(t, result, *observer.result)
}

func TestResult_CheckResult(t *testing.T) {
	tests := []struct {
		name       string
		result     Result
		wantStatus check.Status
		wantDetail string
	}{
		{"succeeded", Result{Outcome: OutcomeSucceeded, State: State{Fetches: 2, Elapsed: 10 * time.Second}}, check.StatusOK, "polls: 2, waited: 10s"},
		{"no work accepted", Result{Outcome: OutcomeNoWorkAccepted}, check.StatusSkip, "no checks besides this job"},
		{"no work rejected", Result{Outcome: OutcomeNoWorkRejected, Err: ErrNoWork}, check.StatusFail, "no checks for this reference"},
		{"timeout", Result{Outcome: OutcomeFailed, Err: &TimeoutError{MaxWait: 600 * time.Second}}, check.StatusFail, "time exceeded max limit (600s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.result.CheckResult("checks: octo/repo@3f2a1c")
			assert.Equal(t, "checks: octo/repo@3f2a1c", got.Name)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.True(t, testutil.ContainsDetail(got.Details, tt.wantDetail), "details %v missing %q", got.Details, tt.wantDetail)
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "succeeded", OutcomeSucceeded.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "no_work_accepted", OutcomeNoWorkAccepted.String())
	assert.Equal(t, "no_work_rejected", OutcomeNoWorkRejected.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
