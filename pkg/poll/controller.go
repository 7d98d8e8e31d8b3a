// Package poll drives the wait loop: fetch a snapshot, aggregate it, then
// stop or sleep and try again until the wait budget runs out.
package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vertti/checkgate/pkg/checkrun"
)

// Fetcher returns the current check runs for a reference.
// Implementations must be safe to call repeatedly with the same arguments.
type Fetcher interface {
	Fetch(ctx context.Context, owner, repo, ref string) (checkrun.Snapshot, error)
}

// Observer is told about every aggregated poll and the final result.
type Observer interface {
	ObservePoll(verdict checkrun.Verdict)
	ObserveResult(r Result)
}

// Sleeper suspends for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Config is the immutable input of one gate run.
type Config struct {
	Owner        string
	Repo         string
	Ref          string
	Filter       checkrun.Filter
	Interval     time.Duration
	MaxWait      time.Duration
	FailOnNoWork bool

	// FetchRetries is how many extra attempts a failed fetch gets.
	// Zero makes the first transport error fatal.
	FetchRetries    int
	FetchRetryDelay time.Duration
}

// State is the mutable bookkeeping of a run.
type State struct {
	Elapsed time.Duration
	Verdict checkrun.Verdict
	Subject string
	Fetches int
	Sleeps  int
}

// Controller runs the poll loop for a single reference. It is not safe for
// concurrent use; create one per reference.
type Controller struct {
	cfg      Config
	fetcher  Fetcher
	sleep    Sleeper
	observer Observer
	state    State
}

// ZeroIntervalWarning is logged when polling without a delay. The budget
// never runs down in that case, so only a settled check ends the loop.
const ZeroIntervalWarning = "wait interval is 0: polling without delay and the max wait can never be reached"

// Option configures a Controller.
type Option func(*Controller)

// WithSleeper replaces the real timer, mostly for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *Controller) { c.sleep = s }
}

// WithObserver registers an observer for polls and the final result.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// New creates a Controller.
func New(cfg Config, fetcher Fetcher, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		fetcher:  fetcher,
		sleep:    sleepContext,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run polls until the checks settle, fail, or the budget is spent.
// The first fetch happens immediately.
func (c *Controller) Run(ctx context.Context) Result {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("owner", c.cfg.Owner).
		Str("repo", c.cfg.Repo).
		Str("ref", c.cfg.Ref).
		Msgf("Starting checks for: %s / %s / %s", c.cfg.Owner, c.cfg.Repo, c.cfg.Ref)

	if c.cfg.Interval == 0 && c.cfg.MaxWait > 0 {
		logger.Warn().
			Dur("max_wait", c.cfg.MaxWait).
			Msg(ZeroIntervalWarning)
	}

	for {
		snapshot, err := c.fetch(ctx)
		if err != nil {
			return c.finish(ctx, OutcomeFailed, err)
		}

		verdict, subject := checkrun.Aggregate(snapshot, c.cfg.Filter)
		c.state.Verdict = verdict
		if verdict != checkrun.VerdictSuccess {
			c.state.Subject = subject
		}
		c.observer.ObservePoll(verdict)

		logger.Debug().
			Int("total_count", snapshot.TotalCount).
			Stringer("verdict", verdict).
			Str("subject", subject).
			Msg("aggregated snapshot")

		switch verdict {
		case checkrun.VerdictNoWork:
			if c.cfg.FailOnNoWork {
				return c.finish(ctx, OutcomeNoWorkRejected, ErrNoWork)
			}
			return c.finish(ctx, OutcomeNoWorkAccepted, nil)
		case checkrun.VerdictSuccess:
			return c.finish(ctx, OutcomeSucceeded, nil)
		case checkrun.VerdictError:
			return c.finish(ctx, OutcomeFailed, dependencyError(snapshot, subject))
		}

		// Strictly greater: a budget that is hit exactly still gets the next fetch.
		// Checked before sleeping so a sleep is never spent without a fetch after it.
		if c.state.Elapsed+c.cfg.Interval > c.cfg.MaxWait {
			return c.finish(ctx, OutcomeFailed, &TimeoutError{MaxWait: c.cfg.MaxWait, Subject: c.state.Subject})
		}

		logger.Info().
			Str("subject", subject).
			Dur("elapsed", c.state.Elapsed).
			Msgf("Workflow %s still in progress, will check for %s...", subject, formatSeconds(c.cfg.Interval))

		if err := c.sleep(ctx, c.cfg.Interval); err != nil {
			return c.finish(ctx, OutcomeFailed, fmt.Errorf("interrupted while waiting: %w", err))
		}
		c.state.Sleeps++
		c.state.Elapsed += c.cfg.Interval
	}
}

// State returns a copy of the current bookkeeping.
func (c *Controller) State() State {
	return c.state
}

func (c *Controller) fetch(ctx context.Context) (checkrun.Snapshot, error) {
	attempts := c.cfg.FetchRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		c.state.Fetches++
		snapshot, err := c.fetcher.Fetch(ctx, c.cfg.Owner, c.cfg.Repo, c.cfg.Ref)
		if err == nil {
			return snapshot, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		zerolog.Ctx(ctx).Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Msg("fetch check runs failed, retrying")
		if err := c.sleep(ctx, c.cfg.FetchRetryDelay); err != nil {
			return checkrun.Snapshot{}, fmt.Errorf("interrupted while retrying: %w", err)
		}
	}
	return checkrun.Snapshot{}, &TransportError{Err: lastErr, Attempts: attempts}
}

func (c *Controller) finish(ctx context.Context, outcome Outcome, err error) Result {
	r := Result{Outcome: outcome, Err: err, State: c.state}
	c.observer.ObserveResult(r)

	logger := zerolog.Ctx(ctx)
	switch {
	case err != nil:
		logger.Error().Err(err).Stringer("outcome", outcome).Int("fetches", c.state.Fetches).Msg("gate failed")
	case outcome == OutcomeNoWorkAccepted:
		logger.Info().Msg("There aren't checks for this ref, nothing to wait for.")
	default:
		logger.Info().Int("fetches", c.state.Fetches).Msg("All checks were passed.")
	}
	return r
}

func dependencyError(s checkrun.Snapshot, subject string) error {
	for _, r := range s.Runs {
		if r.Name == subject && r.Conclusion.IsError() {
			return &DependencyError{Name: r.Name, Conclusion: r.Conclusion}
		}
	}
	return &DependencyError{Name: subject, Conclusion: checkrun.ConclusionFailure}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopObserver struct{}

func (nopObserver) ObservePoll(checkrun.Verdict) {}
func (nopObserver) ObserveResult(Result)         {}
