package ghchecks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v71/github"
	"github.com/rs/zerolog"

	"github.com/vertti/checkgate/pkg/checkrun"
	"github.com/vertti/checkgate/pkg/metrics"
)

const defaultPerPage = 100

// CallRecorder receives one call per API page.
type CallRecorder interface {
	RecordSCMCall(api metrics.SCMAPI, operation metrics.SCMOperation, responseCode int, duration time.Duration, rateLimit *metrics.RateLimit)
}

// Fetcher lists the check runs of a reference. It implements poll.Fetcher.
type Fetcher struct {
	client   *github.Client
	recorder CallRecorder
	perPage  int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRecorder records every API page.
func WithRecorder(r CallRecorder) Option {
	return func(f *Fetcher) { f.recorder = r }
}

// WithPerPage sets the page size (GitHub caps it at 100).
func WithPerPage(n int) Option {
	return func(f *Fetcher) { f.perPage = n }
}

// NewFetcher creates a Fetcher around client.
func NewFetcher(client *github.Client, opts ...Option) *Fetcher {
	f := &Fetcher{client: client, perPage: defaultPerPage}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns every check run for ref, across all pages, in API order.
// TotalCount comes from the first page.
func (f *Fetcher) Fetch(ctx context.Context, owner, repo, ref string) (checkrun.Snapshot, error) {
	logger := zerolog.Ctx(ctx)
	snapshot := checkrun.Snapshot{Ref: ref}
	opts := &github.ListCheckRunsOptions{ListOptions: github.ListOptions{PerPage: f.perPage}}

	for page := 0; ; page++ {
		start := time.Now()
		result, response, err := f.client.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, opts)

		if response != nil {
			if f.recorder != nil {
				f.recorder.RecordSCMCall(metrics.SCMAPICheckRuns, metrics.SCMOperationList,
					response.StatusCode, time.Since(start), getRateLimitMetrics(response.Rate))
			}
			logger.Debug().
				Int("limit", response.Rate.Limit).
				Int("remaining", response.Rate.Remaining).
				Time("reset", response.Rate.Reset.Time).
				Int("page", page+1).
				Msg("github rate limit")
		}

		if err != nil {
			return checkrun.Snapshot{}, fmt.Errorf("failed to list check runs for %s/%s@%s: %w", owner, repo, ref, err)
		}

		if page == 0 {
			snapshot.TotalCount = result.GetTotal()
		}
		for _, cr := range result.CheckRuns {
			snapshot.Runs = append(snapshot.Runs, toRecord(cr))
		}

		if response == nil || response.NextPage == 0 {
			break
		}
		opts.Page = response.NextPage
	}

	return snapshot, nil
}

func toRecord(cr *github.CheckRun) checkrun.Record {
	r := checkrun.NewRecord(cr.GetName(), cr.GetStatus(), cr.GetConclusion())
	r.ID = cr.GetID()
	r.DetailsURL = cr.GetDetailsURL()
	r.App = cr.GetApp().GetSlug()
	return r
}

// getRateLimitMetrics converts the GitHub rate limit struct to one acceptable for the metrics package.
func getRateLimitMetrics(rate github.Rate) *metrics.RateLimit {
	return &metrics.RateLimit{
		Limit:          rate.Limit,
		Remaining:      rate.Remaining,
		ResetRemaining: time.Until(rate.Reset.Time),
	}
}
