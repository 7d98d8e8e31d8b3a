// Package testutil holds test doubles shared across packages.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vertti/checkgate/pkg/checkrun"
)

// FetchCall records the arguments of one Fetch.
type FetchCall struct {
	Owner, Repo, Ref string
}

// MockFetcher is a test double for poll.Fetcher.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, owner, repo, ref string) (checkrun.Snapshot, error)

	mu    sync.Mutex
	calls []FetchCall
}

func (m *MockFetcher) Fetch(ctx context.Context, owner, repo, ref string) (checkrun.Snapshot, error) {
	m.mu.Lock()
	m.calls = append(m.calls, FetchCall{Owner: owner, Repo: repo, Ref: ref})
	m.mu.Unlock()
	return m.FetchFunc(ctx, owner, repo, ref)
}

// Calls returns every recorded Fetch.
func (m *MockFetcher) Calls() []FetchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FetchCall(nil), m.calls...)
}

// SequenceFetcher returns the snapshots in order and keeps repeating the last one.
func SequenceFetcher(snapshots ...checkrun.Snapshot) *MockFetcher {
	i := 0
	return &MockFetcher{
		FetchFunc: func(context.Context, string, string, string) (checkrun.Snapshot, error) {
			s := snapshots[i]
			if i < len(snapshots)-1 {
				i++
			}
			return s, nil
		},
	}
}

// Snapshot builds a snapshot whose TotalCount matches its runs.
func Snapshot(runs ...checkrun.Record) checkrun.Snapshot {
	return checkrun.Snapshot{TotalCount: len(runs), Runs: runs}
}

// Run builds a record from raw API strings.
func Run(name, status, conclusion string) checkrun.Record {
	return checkrun.NewRecord(name, status, conclusion)
}

// RecordingSleeper records requested sleeps without blocking.
type RecordingSleeper struct {
	Durations []time.Duration
	Err       error // returned from every Sleep when set
}

func (s *RecordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.Durations = append(s.Durations, d)
	return s.Err
}

// MockEnvGetter serves environment lookups from a map.
type MockEnvGetter struct {
	Vars map[string]string
}

func (m *MockEnvGetter) LookupEnv(key string) (string, bool) {
	v, ok := m.Vars[key]
	return v, ok
}

// Ptr returns a pointer to the value (useful for optional fields in tests).
func Ptr[T any](v T) *T {
	return &v
}

// ContainsDetail checks if any detail string contains the given substring.
func ContainsDetail(details []string, substr string) bool {
	for _, d := range details {
		if strings.Contains(d, substr) {
			return true
		}
	}
	return false
}
