package checkrun

import "strings"

// Status is the execution state of a check run.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	// StatusUnknown marks a raw status string we don't recognize.
	// The aggregator keeps waiting on it rather than counting it as done.
	StatusUnknown Status = "unknown"
)

// Conclusion is the final result of a completed check run.
type Conclusion string

const (
	ConclusionNone           Conclusion = ""
	ConclusionSuccess        Conclusion = "success"
	ConclusionFailure        Conclusion = "failure"
	ConclusionCancelled      Conclusion = "cancelled"
	ConclusionTimedOut       Conclusion = "timed_out"
	ConclusionNeutral        Conclusion = "neutral"
	ConclusionSkipped        Conclusion = "skipped"
	ConclusionActionRequired Conclusion = "action_required"
	ConclusionStale          Conclusion = "stale"
	ConclusionUnknown        Conclusion = "unknown"
)

// statusAliases maps raw API status strings to the closed Status set.
// GitHub reports requested, waiting and pending for runs that have not
// been picked up yet, which is queued as far as a gate is concerned.
var statusAliases = map[string]Status{
	"queued":      StatusQueued,
	"requested":   StatusQueued,
	"waiting":     StatusQueued,
	"pending":     StatusQueued,
	"in_progress": StatusInProgress,
	"completed":   StatusCompleted,
}

var knownConclusions = map[string]Conclusion{
	"success":         ConclusionSuccess,
	"failure":         ConclusionFailure,
	"cancelled":       ConclusionCancelled,
	"timed_out":       ConclusionTimedOut,
	"neutral":         ConclusionNeutral,
	"skipped":         ConclusionSkipped,
	"action_required": ConclusionActionRequired,
	"stale":           ConclusionStale,
}

// ParseStatus converts a raw status string. Unrecognized values return StatusUnknown.
func ParseStatus(raw string) Status {
	if s, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusUnknown
}

// ParseConclusion converts a raw conclusion string. An empty string means the
// run has no conclusion yet; anything else unrecognized returns ConclusionUnknown.
func ParseConclusion(raw string) Conclusion {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ConclusionNone
	}
	if c, ok := knownConclusions[raw]; ok {
		return c
	}
	return ConclusionUnknown
}

// IsError reports whether the conclusion fails the gate.
func (c Conclusion) IsError() bool {
	switch c {
	case ConclusionFailure, ConclusionCancelled, ConclusionTimedOut:
		return true
	default:
		return false
	}
}

// Pending reports whether the status means the run has not finished.
func (s Status) Pending() bool {
	return s == StatusQueued || s == StatusInProgress
}
