package poll

import (
	"fmt"

	"github.com/vertti/checkgate/pkg/check"
)

// Outcome is how a gate run ended.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailed
	OutcomeNoWorkAccepted
	OutcomeNoWorkRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeNoWorkAccepted:
		return "no_work_accepted"
	case OutcomeNoWorkRejected:
		return "no_work_rejected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the terminal report of Controller.Run.
type Result struct {
	Outcome Outcome
	Err     error // nil unless Failed or NoWorkRejected
	State   State
}

// OK reports whether the job may proceed.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSucceeded || r.Outcome == OutcomeNoWorkAccepted
}

// CheckResult converts r into a printable result named name.
func (r Result) CheckResult(name string) check.Result {
	result := check.Result{Name: name}
	result.AddDetailf("polls: %d, waited: %s", r.State.Fetches, formatSeconds(r.State.Elapsed))

	switch r.Outcome {
	case OutcomeSucceeded:
		return result.Pass(check.StatusOK, "all checks passed")
	case OutcomeNoWorkAccepted:
		return result.Pass(check.StatusSkip, "no checks besides this job")
	default:
		return result.Fail(r.Err)
	}
}
