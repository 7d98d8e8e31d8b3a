// Package check holds the printable result of a gate run.
package check

// Status is the overall state shown for a gate.
type Status string

const (
	StatusOK   Status = "OK"
	StatusSkip Status = "SKIP" // nothing to wait on and that was allowed
	StatusFail Status = "FAIL"
)

// Result is what a gate reports once it stops.
type Result struct {
	Name    string   // e.g. "checks: octo/repo@3f2a1c"
	Status  Status   // OK, SKIP or FAIL
	Details []string // human-readable details
	Err     error    // terminal error for failures
}

// OK returns true unless the gate failed. A skipped gate lets the job continue.
func (r Result) OK() bool {
	return r.Status != StatusFail
}
