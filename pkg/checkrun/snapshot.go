// Package checkrun models the check runs attached to a commit and reduces a
// snapshot of them to a single gate verdict.
package checkrun

// Record is one check run observed for a reference.
type Record struct {
	ID         int64
	Name       string
	Status     Status
	Conclusion Conclusion
	DetailsURL string
	App        string // slug of the app that created the run, e.g. "github-actions"
}

// NewRecord parses raw API strings into a Record. A non-empty conclusion
// implies the run is completed, whatever the raw status says.
func NewRecord(name, rawStatus, rawConclusion string) Record {
	r := Record{
		Name:       name,
		Status:     ParseStatus(rawStatus),
		Conclusion: ParseConclusion(rawConclusion),
	}
	if r.Conclusion != ConclusionNone {
		r.Status = StatusCompleted
	}
	return r
}

// Snapshot is every check run seen for one reference at one poll tick.
type Snapshot struct {
	Ref        string
	TotalCount int
	Runs       []Record
}

// SelfOnly reports whether the snapshot holds nothing but the invoking job.
func (s Snapshot) SelfOnly() bool {
	return s.TotalCount == 1
}
