package checkrun

// Verdict is the aggregate classification of a snapshot.
type Verdict int

const (
	VerdictNoWork Verdict = iota
	VerdictInProgress
	VerdictSuccess
	VerdictError
)

func (v Verdict) String() string {
	switch v {
	case VerdictNoWork:
		return "no_work"
	case VerdictInProgress:
		return "in_progress"
	case VerdictSuccess:
		return "success"
	case VerdictError:
		return "error"
	default:
		return "unknown"
	}
}

// Filter selects which runs in a snapshot take part in aggregation.
type Filter struct {
	SelfJob  string // never wait on the invoking job itself
	Workflow string // when set, only runs with exactly this name count
}

// Excludes reports whether r is left out of aggregation.
func (f Filter) Excludes(r Record) bool {
	if f.SelfJob != "" && r.Name == f.SelfJob {
		return true
	}
	return f.Workflow != "" && r.Name != f.Workflow
}

// Aggregate reduces a snapshot to a verdict and the name of the run that
// caused it. The subject is empty for Success and NoWork.
//
// Runs are scanned in order. A pending run sets InProgress and later pending
// runs overwrite the subject. The first failed, cancelled or timed out run
// ends the scan with Error.
func Aggregate(s Snapshot, f Filter) (Verdict, string) {
	if s.SelfOnly() {
		return VerdictNoWork, ""
	}

	verdict, subject := VerdictSuccess, ""
	for _, r := range s.Runs {
		if f.Excludes(r) {
			continue
		}
		if r.Status.Pending() || waitsOnUnknown(r) {
			verdict, subject = VerdictInProgress, r.Name
		}
		if r.Conclusion.IsError() {
			verdict, subject = VerdictError, r.Name
			break
		}
	}
	return verdict, subject
}

func waitsOnUnknown(r Record) bool {
	return r.Status == StatusUnknown || r.Conclusion == ConclusionUnknown
}
