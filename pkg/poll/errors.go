package poll

import (
	"errors"
	"fmt"
	"time"

	"github.com/vertti/checkgate/pkg/checkrun"
)

// ErrNoWork is returned when the reference has no checks besides the
// invoking job and the gate was told to reject that.
var ErrNoWork = errors.New("no checks for this reference")

// ErrTimeout is matched by every TimeoutError.
var ErrTimeout = errors.New("time exceeded max limit")

// DependencyError reports a watched check run that ended badly.
type DependencyError struct {
	Name       string
	Conclusion checkrun.Conclusion
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("check run %q concluded with %s", e.Name, e.Conclusion)
}

// TimeoutError reports that the wait budget ran out.
type TimeoutError struct {
	MaxWait time.Duration
	Subject string // run still pending when time ran out
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s (%s)", ErrTimeout, formatSeconds(e.MaxWait))
	if e.Subject != "" {
		msg += fmt.Sprintf(", still waiting on %q", e.Subject)
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// TransportError wraps a failure of the snapshot fetch itself.
type TransportError struct {
	Err      error
	Attempts int
}

func (e *TransportError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("fetch check runs failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch check runs: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%ds", int64(d/time.Second))
}
