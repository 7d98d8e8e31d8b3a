package check

import "fmt"

// Fail marks the result failed with err and records its message as a detail.
func (r *Result) Fail(err error) Result {
	r.Status = StatusFail
	r.Err = err
	if err != nil {
		r.Details = append(r.Details, err.Error())
	}
	return *r
}

// Pass marks the result as passed with an optional summary detail.
func (r *Result) Pass(status Status, detail string) Result {
	r.Status = status
	if detail != "" {
		r.Details = append(r.Details, detail)
	}
	return *r
}

// AddDetailf appends a formatted detail line to the result.
func (r *Result) AddDetailf(format string, args ...any) *Result {
	r.Details = append(r.Details, fmt.Sprintf(format, args...))
	return r
}
