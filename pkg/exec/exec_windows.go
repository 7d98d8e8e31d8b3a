//go:build windows

package exec

import "errors"

// ErrExecNotSupported is returned on Windows, which cannot replace a running process.
var ErrExecNotSupported = errors.New("exec mode not supported on Windows; run the command as a separate step")

func (e *RealExecutor) Exec(argv []string, env []string) error {
	return ErrExecNotSupported
}
