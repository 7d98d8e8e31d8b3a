//go:build unix

package exec

import (
	"fmt"
	"os/exec"
	"syscall"
)

var execFunc = syscall.Exec

func (e *RealExecutor) Exec(argv []string, env []string) error {
	if len(argv) == 0 {
		return ErrNoCommand
	}
	binary, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("command %q: %w", argv[0], err)
	}
	// #nosec G204 -- the follow-up command is supplied by the caller on purpose
	return execFunc(binary, argv, env)
}
