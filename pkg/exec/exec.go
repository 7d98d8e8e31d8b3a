// Package exec hands the process over to a follow-up command once the gate opens.
package exec

import (
	"errors"
	"os"
	"sort"
	"strings"
)

// ErrNoCommand is returned when exec mode is requested without a command.
var ErrNoCommand = errors.New("no command given after --")

// Executor replaces the running process with argv.
type Executor interface {
	// Exec only returns on failure.
	Exec(argv []string, env []string) error
}

// RealExecutor uses the operating system's exec call where one exists.
type RealExecutor struct{}

// Environ returns the process environment with extra set on top.
// Keys in extra replace inherited values of the same name.
func Environ(extra map[string]string) []string {
	base := os.Environ()
	env := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, replaced := extra[key]; !replaced {
			env = append(env, kv)
		}
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
