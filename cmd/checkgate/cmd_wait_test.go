package main

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertti/checkgate/pkg/poll"
)

type mockExecutor struct {
	argv  []string
	env   []string
	err   error
	calls int
}

func (m *mockExecutor) Exec(argv []string, env []string) error {
	m.calls++
	m.argv, m.env = argv, env
	return m.err
}

func stubExecutor(t *testing.T, err error) *mockExecutor {
	t.Helper()
	original := executor
	t.Cleanup(func() { executor = original })
	m := &mockExecutor{err: err}
	executor = m
	return m
}

func TestWaitCommand(t *testing.T) {
	tests := []struct {
		name        string
		bodies      []string
		extra       []string
		wantErr     bool
		wantFetches int32
		contains    []string
		wantOutput  string
	}{
		{
			name:        "passes once build finishes",
			bodies:      []string{runs(selfRun + "," + buildQueued), runs(selfRun + "," + buildRunning), runs(selfRun + "," + buildPassed)},
			wantFetches: 3,
			contains:    []string{"[OK] checks: octo/repo@abc123", "polls: 3", "all checks passed"},
			wantOutput:  "result=succeeded\nsubject=build\n",
		},
		{
			name:        "fails fast on a failed run",
			bodies:      []string{runs(selfRun + "," + lintFailed + "," + buildRunning)},
			wantErr:     true,
			wantFetches: 1,
			contains:    []string{"[FAIL]", `check run "lint" concluded with failure`},
			wantOutput:  "result=failed\nsubject=lint\n",
		},
		{
			name:        "cancelled run is an error",
			bodies:      []string{runs(selfRun + "," + docsCancelled)},
			wantErr:     true,
			wantFetches: 1,
			contains:    []string{`check run "docs" concluded with cancelled`},
		},
		{
			name:        "nothing to wait on",
			bodies:      []string{runs(selfRun)},
			wantFetches: 1,
			contains:    []string{"[SKIP]", "no checks besides this job"},
			wantOutput:  "result=no_work_accepted\nsubject=\n",
		},
		{
			name:        "nothing to wait on is rejected",
			bodies:      []string{runs(selfRun)},
			extra:       []string{"--fail-on-no-work"},
			wantErr:     true,
			wantFetches: 1,
			contains:    []string{"no checks for this reference"},
			wantOutput:  "result=no_work_rejected\nsubject=\n",
		},
		{
			name:        "workflow filter ignores other failures",
			bodies:      []string{runs(selfRun + "," + lintFailed + "," + buildRunning), runs(selfRun + "," + lintFailed + "," + buildPassed)},
			extra:       []string{"--workflow", "build"},
			wantFetches: 2,
			contains:    []string{"[OK]"},
		},
		{
			name:        "times out",
			bodies:      []string{runs(selfRun + "," + buildRunning)},
			extra:       []string{"--interval", "1ms", "--max-wait", "2ms"},
			wantErr:     true,
			wantFetches: 3,
			contains:    []string{"time exceeded max limit", `still waiting on "build"`},
			wantOutput:  "result=failed\nsubject=build\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outputPath := isolateEnv(t)
			server, calls := checkRunsServer(t, tt.bodies...)
			args := append([]string{"wait"}, targetArgs(server, "--interval", "0s")...)

			output, err := executeCommand(append(args, tt.extra...)...)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrGateFailed)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantFetches, calls.Load())
			for _, s := range tt.contains {
				assert.Contains(t, output, s)
			}
			if tt.wantOutput != "" {
				data, err := os.ReadFile(outputPath)
				require.NoError(t, err)
				assert.Equal(t, tt.wantOutput, string(data))
			}
		})
	}
}

func TestWaitCommand_MetricsFile(t *testing.T) {
	isolateEnv(t)
	server, _ := checkRunsServer(t, runs(selfRun+","+buildPassed))
	path := writeTempFile(t, "checkgate.prom", "")

	_, err := executeCommand(append([]string{"wait"}, targetArgs(server, "--metrics-file", path)...)...)

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `checkgate_polls_total{repository="octo/repo",verdict="success"} 1`)
	assert.Contains(t, string(data), `checkgate_outcome{outcome="succeeded",repository="octo/repo"} 1`)
}

func TestWaitCommand_ConfigFile(t *testing.T) {
	isolateEnv(t)
	server, calls := checkRunsServer(t, runs(selfRun+","+lintFailed+","+buildPassed))
	path := writeTempFile(t, ".checkgate.yml", "workflow-name: build\n")

	_, err := executeCommand(append([]string{"wait", "--config", path}, targetArgs(server)...)...)

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWaitCommand_ActionInputs(t *testing.T) {
	isolateEnv(t)
	t.Setenv("INPUT_NO-WORK-BREAK", "true")
	server, _ := checkRunsServer(t, runs(selfRun))

	output, err := executeCommand(append([]string{"wait"}, targetArgs(server)...)...)

	assert.ErrorIs(t, err, ErrGateFailed)
	assert.Contains(t, output, "no checks for this reference")
}

func TestWaitCommand_FetchErrors(t *testing.T) {
	isolateEnv(t)
	server, _ := checkRunsServer(t, runs(buildPassed))

	t.Run("unknown repository fails", func(t *testing.T) {
		output, err := executeCommand("wait", "--repo", "other/repo", "--ref", "abc123", "--token", "tok",
			"--api-url", server.URL, "--log-level", "error")
		assert.ErrorIs(t, err, ErrGateFailed)
		assert.Contains(t, output, "failed to list check runs")
	})

	t.Run("retries are reported", func(t *testing.T) {
		output, err := executeCommand("wait", "--repo", "other/repo", "--ref", "abc123", "--token", "tok",
			"--api-url", server.URL, "--log-level", "error", "--fetch-retries", "2", "--fetch-retry-delay", "0s")
		assert.ErrorIs(t, err, ErrGateFailed)
		assert.Contains(t, output, "after 3 attempts")
	})
}

func TestWaitCommand_InvalidFlags(t *testing.T) {
	isolateEnv(t)
	server, _ := checkRunsServer(t, runs(buildPassed))

	t.Run("negative max wait", func(t *testing.T) {
		_, err := executeCommand(append([]string{"wait"}, targetArgs(server, "--max-wait", "-1s")...)...)
		assert.ErrorContains(t, err, "max wait must be >= 0")
	})

	t.Run("bad log format", func(t *testing.T) {
		_, err := executeCommand(append([]string{"wait"}, targetArgs(server, "--log-format", "xml")...)...)
		assert.ErrorContains(t, err, "invalid --log-format")
	})

	t.Run("argument without dash", func(t *testing.T) {
		_, err := executeCommand(append([]string{"wait"}, targetArgs(server, "make")...)...)
		assert.ErrorContains(t, err, "put the command to run after --")
	})
}

// Exec tests come last: pflag keeps the dash position between parses.
func TestWaitCommand_Exec(t *testing.T) {
	isolateEnv(t)

	t.Run("execs after success", func(t *testing.T) {
		server, _ := checkRunsServer(t, runs(selfRun+","+buildPassed))
		m := stubExecutor(t, nil)

		_, err := executeCommand(append(append([]string{"wait"}, targetArgs(server)...), "--", "make", "deploy")...)

		require.NoError(t, err)
		require.Equal(t, 1, m.calls)
		assert.Equal(t, []string{"make", "deploy"}, m.argv)
		assert.Contains(t, m.env, "CHECKGATE_RESULT="+poll.OutcomeSucceeded.String())
		assert.Contains(t, m.env, "CHECKGATE_REF=abc123")
	})

	t.Run("does not exec on failure", func(t *testing.T) {
		server, _ := checkRunsServer(t, runs(selfRun+","+lintFailed))
		m := stubExecutor(t, nil)

		_, err := executeCommand(append(append([]string{"wait"}, targetArgs(server)...), "--", "make", "deploy")...)

		assert.ErrorIs(t, err, ErrGateFailed)
		assert.Zero(t, m.calls)
	})

	t.Run("exec error", func(t *testing.T) {
		server, _ := checkRunsServer(t, runs(selfRun+","+buildPassed))
		stubExecutor(t, errors.New("no such file"))

		_, err := executeCommand(append(append([]string{"wait"}, targetArgs(server)...), "--", "missing")...)

		assert.ErrorContains(t, err, "exec: no such file")
	})
}
