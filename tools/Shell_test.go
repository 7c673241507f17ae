package tools

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/reaandrew/salus/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func TestExecuteCapturesStreamsAndStatus(t *testing.T) {
	requireBinary(t, "sh")
	runner := NewShellRunner()

	result, err := runner.Execute(context.Background(),
		core.Command{"sh", "-c", "echo out; echo err 1>&2; exit 3"}, core.ExecOptions{})

	require.NoError(t, err)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
	assert.Equal(t, 3, result.ExitStatus)
	assert.False(t, result.Success())
}

func TestExecuteStringAndListFormsAgree(t *testing.T) {
	requireBinary(t, "echo")
	runner := NewShellRunner()

	fromString, err := runner.Execute(context.Background(), core.ParseCommand("echo hello   world"), core.ExecOptions{})
	require.NoError(t, err)
	fromList, err := runner.Execute(context.Background(), core.Command{"echo", "hello", "world"}, core.ExecOptions{})
	require.NoError(t, err)

	assert.Equal(t, fromList, fromString)
	assert.Equal(t, "hello world\n", fromString.Stdout)
}

func TestExecuteEnvOverridesDoNotLeak(t *testing.T) {
	requireBinary(t, "printenv")
	runner := NewShellRunner()
	t.Setenv("SALUS_SHELL_TEST", "parent")

	result, err := runner.Execute(context.Background(), core.Command{"printenv", "SALUS_SHELL_TEST"},
		core.ExecOptions{Env: map[string]string{"SALUS_SHELL_TEST": "child"}})

	require.NoError(t, err)
	assert.Equal(t, "child\n", result.Stdout)
	assert.Equal(t, "parent", os.Getenv("SALUS_SHELL_TEST"))

	result, err = runner.Execute(context.Background(), core.Command{"printenv", "SALUS_SHELL_TEST"}, core.ExecOptions{})
	require.NoError(t, err)
	assert.Equal(t, "parent\n", result.Stdout)
}

func TestExecutePipesStdin(t *testing.T) {
	requireBinary(t, "cat")
	runner := NewShellRunner()

	result, err := runner.Execute(context.Background(), core.Command{"cat"}, core.ExecOptions{Stdin: "line one\nline two\n"})

	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", result.Stdout)
	assert.Equal(t, 0, result.ExitStatus)
}

func TestExecuteEmptyStdinIsNoInput(t *testing.T) {
	requireBinary(t, "cat")
	runner := NewShellRunner()

	result, err := runner.Execute(context.Background(), core.Command{"cat"}, core.ExecOptions{})

	require.NoError(t, err)
	assert.Empty(t, result.Stdout)
}

func TestExecuteRunsInDirectory(t *testing.T) {
	requireBinary(t, "ls")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/marker", nil, 0644))

	result, err := NewShellRunner().Execute(context.Background(), core.Command{"ls"},
		core.ExecOptions{Dir: dir})

	require.NoError(t, err)
	assert.Equal(t, "marker\n", result.Stdout)
}

func TestExecuteMissingExecutable(t *testing.T) {
	_, err := NewShellRunner().Execute(context.Background(),
		core.Command{"salus-definitely-not-installed"}, core.ExecOptions{})

	var invocationErr *core.InvocationError
	require.True(t, errors.As(err, &invocationErr))
	assert.Equal(t, "salus-definitely-not-installed", invocationErr.Command[0])
}

func TestExecuteMalformedCommand(t *testing.T) {
	for _, command := range []core.Command{nil, core.ParseCommand("   "), {"echo", "nul\x00byte"}} {
		_, err := NewShellRunner().Execute(context.Background(), command, core.ExecOptions{})
		assert.True(t, errors.Is(err, core.ErrMalformedCommand))
	}
}

func TestExecuteCancelled(t *testing.T) {
	requireBinary(t, "sleep")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewShellRunner().Execute(ctx, core.Command{"sleep", "5"}, core.ExecOptions{})

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestMergeEnvAppendsOverridesLast(t *testing.T) {
	env := mergeEnv([]string{"A=1", "B=2"}, map[string]string{"B": "3", "C": "4"})
	assert.Equal(t, []string{"A=1", "B=2", "B=3", "C=4"}, env)
}
