package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/reaandrew/salus/core"
	log "github.com/sirupsen/logrus"
)

// ShellRunner executes commands directly, without a shell, and captures
// everything they write.
type ShellRunner struct{}

func NewShellRunner() *ShellRunner {
	return &ShellRunner{}
}

// Execute runs command to completion. A non-zero exit status is a normal
// result; only a failure to start the process is returned as an error.
func (r *ShellRunner) Execute(ctx context.Context, command core.Command, opts core.ExecOptions) (core.ProcessResult, error) {
	if err := command.Validate(); err != nil {
		return core.ProcessResult{}, err
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), opts.Env)
	}
	if opts.Stdin != "" {
		cmd.Stdin = strings.NewReader(opts.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debugf("Executing %q in '%s'", []string(command), opts.Dir)

	err := cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.ProcessResult{}, fmt.Errorf("failed to complete %q: %w", command[0], ctxErr)
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return core.ProcessResult{}, &core.InvocationError{Command: command, Err: err}
		}
	}

	result := core.ProcessResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ExitStatus: cmd.ProcessState.ExitCode(),
	}
	log.Debugf("%s exited with status %d", command[0], result.ExitStatus)
	return result, nil
}

// mergeEnv appends the overrides in a stable order. exec keeps the last value
// of a duplicated key, so overrides win.
func mergeEnv(base []string, overrides map[string]string) []string {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(base)+len(keys))
	env = append(env, base...)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}
