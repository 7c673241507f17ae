package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedCommand is returned for command lines that cannot be
	// turned into an argv.
	ErrMalformedCommand = errors.New("malformed command")

	// ErrInvalidErrorData is returned when error data reported by a scanner
	// is not a mapping or record.
	ErrInvalidErrorData = errors.New("error data must be a mapping")
)

// Command is an argv-style command line. No shell is involved when it runs.
type Command []string

const asciiWhitespace = " \t\n\v\f\r"

// ParseCommand splits a command line on ASCII whitespace. Quotes and
// escapes have no special meaning.
func ParseCommand(line string) Command {
	return strings.FieldsFunc(line, func(r rune) bool {
		return strings.ContainsRune(asciiWhitespace, r)
	})
}

// Validate checks that the command names an executable and that no argument
// contains a NUL byte.
func (c Command) Validate() error {
	if len(c) == 0 || c[0] == "" {
		return fmt.Errorf("%w: no executable given", ErrMalformedCommand)
	}
	for i, arg := range c {
		if strings.ContainsRune(arg, 0) {
			return fmt.Errorf("%w: argument %d contains a NUL byte", ErrMalformedCommand, i)
		}
	}
	return nil
}

func (c Command) String() string {
	return strings.Join(c, " ")
}

// ProcessResult is the complete outcome of a process that ran to exit.
type ProcessResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitStatus int    `json:"exit_status"`
}

func (r ProcessResult) Success() bool {
	return r.ExitStatus == 0
}

// ExecOptions tune a single Execute call. The zero value runs the command in
// the current directory with the ambient environment and no input.
type ExecOptions struct {
	// Env is merged over the ambient environment of the child only.
	Env map[string]string
	// Stdin is piped to the child. Empty means no input.
	Stdin string
	// Dir is the working directory of the child.
	Dir string
}

// ProcessRunner runs one external command to completion.
type ProcessRunner interface {
	Execute(ctx context.Context, command Command, opts ExecOptions) (ProcessResult, error)
}

// InvocationError means the process could not be started at all.
type InvocationError struct {
	Command Command
	Err     error
}

func (e *InvocationError) Error() string {
	name := ""
	if len(e.Command) > 0 {
		name = e.Command[0]
	}
	return fmt.Sprintf("failed to start %q: %v", name, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
