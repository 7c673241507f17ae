package scanners

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/reaandrew/salus/core"
	"github.com/reaandrew/salus/utils"
	log "github.com/sirupsen/logrus"
)

// Base carries the context and helpers shared by every scanner. It has no
// ShouldRun or Run of its own, so it only becomes a core.Scanner when
// embedded in a type that supplies both. The context is fixed at
// construction and only readable afterwards.
type Base struct {
	repository *core.Repository
	report     core.ReportSink
	config     core.ScannerConfig
	runner     core.ProcessRunner
	name       string
}

// NewBase binds the context to self, the concrete scanner embedding it.
func NewBase(self any, sc core.ScannerContext, runner core.ProcessRunner) Base {
	config := sc.Config
	if config == nil {
		config = core.ScannerConfig{}
	}
	return Base{
		repository: sc.Repository,
		report:     sc.Report,
		config:     config,
		runner:     runner,
		name:       utils.GetStructName(self),
	}
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) Repository() *core.Repository {
	return b.repository
}

func (b *Base) Report() core.ReportSink {
	return b.report
}

// Config returns the scanner's configuration block, never nil.
func (b *Base) Config() core.ScannerConfig {
	return b.config
}

func (b *Base) logger() *log.Entry {
	return log.WithField("scanner", b.name)
}

// RunShell runs command, given as a whitespace separated string or a list
// of tokens, from the repository root unless opts names another directory.
func (b *Base) RunShell(ctx context.Context, command any, opts core.ExecOptions) (core.ProcessResult, error) {
	cmd, err := ToCommand(command)
	if err != nil {
		return core.ProcessResult{}, err
	}
	if opts.Dir == "" && b.repository != nil {
		opts.Dir = b.repository.Path
	}
	b.logger().Debugf("Running %s", cmd)
	return b.runner.Execute(ctx, cmd, opts)
}

// ToCommand normalises the accepted command forms into a core.Command.
func ToCommand(command any) (core.Command, error) {
	var cmd core.Command
	switch c := command.(type) {
	case string:
		cmd = core.ParseCommand(c)
	case []string:
		cmd = core.Command(c)
	case core.Command:
		cmd = c
	default:
		return nil, fmt.Errorf("%w: unsupported command type %T", core.ErrMalformedCommand, command)
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func (b *Base) ReportSuccess() {
	b.report.ScanPassed(b.name, true)
}

func (b *Base) ReportFailure() {
	b.report.ScanPassed(b.name, false)
}

func (b *Base) ReportInfo(infoType string, message any) {
	b.report.ScanInfo(b.name, infoType, message)
}

func (b *Base) ReportStdout(stdout string) {
	b.report.ScanStdout(b.name, stdout)
}

func (b *Base) ReportStderr(stderr string) {
	b.report.ScanStderr(b.name, stderr)
}

// ReportError records a structured error. data must be a map with string
// keys or a struct; anything else is rejected without touching the report.
func (b *Base) ReportError(data any) error {
	errorData, err := ToErrorData(data)
	if err != nil {
		return err
	}
	b.report.SalusError(b.name, errorData)
	return nil
}

// ToErrorData converts a mapping or record into the payload of a
// structured error.
func ToErrorData(data any) (map[string]any, error) {
	if data == nil {
		return nil, fmt.Errorf("%w, got nil", core.ErrInvalidErrorData)
	}
	if m, ok := data.(map[string]any); ok {
		return m, nil
	}

	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("%w, got nil %T", core.ErrInvalidErrorData, data)
		}
		v = v.Elem()
	}

	switch {
	case v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, nil
	case v.Kind() == reflect.Struct:
		raw, err := json.Marshal(v.Interface())
		if err != nil {
			return nil, fmt.Errorf("failed to encode error data: %w", err)
		}
		out := map[string]any{}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("failed to decode error data: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w, got %T", core.ErrInvalidErrorData, data)
	}
}

// ReportRecordedFailure reports whether this scanner already recorded a
// failing verdict.
func (b *Base) ReportRecordedFailure() bool {
	return b.report.HasFailure(b.name)
}

// RecordDependencyInfo files info as a dependency entry of dependencyFile.
// Keys of info win over dependency_file.
func (b *Base) RecordDependencyInfo(info map[string]any, dependencyFile string) {
	entry := make(map[string]any, len(info)+1)
	entry[core.DependencyFileKey] = dependencyFile
	for k, v := range info {
		entry[k] = v
	}
	b.ReportInfo(core.InfoTypeDependency, entry)
}
