package scanners

import (
	"context"
	"fmt"

	"github.com/reaandrew/salus/core"
	"github.com/tidwall/gjson"
)

const gitleaksLeaksFound = 1

// Gitleaks looks for committed secrets in the working tree. Secrets
// themselves are never copied into the report.
type Gitleaks struct {
	Base
}

func NewGitleaks(sc core.ScannerContext, runner core.ProcessRunner) core.Scanner {
	s := &Gitleaks{}
	s.Base = NewBase(s, sc, runner)
	return s
}

func (s *Gitleaks) ShouldRun() (bool, error) {
	empty, err := s.Repository().IsEmpty()
	if err != nil {
		return false, err
	}
	return !empty, nil
}

func (s *Gitleaks) Run(ctx context.Context) error {
	cmd := core.Command{
		s.Config().String("binary", "gitleaks"), "detect", "--no-git",
		"--report-format", "json", "--report-path", "-", "--source", ".",
	}
	result, err := s.RunShell(ctx, cmd, core.ExecOptions{})
	if err != nil {
		return err
	}

	switch result.ExitStatus {
	case 0:
		s.ReportSuccess()
		return nil
	case gitleaksLeaksFound:
		if !gjson.Valid(result.Stdout) {
			break
		}
		var leaks []map[string]any
		gjson.Parse(result.Stdout).ForEach(func(_, leak gjson.Result) bool {
			leaks = append(leaks, map[string]any{
				"rule": leak.Get("RuleID").String(),
				"file": leak.Get("File").String(),
				"line": leak.Get("StartLine").Int(),
			})
			return true
		})
		s.ReportInfo("leaks", leaks)
		s.ReportInfo("message", fmt.Sprintf("%d leaks found", len(leaks)))
		s.ReportFailure()
		return nil
	}

	s.ReportStderr(result.Stderr)
	return s.ReportError(map[string]any{
		"message":     fmt.Sprintf("gitleaks exited with status %d", result.ExitStatus),
		"exit_status": result.ExitStatus,
	})
}
