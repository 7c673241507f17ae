package scanners

import (
	"context"

	"github.com/go-enry/go-enry/v2"
	"github.com/reaandrew/salus/core"
	"github.com/tidwall/gjson"
)

// Gosec inspects Go sources. Any issue fails the scan.
type Gosec struct {
	Base
}

func NewGosec(sc core.ScannerContext, runner core.ProcessRunner) core.Scanner {
	s := &Gosec{}
	s.Base = NewBase(s, sc, runner)
	return s
}

func (s *Gosec) ShouldRun() (bool, error) {
	return s.Repository().ContainsFile(func(rel string) bool {
		if enry.IsVendor(rel) {
			return false
		}
		language, _ := enry.GetLanguageByExtension(rel)
		return language == "Go"
	})
}

func (s *Gosec) Run(ctx context.Context) error {
	cmd := core.Command{s.Config().String("binary", "gosec"), "-fmt=json", "-quiet"}
	if exclude := s.Config().String("exclude", ""); exclude != "" {
		cmd = append(cmd, "-exclude="+exclude)
	}
	cmd = append(cmd, "./...")

	result, err := s.RunShell(ctx, cmd, core.ExecOptions{})
	if err != nil {
		return err
	}

	// gosec exits 1 when it finds issues, so only the output tells a scan
	// with findings from one that did not complete.
	if !gjson.Valid(result.Stdout) || !gjson.Get(result.Stdout, "Stats").Exists() {
		s.ReportStderr(result.Stderr)
		return s.ReportError(map[string]any{
			"message":     "gosec did not produce a report",
			"exit_status": result.ExitStatus,
		})
	}

	var issues []map[string]any
	gjson.Get(result.Stdout, "Issues").ForEach(func(_, issue gjson.Result) bool {
		issues = append(issues, map[string]any{
			"rule":       issue.Get("rule_id").String(),
			"severity":   issue.Get("severity").String(),
			"confidence": issue.Get("confidence").String(),
			"details":    issue.Get("details").String(),
			"file":       issue.Get("file").String(),
			"line":       issue.Get("line").String(),
		})
		return true
	})
	if errs := gjson.Get(result.Stdout, "Golang errors"); len(errs.Map()) > 0 {
		s.ReportInfo("golang_errors", errs.Value())
	}

	if len(issues) == 0 {
		s.ReportSuccess()
		return nil
	}
	s.ReportStdout(result.Stdout)
	s.ReportInfo("issues", issues)
	s.ReportFailure()
	return nil
}
