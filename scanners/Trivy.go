package scanners

import (
	"context"
	"fmt"

	"github.com/reaandrew/salus/core"
	"github.com/tidwall/gjson"
)

// Trivy runs a filesystem vulnerability scan. Any reported vulnerability
// fails the scan.
type Trivy struct {
	Base
}

func NewTrivy(sc core.ScannerContext, runner core.ProcessRunner) core.Scanner {
	s := &Trivy{}
	s.Base = NewBase(s, sc, runner)
	return s
}

func (s *Trivy) ShouldRun() (bool, error) {
	empty, err := s.Repository().IsEmpty()
	if err != nil {
		return false, err
	}
	return !empty, nil
}

func (s *Trivy) command() core.Command {
	cmd := core.Command{s.Config().String("binary", "trivy"), "fs", "--format", "json", "--quiet"}
	if severity := s.Config().String("severity", ""); severity != "" {
		cmd = append(cmd, "--severity", severity)
	}
	if s.Config().Bool("ignore_unfixed", false) {
		cmd = append(cmd, "--ignore-unfixed")
	}
	return append(cmd, ".")
}

func (s *Trivy) Run(ctx context.Context) error {
	result, err := s.RunShell(ctx, s.command(), core.ExecOptions{})
	if err != nil {
		return err
	}

	if !result.Success() || !gjson.Valid(result.Stdout) {
		s.ReportStderr(result.Stderr)
		return s.ReportError(map[string]any{
			"message":     "trivy did not produce a report",
			"exit_status": result.ExitStatus,
		})
	}

	var vulnerabilities []map[string]any
	gjson.Get(result.Stdout, "Results").ForEach(func(_, target gjson.Result) bool {
		targetName := target.Get("Target").String()
		target.Get("Vulnerabilities").ForEach(func(_, v gjson.Result) bool {
			vulnerabilities = append(vulnerabilities, map[string]any{
				"id":                v.Get("VulnerabilityID").String(),
				"package":           v.Get("PkgName").String(),
				"installed_version": v.Get("InstalledVersion").String(),
				"fixed_version":     v.Get("FixedVersion").String(),
				"severity":          v.Get("Severity").String(),
				"target":            targetName,
			})
			return true
		})
		return true
	})

	if len(vulnerabilities) == 0 {
		s.ReportSuccess()
		return nil
	}
	s.ReportStdout(result.Stdout)
	s.ReportInfo("vulnerabilities", vulnerabilities)
	s.ReportInfo("message", fmt.Sprintf("%d vulnerabilities found", len(vulnerabilities)))
	s.ReportFailure()
	return nil
}
