package scanners

import (
	"context"
	"errors"

	"github.com/reaandrew/salus/core"
	"github.com/reaandrew/salus/utils"
)

// ReportGitActivity records branch, tag and commit activity since the
// configured cutoff, e.g. "6 months ago".
type ReportGitActivity struct {
	Base
	Metrics utils.GitMetrics
}

func NewReportGitActivity(sc core.ScannerContext, runner core.ProcessRunner) core.Scanner {
	s := &ReportGitActivity{Metrics: utils.GitMetricsClient{}}
	s.Base = NewBase(s, sc, runner)
	return s
}

func (s *ReportGitActivity) ShouldRun() (bool, error) {
	return s.Repository().IsGitRepository(), nil
}

func (s *ReportGitActivity) Run(ctx context.Context) error {
	cutoffSetting := s.Config().String("cutoff", "")
	cutoff, err := utils.ParseCutoff(cutoffSetting)
	if err != nil {
		return s.ReportError(map[string]any{"message": err.Error(), "cutoff": cutoffSetting})
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	activity, err := s.Metrics.CollectGitActivity(ctx, s.Repository().Path, cutoff)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if err != nil {
		return s.ReportError(map[string]any{"message": err.Error()})
	}
	s.ReportInfo("git_activity", activity)
	s.ReportSuccess()
	return nil
}
