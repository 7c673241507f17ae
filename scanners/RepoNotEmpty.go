package scanners

import (
	"context"
	"fmt"

	"github.com/reaandrew/salus/core"
)

// RepoNotEmpty fails repositories that contain no files at all.
type RepoNotEmpty struct {
	Base
}

func NewRepoNotEmpty(sc core.ScannerContext, runner core.ProcessRunner) core.Scanner {
	s := &RepoNotEmpty{}
	s.Base = NewBase(s, sc, runner)
	return s
}

func (s *RepoNotEmpty) ShouldRun() (bool, error) {
	return true, nil
}

func (s *RepoNotEmpty) Run(ctx context.Context) error {
	empty, err := s.Repository().IsEmpty()
	if err != nil {
		return fmt.Errorf("failed to inspect repository: %w", err)
	}
	if empty {
		s.ReportInfo("message", fmt.Sprintf("Repository '%s' is empty.", s.Repository().Name))
		s.ReportFailure()
		return nil
	}
	s.ReportSuccess()
	return nil
}
