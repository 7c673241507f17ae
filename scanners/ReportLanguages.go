package scanners

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-enry/go-enry/v2"
	"github.com/reaandrew/salus/core"
)

type LanguageStats struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// ReportLanguages records the languages making up the repository, ignoring
// vendored, generated and binary files.
type ReportLanguages struct {
	Base
}

func NewReportLanguages(sc core.ScannerContext, runner core.ProcessRunner) core.Scanner {
	s := &ReportLanguages{}
	s.Base = NewBase(s, sc, runner)
	return s
}

func (s *ReportLanguages) ShouldRun() (bool, error) {
	empty, err := s.Repository().IsEmpty()
	if err != nil {
		return false, err
	}
	return !empty, nil
}

func (s *ReportLanguages) Run(ctx context.Context) error {
	stats := map[string]*LanguageStats{}
	err := s.Repository().Walk(func(rel string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if enry.IsVendor(rel) || enry.IsDotFile(rel) || enry.IsDocumentation(rel) {
			return nil
		}
		content, err := s.Repository().ReadFile(rel)
		if err != nil {
			return err
		}
		if enry.IsBinary(content) || enry.IsGenerated(rel, content) {
			return nil
		}
		language := enry.GetLanguage(filepath.Base(rel), content)
		if language == "" {
			return nil
		}
		entry, ok := stats[language]
		if !ok {
			entry = &LanguageStats{}
			stats[language] = entry
		}
		entry.Files++
		entry.Bytes += int64(len(content))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to detect languages: %w", err)
	}

	languages := make(map[string]any, len(stats))
	for language, entry := range stats {
		languages[language] = *entry
	}
	s.ReportInfo("languages", languages)
	s.ReportSuccess()
	return nil
}
