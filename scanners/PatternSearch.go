package scanners

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-enry/go-enry/v2"
	"github.com/gobwas/glob"
	"github.com/reaandrew/salus/core"
)

const maxHitTextLength = 200

type searchPattern struct {
	regex     *regexp.Regexp
	message   string
	forbidden bool
	required  bool
	hits      int
}

// PatternHit is one line matching a configured pattern.
type PatternHit struct {
	Regex     string `json:"regex"`
	Message   string `json:"msg,omitempty"`
	Forbidden bool   `json:"forbidden"`
	Required  bool   `json:"required"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Text      string `json:"text"`
}

// PatternSearch greps the repository for configured regexes. A hit of a
// forbidden pattern fails the scan, as does a required pattern with no hit.
//
//	PatternSearch:
//	  matches:
//	    - {regex: "BEGIN RSA PRIVATE KEY", forbidden: true, message: "no keys"}
//	    - {regex: "Copyright", required: true}
//	  include: ["**/*.go"]
//	  exclude: ["testdata/**"]
type PatternSearch struct {
	Base
}

func NewPatternSearch(sc core.ScannerContext, runner core.ProcessRunner) core.Scanner {
	s := &PatternSearch{}
	s.Base = NewBase(s, sc, runner)
	return s
}

func (s *PatternSearch) ShouldRun() (bool, error) {
	return len(s.Config().Maps("matches")) > 0, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	var globs []glob.Glob
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob '%s': %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func anyGlob(globs []glob.Glob, rel string) bool {
	for _, g := range globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func (s *PatternSearch) compilePatterns() ([]*searchPattern, error) {
	var patterns []*searchPattern
	for i, m := range s.Config().Maps("matches") {
		expr := m.String("regex", "")
		if expr == "" {
			return nil, fmt.Errorf("match %d has no regex", i)
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid regex '%s': %w", expr, err)
		}
		patterns = append(patterns, &searchPattern{
			regex:     re,
			message:   m.String("message", ""),
			forbidden: m.Bool("forbidden", false),
			required:  m.Bool("required", false),
		})
	}
	return patterns, nil
}

func (s *PatternSearch) Run(ctx context.Context) error {
	patterns, err := s.compilePatterns()
	if err != nil {
		return s.ReportError(map[string]any{"message": err.Error()})
	}
	include, err := compileGlobs(s.Config().StringSlice("include"))
	if err != nil {
		return s.ReportError(map[string]any{"message": err.Error()})
	}
	exclude, err := compileGlobs(s.Config().StringSlice("exclude"))
	if err != nil {
		return s.ReportError(map[string]any{"message": err.Error()})
	}

	files, err := s.Repository().FindFiles(func(rel string) bool {
		if len(include) > 0 && !anyGlob(include, rel) {
			return false
		}
		return !anyGlob(exclude, rel)
	})
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	var hits []PatternHit
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := s.Repository().ReadFile(rel)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", rel, err)
		}
		if enry.IsBinary(content) {
			continue
		}
		hits = append(hits, searchFile(rel, content, patterns)...)
	}

	failed := false
	for _, hit := range hits {
		s.ReportInfo("hit", hit)
		if hit.Forbidden {
			failed = true
		}
	}
	for _, p := range patterns {
		if p.required && p.hits == 0 {
			s.ReportInfo("miss", map[string]any{"regex": p.regex.String(), "msg": p.message})
			failed = true
		}
	}

	if failed {
		s.ReportFailure()
	} else {
		s.ReportSuccess()
	}
	return nil
}

// truncateText cuts s to at most n bytes without splitting a rune.
func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// searchFile matches patterns line by line. Lines have no length limit so
// minified or generated files are searched to the end.
func searchFile(rel string, content []byte, patterns []*searchPattern) []PatternHit {
	var hits []PatternHit
	reader := bufio.NewReader(bytes.NewReader(content))
	line := 0
	for {
		text, err := reader.ReadString('\n')
		if text == "" && err != nil {
			break
		}
		line++
		text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
		for _, p := range patterns {
			if !p.regex.MatchString(text) {
				continue
			}
			p.hits++
			hits = append(hits, PatternHit{
				Regex:     p.regex.String(),
				Message:   p.message,
				Forbidden: p.forbidden,
				Required:  p.required,
				File:      rel,
				Line:      line,
				Text:      truncateText(text, maxHitTextLength),
			})
		}
		if err != nil {
			break
		}
	}
	return hits
}
