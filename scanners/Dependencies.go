package scanners

import (
	"context"
	"fmt"

	"github.com/reaandrew/salus/core"
	"github.com/reaandrew/salus/processors"
)

func manifestMatcher(procs []processors.FileProcessor) func(string) bool {
	return func(rel string) bool {
		for _, p := range procs {
			if p.Supports(rel) {
				return true
			}
		}
		return false
	}
}

// hasManifest reports whether any file of the repository is understood by
// one of procs.
func (b *Base) hasManifest(procs ...processors.FileProcessor) (bool, error) {
	if b.Repository() == nil {
		return false, fmt.Errorf("no repository bound")
	}
	return b.Repository().ContainsFile(manifestMatcher(procs))
}

// reportDependencies records every dependency of every supported manifest.
// Manifests that fail to parse are collected into a single error and the
// scan ends without a verdict.
func (b *Base) reportDependencies(ctx context.Context, procs ...processors.FileProcessor) error {
	files, err := b.Repository().FindFiles(manifestMatcher(procs))
	if err != nil {
		return fmt.Errorf("failed to find manifests: %w", err)
	}

	var failed []map[string]any
	count := 0
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := b.Repository().ReadFile(rel)
		if err != nil {
			failed = append(failed, map[string]any{"file": rel, "error": err.Error()})
			continue
		}
		for _, p := range procs {
			if !p.Supports(rel) {
				continue
			}
			deps, err := p.Process(rel, content)
			if err != nil {
				failed = append(failed, map[string]any{"file": rel, "error": err.Error()})
				continue
			}
			for _, dep := range deps {
				b.RecordDependencyInfo(dep.Info(), rel)
				count++
			}
		}
	}

	if len(failed) > 0 {
		return b.ReportError(map[string]any{
			"message":  fmt.Sprintf("failed to parse %d manifest(s)", len(failed)),
			"failures": failed,
		})
	}
	b.logger().Debugf("Recorded %d dependencies from %d manifest(s)", count, len(files))
	b.ReportSuccess()
	return nil
}

type ReportGoDep struct {
	Base
}

func NewReportGoDep(sc core.ScannerContext, runner core.ProcessRunner) core.Scanner {
	s := &ReportGoDep{}
	s.Base = NewBase(s, sc, runner)
	return s
}

func (s *ReportGoDep) ShouldRun() (bool, error) {
	return s.hasManifest(processors.GoModProcessor{})
}

func (s *ReportGoDep) Run(ctx context.Context) error {
	return s.reportDependencies(ctx, processors.GoModProcessor{})
}

type ReportNodeModules struct {
	Base
}

func NewReportNodeModules(sc core.ScannerContext, runner core.ProcessRunner) core.Scanner {
	s := &ReportNodeModules{}
	s.Base = NewBase(s, sc, runner)
	return s
}

func (s *ReportNodeModules) ShouldRun() (bool, error) {
	return s.hasManifest(processors.NodeProcessor{})
}

func (s *ReportNodeModules) Run(ctx context.Context) error {
	return s.reportDependencies(ctx, processors.NodeProcessor{})
}

type ReportPythonModules struct {
	Base
}

func NewReportPythonModules(sc core.ScannerContext, runner core.ProcessRunner) core.Scanner {
	s := &ReportPythonModules{}
	s.Base = NewBase(s, sc, runner)
	return s
}

func (s *ReportPythonModules) ShouldRun() (bool, error) {
	return s.hasManifest(processors.PythonProcessor{})
}

func (s *ReportPythonModules) Run(ctx context.Context) error {
	return s.reportDependencies(ctx, processors.PythonProcessor{})
}

type ReportMavenDeps struct {
	Base
}

func NewReportMavenDeps(sc core.ScannerContext, runner core.ProcessRunner) core.Scanner {
	s := &ReportMavenDeps{}
	s.Base = NewBase(s, sc, runner)
	return s
}

func (s *ReportMavenDeps) ShouldRun() (bool, error) {
	return s.hasManifest(processors.MavenProcessor{})
}

func (s *ReportMavenDeps) Run(ctx context.Context) error {
	return s.reportDependencies(ctx, processors.MavenProcessor{})
}

// ReportDockerImages covers Dockerfiles and compose files.
type ReportDockerImages struct {
	Base
}

func NewReportDockerImages(sc core.ScannerContext, runner core.ProcessRunner) core.Scanner {
	s := &ReportDockerImages{}
	s.Base = NewBase(s, sc, runner)
	return s
}

func (s *ReportDockerImages) ShouldRun() (bool, error) {
	return s.hasManifest(processors.DockerProcessor{}, processors.DockerComposeProcessor{})
}

func (s *ReportDockerImages) Run(ctx context.Context) error {
	return s.reportDependencies(ctx, processors.DockerProcessor{}, processors.DockerComposeProcessor{})
}

type ReportTerraformModules struct {
	Base
}

func NewReportTerraformModules(sc core.ScannerContext, runner core.ProcessRunner) core.Scanner {
	s := &ReportTerraformModules{}
	s.Base = NewBase(s, sc, runner)
	return s
}

func (s *ReportTerraformModules) ShouldRun() (bool, error) {
	return s.hasManifest(processors.NewTerraformProcessor())
}

func (s *ReportTerraformModules) Run(ctx context.Context) error {
	return s.reportDependencies(ctx, processors.NewTerraformProcessor())
}
