package scanners

import (
	"fmt"

	"github.com/reaandrew/salus/core"
)

// Factory builds a scanner bound to its context.
type Factory func(sc core.ScannerContext, runner core.ProcessRunner) core.Scanner

type registration struct {
	name    string
	factory Factory
}

// Registry keeps scanner factories in registration order.
type Registry struct {
	entries []registration
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a factory under the name of the scanner it builds.
func (r *Registry) Register(name string, factory Factory) error {
	if _, ok := r.Lookup(name); ok {
		return fmt.Errorf("scanner '%s' is already registered", name)
	}
	r.entries = append(r.entries, registration{name: name, factory: factory})
	return nil
}

func (r *Registry) Lookup(name string) (Factory, bool) {
	for _, entry := range r.entries {
		if entry.name == name {
			return entry.factory, true
		}
	}
	return nil, false
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		names = append(names, entry.name)
	}
	return names
}

// DefaultRegistry holds every built-in scanner.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, entry := range []registration{
		{"RepoNotEmpty", NewRepoNotEmpty},
		{"ReportGoDep", NewReportGoDep},
		{"ReportNodeModules", NewReportNodeModules},
		{"ReportPythonModules", NewReportPythonModules},
		{"ReportMavenDeps", NewReportMavenDeps},
		{"ReportDockerImages", NewReportDockerImages},
		{"ReportTerraformModules", NewReportTerraformModules},
		{"ReportLanguages", NewReportLanguages},
		{"ReportGitActivity", NewReportGitActivity},
		{"PatternSearch", NewPatternSearch},
		{"Trivy", NewTrivy},
		{"Gosec", NewGosec},
		{"Gitleaks", NewGitleaks},
	} {
		r.entries = append(r.entries, entry)
	}
	return r
}
