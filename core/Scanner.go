package core

import "context"

// Scanner is a pluggable unit implementing one analysis technique against a
// repository. Implementations are constructed with a ScannerContext and must
// provide both operations; there is no default behaviour.
type Scanner interface {
	// Name is the key every report entry of this scanner is filed under.
	Name() string

	// ShouldRun reports whether the scanner applies to the bound repository
	// and configuration. It must not run processes or touch the report.
	ShouldRun() (bool, error)

	// Run performs the analysis and publishes its outcome through the report.
	// It returns only programming and invocation errors; findings are
	// reported as a failing verdict.
	Run(ctx context.Context) error
}

// ScannerContext is the repository, report and configuration a scanner is
// bound to for its whole lifetime.
type ScannerContext struct {
	Repository *Repository
	Report     ReportSink
	Config     ScannerConfig
}
