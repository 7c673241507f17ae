package scanners

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/reaandrew/salus/config"
	"github.com/reaandrew/salus/core"
	"github.com/reaandrew/salus/reporters"
	log "github.com/sirupsen/logrus"
)

const (
	PhaseShouldRun = "should_run"
	PhaseRun       = "run"
)

// Runner builds the active scanners for a repository and runs each of them
// against a shared report.
type Runner struct {
	Registry      *Registry
	Config        *config.Config
	ProcessRunner core.ProcessRunner
	// MaxWorkers bounds how many scanners run at once. Values below two run
	// scanners one after the other in registration order.
	MaxWorkers int
}

func NewRunner(registry *Registry, cfg *config.Config, processRunner core.ProcessRunner, maxWorkers int) Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	return Runner{Registry: registry, Config: cfg, ProcessRunner: processRunner, MaxWorkers: maxWorkers}
}

// ActiveScanners returns the registered names selected by the configuration.
// Naming a scanner that is not registered is an error.
func (r Runner) ActiveScanners() ([]string, error) {
	for _, name := range r.Config.ActiveScanners {
		if _, ok := r.Registry.Lookup(name); !ok {
			return nil, fmt.Errorf("unknown scanner '%s' in active_scanners", name)
		}
	}
	var active []string
	for _, name := range r.Registry.Names() {
		if r.Config.IsActive(name) {
			active = append(active, name)
		}
	}
	return active, nil
}

// ScanRepository runs every active scanner against repository and returns
// the resulting report.
func (r Runner) ScanRepository(ctx context.Context, repository *core.Repository) (*reporters.Report, error) {
	active, err := r.ActiveScanners()
	if err != nil {
		return nil, err
	}
	report := reporters.NewReport(repository.Name, r.Config.Enforced(active))
	r.run(ctx, repository, report, active)
	return report, nil
}

// Run runs every active scanner against repository, recording into sink.
func (r Runner) Run(ctx context.Context, repository *core.Repository, sink core.ReportSink) error {
	active, err := r.ActiveScanners()
	if err != nil {
		return err
	}
	r.run(ctx, repository, sink, active)
	return nil
}

func (r Runner) run(ctx context.Context, repository *core.Repository, sink core.ReportSink, names []string) {
	if r.MaxWorkers < 2 {
		for _, name := range names {
			r.runOne(ctx, repository, sink, name)
		}
		return
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < min(r.MaxWorkers, len(names)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				r.runOne(ctx, repository, sink, name)
			}
		}()
	}
	for _, name := range names {
		jobs <- name
	}
	close(jobs)
	wg.Wait()
}

func (r Runner) runOne(ctx context.Context, repository *core.Repository, sink core.ReportSink, name string) {
	factory, _ := r.Registry.Lookup(name)
	logger := log.WithFields(log.Fields{"scanner": name, "repository": repository.Name})

	tracker := &trackingSink{ReportSink: sink, name: name}
	scanner := factory(core.ScannerContext{
		Repository: repository,
		Report:     tracker,
		Config:     r.Config.ScannerConfig(name),
	}, r.ProcessRunner)

	shouldRun, err := scanner.ShouldRun()
	if err != nil {
		logger.Warnf("Could not decide whether to run: %v", err)
		sink.SalusError(name, map[string]any{"message": err.Error(), "phase": PhaseShouldRun})
		return
	}
	if !shouldRun {
		logger.Debug("Skipped")
		return
	}

	logger.Info("Running")
	if err := ctx.Err(); err != nil {
		sink.SalusError(name, map[string]any{"message": err.Error(), "phase": PhaseRun})
		return
	}
	if err := scanner.Run(ctx); err != nil {
		logger.Errorf("Run failed: %v", err)
		tracker.SalusError(name, map[string]any{"message": err.Error(), "phase": PhaseRun})
	}

	verdicts, errs := tracker.verdicts.Load(), tracker.errors.Load()
	switch {
	case verdicts == 0 && errs == 0:
		sink.SalusError(name, map[string]any{"message": "scanner finished without a verdict", "phase": PhaseRun})
	case verdicts == 0 && errs > 1:
		sink.ScanPassed(name, false)
	}
}

// trackingSink counts the verdicts and errors one scanner records under its
// own name.
type trackingSink struct {
	core.ReportSink
	name     string
	verdicts atomic.Int32
	errors   atomic.Int32
}

func (t *trackingSink) ScanPassed(scannerName string, passed bool) {
	if scannerName == t.name {
		t.verdicts.Add(1)
	}
	t.ReportSink.ScanPassed(scannerName, passed)
}

func (t *trackingSink) SalusError(scannerName string, errorData map[string]any) {
	if scannerName == t.name {
		t.errors.Add(1)
	}
	t.ReportSink.SalusError(scannerName, errorData)
}
