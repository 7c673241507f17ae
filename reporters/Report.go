package reporters

import (
	"sort"
	"sync"

	"github.com/reaandrew/salus/core"
	log "github.com/sirupsen/logrus"
)

// Report is an in-memory core.ReportSink shared by every scanner of one
// scan. It is safe for concurrent use.
type Report struct {
	Repository string

	mu       sync.RWMutex
	events   []core.Event
	passes   map[string]int
	failures map[string]int
	errors   map[string]int
	enforced map[string]bool
}

// NewReport creates an empty report. Only failures of enforced scanners fail
// the report as a whole.
func NewReport(repository string, enforced []string) *Report {
	r := &Report{
		Repository: repository,
		passes:     map[string]int{},
		failures:   map[string]int{},
		errors:     map[string]int{},
		enforced:   map[string]bool{},
	}
	for _, name := range enforced {
		r.enforced[name] = true
	}
	return r
}

func (r *Report) record(event core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	switch event.Kind {
	case core.EventVerdict:
		if *event.Passed {
			r.passes[event.Scanner]++
		} else {
			r.failures[event.Scanner]++
		}
	case core.EventError:
		r.errors[event.Scanner]++
	}
}

func (r *Report) ScanPassed(scannerName string, passed bool) {
	log.WithFields(log.Fields{"scanner": scannerName, "passed": passed}).Debug("Verdict recorded")
	r.record(core.NewVerdictEvent(scannerName, passed))
}

func (r *Report) ScanInfo(scannerName string, infoType string, message any) {
	r.record(core.NewInfoEvent(scannerName, infoType, message))
}

func (r *Report) ScanStdout(scannerName string, stdout string) {
	r.record(core.NewStdoutEvent(scannerName, stdout))
}

func (r *Report) ScanStderr(scannerName string, stderr string) {
	r.record(core.NewStderrEvent(scannerName, stderr))
}

func (r *Report) SalusError(scannerName string, errorData map[string]any) {
	log.WithField("scanner", scannerName).Warnf("Scanner error: %v", errorData)
	r.record(core.NewErrorEvent(scannerName, errorData))
}

// HasFailure reports whether a failing verdict was recorded for scannerName.
func (r *Report) HasFailure(scannerName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failures[scannerName] > 0
}

// VerdictCount returns how many verdicts scannerName recorded.
func (r *Report) VerdictCount(scannerName string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.passes[scannerName] + r.failures[scannerName]
}

// ErrorCount returns how many structured errors scannerName recorded.
func (r *Report) ErrorCount(scannerName string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.errors[scannerName]
}

// ScannerPassed reports whether scannerName has no failing verdict and did
// not end in an error without any passing verdict.
func (r *Report) ScannerPassed(scannerName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scannerPassed(scannerName)
}

func (r *Report) scannerPassed(name string) bool {
	if r.failures[name] > 0 {
		return false
	}
	return r.errors[name] == 0 || r.passes[name] > 0
}

// Passed reports whether every enforced scanner that reported anything
// passed.
func (r *Report) Passed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name := range r.enforced {
		if !r.scannerPassed(name) {
			return false
		}
	}
	return true
}

// Events returns a copy of everything recorded, in order.
func (r *Report) Events() []core.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]core.Event(nil), r.events...)
}

// EventsFor returns the events recorded by one scanner.
func (r *Report) EventsFor(scannerName string) []core.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var events []core.Event
	for _, e := range r.events {
		if e.Scanner == scannerName {
			events = append(events, e)
		}
	}
	return events
}

// ScannerNames lists every scanner that recorded at least one event.
func (r *Report) ScannerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	var names []string
	for _, e := range r.events {
		if !seen[e.Scanner] {
			seen[e.Scanner] = true
			names = append(names, e.Scanner)
		}
	}
	sort.Strings(names)
	return names
}
