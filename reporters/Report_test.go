package reporters

import (
	"fmt"
	"sync"
	"testing"

	"github.com/reaandrew/salus/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportHasFailure(t *testing.T) {
	report := NewReport("repo", nil)

	report.ScanPassed("A", true)
	report.ScanPassed("A", true)
	assert.False(t, report.HasFailure("A"))

	report.ScanPassed("B", false)
	assert.True(t, report.HasFailure("B"))

	assert.False(t, report.HasFailure("Unknown"))
}

func TestReportFailureIsSticky(t *testing.T) {
	report := NewReport("repo", nil)

	report.ScanPassed("A", false)
	report.ScanPassed("A", true)

	assert.True(t, report.HasFailure("A"))
	assert.Equal(t, 2, report.VerdictCount("A"))
}

func TestReportKeepsEventsPerScanner(t *testing.T) {
	report := NewReport("repo", nil)

	report.ScanStdout("A", "out")
	report.ScanStderr("B", "err")
	report.ScanInfo("A", "dependency", map[string]any{"name": "x"})
	report.SalusError("B", map[string]any{"message": "boom"})

	events := report.Events()
	require.Len(t, events, 4)
	assert.Equal(t, core.EventStdout, events[0].Kind)
	assert.Equal(t, "out", events[0].Text)

	a := report.EventsFor("A")
	require.Len(t, a, 2)
	assert.Equal(t, "dependency", a[1].InfoType)

	b := report.EventsFor("B")
	require.Len(t, b, 2)
	assert.Equal(t, map[string]any{"message": "boom"}, b[1].Error)
	assert.Equal(t, 1, report.ErrorCount("B"))

	assert.Equal(t, []string{"A", "B"}, report.ScannerNames())
}

func TestReportPassed(t *testing.T) {
	tests := []struct {
		name     string
		enforced []string
		record   func(r *Report)
		expected bool
	}{
		{
			name:     "no events",
			enforced: []string{"A"},
			record:   func(r *Report) {},
			expected: true,
		},
		{
			name:     "enforced failure",
			enforced: []string{"A"},
			record:   func(r *Report) { r.ScanPassed("A", false) },
			expected: false,
		},
		{
			name:     "failure of a scanner that is not enforced",
			enforced: []string{"A"},
			record: func(r *Report) {
				r.ScanPassed("A", true)
				r.ScanPassed("B", false)
			},
			expected: true,
		},
		{
			name:     "enforced error without a verdict",
			enforced: []string{"A"},
			record:   func(r *Report) { r.SalusError("A", map[string]any{"message": "x"}) },
			expected: false,
		},
		{
			name:     "error next to a passing verdict",
			enforced: []string{"A"},
			record: func(r *Report) {
				r.SalusError("A", map[string]any{"message": "x"})
				r.ScanPassed("A", true)
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := NewReport("repo", tt.enforced)
			tt.record(report)
			assert.Equal(t, tt.expected, report.Passed())
		})
	}
}

func TestReportConcurrentWrites(t *testing.T) {
	report := NewReport("repo", nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("Scanner%d", i%4)
			for j := 0; j < 50; j++ {
				report.ScanStdout(name, "line")
				report.ScanPassed(name, true)
				_ = report.HasFailure(name)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, report.Events(), 20*50*2)
	assert.Equal(t, 5*50, report.VerdictCount("Scanner0"))
	assert.Len(t, report.ScannerNames(), 4)
}
