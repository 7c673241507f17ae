package utils

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// ProgressReporter defines methods for reporting progress.
type ProgressReporter interface {
	// SetTotal reinitializes the progress with the new total count.
	SetTotal(total int)
	// Increment increases the progress by one.
	Increment()
	// Finish completes the progress display.
	Finish()
}

// BarProgressReporter renders progress on stderr so it never mixes with
// command output.
type BarProgressReporter struct {
	description string
	writer      io.Writer
	bar         *progressbar.ProgressBar
}

func NewBarProgressReporter(total int, description string) *BarProgressReporter {
	p := &BarProgressReporter{description: description, writer: os.Stderr}
	p.SetTotal(total)
	return p
}

func (p *BarProgressReporter) SetTotal(total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionSetDescription(p.description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionThrottle(100e6),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionUseANSICodes(true),
	)
}

func (p *BarProgressReporter) Increment() {
	_ = p.bar.Add(1)
}

func (p *BarProgressReporter) Finish() {
	_ = p.bar.Finish()
}

// NoopProgressReporter is used when there is nothing to display.
type NoopProgressReporter struct{}

func (NoopProgressReporter) SetTotal(int) {}
func (NoopProgressReporter) Increment()   {}
func (NoopProgressReporter) Finish()      {}
