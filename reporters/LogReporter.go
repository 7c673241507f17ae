package reporters

import (
	"fmt"

	"github.com/reaandrew/salus/core"
	"github.com/reaandrew/salus/repositories"
	log "github.com/sirupsen/logrus"
)

// LogReporter writes one line per scanner outcome of every stored EventSet.
type LogReporter struct {
	Logger log.FieldLogger
}

func NewLogReporter() LogReporter {
	return LogReporter{Logger: log.StandardLogger()}
}

func (l LogReporter) Report(repository repositories.EventRepository) error {
	iterator := repository.NewIterator()
	for iterator.HasNext() {
		set, err := iterator.Next()
		if err != nil {
			return fmt.Errorf("failed to read event set: %w", err)
		}
		l.logSet(set)
	}
	return nil
}

func (l LogReporter) logSet(set repositories.EventSet) {
	type outcome struct {
		passes, failures, errors, infos int
	}
	outcomes := map[string]*outcome{}
	var order []string
	for _, e := range set.Events {
		o, ok := outcomes[e.Scanner]
		if !ok {
			o = &outcome{}
			outcomes[e.Scanner] = o
			order = append(order, e.Scanner)
		}
		switch e.Kind {
		case core.EventVerdict:
			if e.IsFailure() {
				o.failures++
			} else {
				o.passes++
			}
		case core.EventError:
			o.errors++
		case core.EventInfo:
			o.infos++
		}
	}

	for _, name := range order {
		o := outcomes[name]
		entry := l.Logger.WithFields(log.Fields{
			"repository": set.Repository,
			"scanner":    name,
			"info":       o.infos,
			"errors":     o.errors,
		})
		switch {
		case o.failures > 0:
			entry.Warn("FAILED")
		case o.errors > 0 && o.passes == 0:
			entry.Warn("ERRORED")
		default:
			entry.Info("PASSED")
		}
	}
	l.Logger.WithFields(log.Fields{"repository": set.Repository, "passed": set.Passed}).Info("Scan complete")
}
