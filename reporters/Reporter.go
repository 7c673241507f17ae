package reporters

import "github.com/reaandrew/salus/repositories"

// Reporter publishes every stored EventSet somewhere.
type Reporter interface {
	Report(repository repositories.EventRepository) error
}
