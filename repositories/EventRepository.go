package repositories

import (
	"fmt"

	"github.com/reaandrew/salus/core"
)

// EventSet is everything one scan recorded for one repository.
type EventSet struct {
	Repository string       `json:"repository"`
	Passed     bool         `json:"passed"`
	Events     []core.Event `json:"events"`
}

type EventRepository interface {
	Store(set EventSet) error
	Clear() error
	NewIterator() EventIterator
	Close() error
}

type EventIterator interface {
	HasNext() bool
	Next() (EventSet, error)
	Reset() error
}

const (
	KindSqlite = "sqlite"
	KindFile   = "file"
	KindBolt   = "bolt"
)

// New opens the event repository of the given kind. Path is a database file
// for sqlite and bolt and a directory for file.
func New(kind, path string) (EventRepository, error) {
	switch kind {
	case KindSqlite, "":
		return NewSqliteEventRepository(path)
	case KindBolt:
		return NewBoltEventRepository(path)
	case KindFile:
		return NewFileBasedEventRepository(path)
	default:
		return nil, fmt.Errorf("unknown event store kind '%s'", kind)
	}
}
