package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/reaandrew/salus/core"
	"github.com/reaandrew/salus/utils"
	log "github.com/sirupsen/logrus"
)

// SqliteEventRepository keeps each EventSet as a JSON batch and also spreads
// its events into a queryable events table.
type SqliteEventRepository struct {
	db *sql.DB
}

func NewSqliteEventRepository(dbPath string) (EventRepository, error) {
	db, err := InitializeSQLiteDB(dbPath)
	if err != nil {
		return nil, err
	}
	return &SqliteEventRepository{db: db}, nil
}

// InitializeSQLiteDB recreates the database at dbPath with the event schema.
func InitializeSQLiteDB(dbPath string) (*sql.DB, error) {
	if err := utils.DeleteFileIfExists(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// One-shot loads; durability of the last transactions is not needed.
	_, _ = db.Exec("PRAGMA journal_mode = WAL;")
	_, _ = db.Exec("PRAGMA synchronous = OFF;")

	schema := []string{
		`CREATE TABLE IF NOT EXISTS event_batches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			repository TEXT,
			passed INTEGER,
			json_data TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id INTEGER REFERENCES event_batches(id),
			repository TEXT,
			scanner TEXT,
			kind TEXT,
			info_type TEXT,
			payload TEXT,
			recorded_at TEXT
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create event tables: %w", err)
		}
	}
	return db, nil
}

func (r *SqliteEventRepository) Store(set EventSet) (err error) {
	batch, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode events of '%s': %w", set.Repository, err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	res, err := tx.Exec(`INSERT INTO event_batches (repository, passed, json_data) VALUES (?, ?, ?)`,
		set.Repository, set.Passed, string(batch))
	if err != nil {
		return fmt.Errorf("failed to insert event batch: %w", err)
	}
	batchID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read batch id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO events (batch_id, repository, scanner, kind, info_type, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, event := range set.Events {
		payload, jErr := json.Marshal(eventPayload(event))
		if jErr != nil {
			log.Errorf("Failed to marshal payload of %s event from '%s': %v", event.Kind, event.Scanner, jErr)
			payload = []byte("null")
		}
		if _, err = stmt.Exec(batchID, set.Repository, event.Scanner, string(event.Kind), event.InfoType,
			string(payload), event.Timestamp.Format("2006-01-02T15:04:05.000Z07:00")); err != nil {
			return fmt.Errorf("failed to insert %s event from '%s': %w", event.Kind, event.Scanner, err)
		}
	}
	return nil
}

// eventPayload is the part of an event that varies with its kind.
func eventPayload(event core.Event) any {
	switch event.Kind {
	case core.EventVerdict:
		return event.Passed
	case core.EventInfo:
		return event.Message
	case core.EventError:
		return event.Error
	default:
		return event.Text
	}
}

func (r *SqliteEventRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM events; DELETE FROM event_batches;`); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}
	return nil
}

func (r *SqliteEventRepository) Close() error {
	return r.db.Close()
}

// CountEvents returns the number of stored events of the given kind.
func (r *SqliteEventRepository) CountEvents(kind core.EventKind) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM events WHERE kind = ?`, string(kind)).Scan(&count)
	return count, err
}

func (r *SqliteEventRepository) NewIterator() EventIterator {
	return &SqliteEventIterator{repo: r}
}

type SqliteEventIterator struct {
	repo      *SqliteEventRepository
	currentID int64
	current   *EventSet
}

var errNoMoreBatches = errors.New("no more batches")

// HasNext loads the batch following the last one read. Batches that fail to
// decode are logged and skipped.
func (it *SqliteEventIterator) HasNext() bool {
	for {
		err := it.loadNextBatch()
		if err == nil {
			return true
		}
		if errors.Is(err, errNoMoreBatches) {
			it.current = nil
			return false
		}
		log.Errorf("Error loading batch after id %d: %v", it.currentID, err)
	}
}

func (it *SqliteEventIterator) Next() (EventSet, error) {
	if it.current == nil {
		return EventSet{}, fmt.Errorf("no more event sets available")
	}
	return *it.current, nil
}

func (it *SqliteEventIterator) Reset() error {
	it.currentID = 0
	it.current = nil
	return nil
}

func (it *SqliteEventIterator) loadNextBatch() error {
	row := it.repo.db.QueryRow(`
		SELECT id, json_data
		FROM event_batches
		WHERE id > ?
		ORDER BY id ASC
		LIMIT 1
	`, it.currentID)

	var id int64
	var jsonData string
	if err := row.Scan(&id, &jsonData); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errNoMoreBatches
		}
		return err
	}
	it.currentID = id

	var set EventSet
	if err := json.Unmarshal([]byte(jsonData), &set); err != nil {
		return fmt.Errorf("failed to parse JSON for batch %d: %w", id, err)
	}
	it.current = &set
	return nil
}
