package repositories

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/reaandrew/salus/utils"
	log "github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

const eventSetsBucket = "EventSets"

// BoltEventRepository stores EventSets in insertion order under sequence
// keys.
type BoltEventRepository struct {
	db *bbolt.DB
}

func NewBoltEventRepository(dbPath string) (EventRepository, error) {
	if err := utils.DeleteFileIfExists(dbPath); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(eventSetsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &BoltEventRepository{db: db}, nil
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

func (r *BoltEventRepository) Store(set EventSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode events of '%s': %w", set.Repository, err)
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(eventSetsBucket))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(sequenceKey(seq), data)
	})
}

func (r *BoltEventRepository) Clear() error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(eventSetsBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(eventSetsBucket))
		return err
	})
}

func (r *BoltEventRepository) Close() error {
	return r.db.Close()
}

func (r *BoltEventRepository) NewIterator() EventIterator {
	return &BoltEventIterator{repo: r}
}

type BoltEventIterator struct {
	repo    *BoltEventRepository
	lastKey []byte
	current *EventSet
}

func (it *BoltEventIterator) HasNext() bool {
	it.current = nil
	err := it.repo.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(eventSetsBucket)).Cursor()
		var k, v []byte
		if it.lastKey == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(it.lastKey)
			if k != nil && string(k) == string(it.lastKey) {
				k, v = c.Next()
			}
		}
		for ; k != nil; k, v = c.Next() {
			it.lastKey = append([]byte(nil), k...)
			var set EventSet
			if err := json.Unmarshal(v, &set); err != nil {
				log.Errorf("Failed to parse event set %x: %v", k, err)
				continue
			}
			it.current = &set
			return nil
		}
		return nil
	})
	if err != nil {
		log.Errorf("Failed to read event sets: %v", err)
		return false
	}
	return it.current != nil
}

func (it *BoltEventIterator) Next() (EventSet, error) {
	if it.current == nil {
		return EventSet{}, fmt.Errorf("no more event sets available")
	}
	return *it.current, nil
}

func (it *BoltEventIterator) Reset() error {
	it.lastKey = nil
	it.current = nil
	return nil
}
