package repositories

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/reaandrew/salus/utils"
	log "github.com/sirupsen/logrus"
)

// FileBasedEventRepository writes each EventSet to its own JSON file.
type FileBasedEventRepository struct {
	path  string
	files []string
}

func NewFileBasedEventRepository(dir string) (EventRepository, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create event directory '%s': %w", dir, err)
	}
	return &FileBasedEventRepository{path: dir}, nil
}

func (r *FileBasedEventRepository) Store(set EventSet) error {
	jsonData, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode events of '%s': %w", set.Repository, err)
	}

	filePath := path.Join(r.path, utils.GenerateRandomFilename("json"))
	if err := os.WriteFile(filePath, jsonData, 0644); err != nil {
		return err
	}
	r.files = append(r.files, filePath)
	return nil
}

// Clear removes only the files this repository wrote.
func (r *FileBasedEventRepository) Clear() error {
	for _, file := range r.files {
		if err := utils.DeleteFileIfExists(file); err != nil {
			return err
		}
	}
	r.files = nil
	return nil
}

func (r *FileBasedEventRepository) Close() error {
	return nil
}

func (r *FileBasedEventRepository) NewIterator() EventIterator {
	return &FileBasedEventIterator{repository: r}
}

type FileBasedEventIterator struct {
	repository  *FileBasedEventRepository
	currentFile int
	current     *EventSet
}

// HasNext loads the next readable file. Unreadable files are logged and
// skipped.
func (it *FileBasedEventIterator) HasNext() bool {
	for it.currentFile < len(it.repository.files) {
		filePath := it.repository.files[it.currentFile]
		it.currentFile++

		data, err := os.ReadFile(filePath)
		if err != nil {
			log.Errorf("Error loading file %s: %v", filePath, err)
			continue
		}
		var set EventSet
		if err := json.Unmarshal(data, &set); err != nil {
			log.Errorf("Failed to parse JSON in file %s: %v", filePath, err)
			continue
		}
		it.current = &set
		return true
	}
	it.current = nil
	return false
}

func (it *FileBasedEventIterator) Next() (EventSet, error) {
	if it.current == nil {
		return EventSet{}, fmt.Errorf("no more event sets available")
	}
	return *it.current, nil
}

func (it *FileBasedEventIterator) Reset() error {
	it.currentFile = 0
	it.current = nil
	return nil
}
