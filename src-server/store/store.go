package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"calstore/src-server/model"

	"github.com/google/uuid"
)

// The medium couldn't be read, or a write couldn't be committed.
var ErrUnavailable = errors.New("storage unavailable")

// Whole-document persistence for the event collection.
type Store interface {
	Load() (*model.EventCollection, error)
	Save(*model.EventCollection) error
}

// Keeps the collection as a single JSON file, replaced atomically on every
// save so readers never observe a torn document.
type FileStore struct {
	path string

	// serializes the seed-on-first-access path; plain reads stay lock-free
	seedMu sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Read the committed document; on first access seed it with two sample events
// and persist before returning.
func (s *FileStore) Load() (*model.EventCollection, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.seed()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, s.path, err)
	}
	collection := new(model.EventCollection)
	if err := json.Unmarshal(data, collection); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrUnavailable, s.path, err)
	}
	return collection, nil
}

// Durably replace the prior document: marshal, write to a temp file in the
// same directory, fsync, then rename over the old one.
func (s *FileStore) Save(collection *model.EventCollection) error {
	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal collection: %v", ErrUnavailable, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrUnavailable, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write temp file: %v", ErrUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync temp file: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", ErrUnavailable, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: chmod temp file: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: commit %s: %v", ErrUnavailable, s.path, err)
	}
	return nil
}

// Only one caller may write the seed document; everyone who lost the race
// reads the winner's commit instead of clobbering it with a second seed.
func (s *FileStore) seed() (*model.EventCollection, error) {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return s.Load()
	}
	collection := seedCollection()
	if err := s.Save(collection); err != nil {
		return nil, err
	}
	return collection, nil
}

func seedCollection() *model.EventCollection {
	today := time.Now().Format("2006-01-02")
	collection := &model.EventCollection{
		Events: []model.Event{
			{
				ID:          uuid.Must(uuid.NewV7()).String(),
				Title:       "Meeting",
				Date:        today,
				Type:        "meeting",
				Description: "Google Meet",
			},
			{
				ID:          uuid.Must(uuid.NewV7()).String(),
				Title:       "Lunch with Joe",
				Date:        today,
				Type:        "reminder",
				Description: "Restaurant",
			},
		},
	}
	collection.Touch()
	return collection
}
