// File: internal/store/store.go
// A file-based key-value sink for extracted payloads. One JSON file holds all
// entries; writes are atomic via a temp-file rename.
package store

import (
	encodingjson "encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const resultsFile = "results.json"

// Entry is one persisted extraction result.
type Entry struct {
	Key     string                  `json:"key"`
	Task    string                  `json:"task"`
	SavedAt time.Time               `json:"savedAt"`
	Payload encodingjson.RawMessage `json:"payload"`
}

// FileStore persists entries under a directory, keyed by generated UUIDs.
type FileStore struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore creates the backing directory if needed.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir %s: %w", dir, err)
	}
	return &FileStore{
		dir:    dir,
		logger: logger.Named("store"),
	}, nil
}

// Save persists one payload and returns its generated key.
func (s *FileStore) Save(task string, payload encodingjson.RawMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return "", err
	}

	entry := Entry{
		Key:     uuid.NewString(),
		Task:    task,
		SavedAt: time.Now().UTC(),
		Payload: payload,
	}
	entries[entry.Key] = entry

	if err := s.flush(entries); err != nil {
		return "", err
	}
	s.logger.Debug("Result persisted.", zap.String("key", entry.Key), zap.Int("payload_bytes", len(payload)))
	return entry.Key, nil
}

// Get returns the entry stored under key.
func (s *FileStore) Get(key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	entry, ok := entries[key]
	if !ok {
		return nil, fmt.Errorf("no entry for key %s", key)
	}
	return &entry, nil
}

// List returns all stored entries.
func (s *FileStore) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *FileStore) path() string {
	return filepath.Join(s.dir, resultsFile)
}

func (s *FileStore) load() (map[string]Entry, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]Entry), nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path(), err)
	}
	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path(), err)
	}
	return entries, nil
}

func (s *FileStore) flush(entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entries: %w", err)
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
