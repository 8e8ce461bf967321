package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cuongbtq/job-tracker/internal/api/storage"
)

// PreferenceStore persists provider preferences per client
type PreferenceStore interface {
	Load(ctx context.Context, client string) (storage.Name, error)
	Save(ctx context.Context, client string, name storage.Name) error
}

type preference struct {
	Provider  storage.Name `json:"provider"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// FileStore keeps preferences in a JSON file so they survive restarts
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context, client string) (storage.Name, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.read()
	if err != nil {
		return "", err
	}
	return prefs[client].Provider, nil
}

func (s *FileStore) Save(_ context.Context, client string, name storage.Name) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.read()
	if err != nil {
		return err
	}
	prefs[client] = preference{Provider: name, UpdatedAt: time.Now().UTC()}
	return s.write(prefs)
}

func (s *FileStore) read() (map[string]preference, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]preference{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	prefs := map[string]preference{}
	if len(data) == 0 {
		return prefs, nil
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("failed to decode preferences %s: %w", s.path, err)
	}
	return prefs, nil
}

// write replaces the file atomically
func (s *FileStore) write(prefs map[string]preference) error {
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preferences dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".preferences-*")
	if err != nil {
		return fmt.Errorf("failed to create preferences file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}

// MemoryStore keeps preferences for the life of the process
type MemoryStore struct {
	mu    sync.Mutex
	prefs map[string]storage.Name
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[string]storage.Name)}
}

func (s *MemoryStore) Load(_ context.Context, client string) (storage.Name, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs[client], nil
}

func (s *MemoryStore) Save(_ context.Context, client string, name storage.Name) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[client] = name
	return nil
}
