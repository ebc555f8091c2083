package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/julianstephens/barberbook/internal/models"
)

type document struct {
	Version      int                  `json:"version"`
	Appointments []models.Appointment `json:"appointments"`
}

// JSONStore keeps appointments in a single local file. It is re-read before
// every operation so separate processes observe each other's writes. It does
// not enforce unique slots.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{
		path: path,
	}
}

func (s *JSONStore) Init() error {
	// Create config directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("storage already initialized at %s", s.path)
	}

	return s.save(&document{Version: 1, Appointments: []models.Appointment{}})
}

func (s *JSONStore) Load() error {
	_, err := s.load()
	return err
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) GetConfigPath() string {
	return s.path
}

func (s *JSONStore) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("failed to read storage: %w", err)
	}

	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse storage: %w", err)
	}
	return doc, nil
}

func (s *JSONStore) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	return nil
}

func (s *JSONStore) ReadAll(ctx context.Context) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Appointments, nil
}

func (s *JSONStore) Append(ctx context.Context, a models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Appointments = append(doc.Appointments, a)
	return s.save(doc)
}

func (s *JSONStore) DeleteMatching(ctx context.Context, a models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := s.load()
	if err != nil {
		return err
	}
	i := IndexOf(doc.Appointments, a)
	if i < 0 {
		return ErrNotFound
	}
	doc.Appointments = append(doc.Appointments[:i], doc.Appointments[i+1:]...)
	return s.save(doc)
}
