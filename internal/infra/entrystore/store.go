// Package entrystore persists paired screen entries in a YAML file.
package entrystore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned when no entry matches.
	ErrNotFound = errors.New("entry not found")
	// ErrDuplicate is returned when an entry with the same screen id exists.
	ErrDuplicate = errors.New("entry already exists")
)

// Entry is a persisted paired screen.
type Entry struct {
	ID           string         `yaml:"id"`
	Title        string         `yaml:"title"`
	Driver       string         `yaml:"driver"`
	Auth         map[string]any `yaml:"auth"`
	GoogleAPIKey string         `yaml:"google_api_key,omitempty"`
}

// ScreenID returns the screen id stored in the auth data.
func (e Entry) ScreenID() string {
	if v, ok := e.Auth["screen_id"].(string); ok {
		return v
	}
	return ""
}

type document struct {
	Entries []Entry `yaml:"entries"`
}

// Store reads and writes the entries file.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a store backed by path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the entries file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns all entries. A missing file yields no entries.
func (s *Store) Load() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read entries file")
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse entries file")
	}
	for i, e := range doc.Entries {
		if _, err := uuid.Parse(e.ID); err != nil {
			return nil, errors.Wrapf(err, "invalid entry id at index %d", i)
		}
	}
	return doc.Entries, nil
}

func (s *Store) save(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create entries directory")
	}

	data, err := yaml.Marshal(document{Entries: entries})
	if err != nil {
		return errors.Wrap(err, "failed to encode entries")
	}

	pending, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o600))
	if err != nil {
		return errors.Wrap(err, "failed to create pending entries file")
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			zlog.Debug().Err(err).Msg("entrystore: cleanup pending file")
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return errors.Wrap(err, "failed to write entries")
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return errors.Wrap(err, "failed to replace entries file")
	}
	return nil
}

// Get returns the entry with id.
func (s *Store) Get(id string) (*Entry, error) {
	entries, err := s.Load()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "id=%s", id)
}

// FindByScreenID returns the entry paired with screenID.
func (s *Store) FindByScreenID(screenID string) (*Entry, error) {
	entries, err := s.Load()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if screenID != "" && e.ScreenID() == screenID {
			return &e, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "screen_id=%s", screenID)
}

// Add appends e, assigning a new id when empty.
func (s *Store) Add(e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return Entry{}, err
	}
	for _, existing := range entries {
		if sid := e.ScreenID(); sid != "" && existing.ScreenID() == sid {
			return Entry{}, errors.Wrapf(ErrDuplicate, "screen_id=%s", sid)
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	if err := s.save(append(entries, e)); err != nil {
		return Entry{}, err
	}
	zlog.Info().Msgf("entrystore: entry added: id=%s title=%q", e.ID, e.Title)
	return e, nil
}

// Update replaces the entry with the same id.
func (s *Store) Update(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == e.ID {
			entries[i] = e
			return s.save(entries)
		}
	}
	return errors.Wrapf(ErrNotFound, "id=%s", e.ID)
}

// Remove deletes the entry with id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == id {
			return s.save(append(entries[:i], entries[i+1:]...))
		}
	}
	return errors.Wrapf(ErrNotFound, "id=%s", id)
}
