package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Pairing is one configured relay route from a source channel to a target
// channel, optionally addressed to a forum topic inside the target.
type Pairing struct {
	ID      int64 `json:"id"`
	Source  int64 `json:"source"`
	Target  int64 `json:"target"`
	Enabled bool  `json:"enabled"`
	TopicID int   `json:"topic_id,omitempty"`
}

// StatsRecord is one successful batch delivery for a pairing.
type StatsRecord struct {
	Source  int64 `json:"source"`
	Target  int64 `json:"target"`
	TopicID int   `json:"topic_id,omitempty"`
	Time    int64 `json:"time"`
}

// Document is the whole persisted relay state. It is owned by the process as
// a single aggregate; every mutation is followed by a synchronous save.
type Document struct {
	Pairings          []Pairing     `json:"pairings"`
	Filters           []string      `json:"filters"`
	Admins            []int64       `json:"admins"`
	ForwardingEnabled bool          `json:"forwarding_enabled"`
	Stats             []StatsRecord `json:"stats"`
}

// DefaultDocument returns the state used when no persisted document exists.
func DefaultDocument() Document {
	return Document{ForwardingEnabled: true}
}

// Saver persists the whole document. Implementations must overwrite the
// previous document completely.
type Saver interface {
	Save(doc Document) error
}

// FileStore persists the document as a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to the given file path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("state file path is required")
	}

	return &FileStore{path: path}, nil
}

// Load reads the persisted document, or returns the default document when the
// file does not exist yet.
func (s *FileStore) Load() (Document, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultDocument(), nil
		}
		return Document{}, fmt.Errorf("read state file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return Document{}, fmt.Errorf("parse state file: %w", err)
	}

	return doc, nil
}

// Save writes the document atomically via a temporary file rename.
func (s *FileStore) Save(doc Document) error {
	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	if _, err := tmp.Write(append(content, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
