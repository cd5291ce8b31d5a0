package store

import (
	"errors"
	"sync"
)

// State is the in-memory aggregate around the persisted document. Components
// never hold the document directly; they read and mutate it through State so
// every mutation is followed by a write-through save before it is observable
// as complete.
type State struct {
	mu    sync.RWMutex
	doc   Document
	saver Saver
}

// NewState wraps a loaded document and its persistence backend.
func NewState(doc Document, saver Saver) (*State, error) {
	if saver == nil {
		return nil, errors.New("saver is required")
	}

	return &State{doc: doc, saver: saver}, nil
}

// View runs fn with read access to the document. fn must not retain slices
// beyond the call.
func (s *State) View(fn func(doc *Document)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.doc)
}

// Update runs fn with exclusive access to the document and persists the
// result. When fn returns an error the document is left untouched and nothing
// is saved.
func (s *State) Update(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.doc.clone()
	if err := fn(&s.doc); err != nil {
		s.doc = snapshot
		return err
	}

	if err := s.saver.Save(s.doc); err != nil {
		s.doc = snapshot
		return err
	}

	return nil
}

func (d Document) clone() Document {
	out := d
	out.Pairings = append([]Pairing(nil), d.Pairings...)
	out.Filters = append([]string(nil), d.Filters...)
	out.Admins = append([]int64(nil), d.Admins...)
	out.Stats = append([]StatsRecord(nil), d.Stats...)
	return out
}
