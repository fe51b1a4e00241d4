// Package source manages the ordered collection of named text fragments
// available as prompt context, plus the session-scoped selection set that
// marks which of them the next prompt should include.
package source

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatrelay/internal/storage"
)

// Source is a named, persisted text fragment usable as prompt context.
// Immutable after creation; the embedding, when present, is never recomputed.
type Source struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Persistence is the slice of storage.Store the source store needs.
type Persistence interface {
	SaveSource(storage.Source) error
	ListSources() ([]storage.Source, error)
	GetSource(id string) (storage.Source, error)
	UpdateSourceEmbedding(id, embedding string) error
	DeleteSource(id string) error
}

// Store holds persisted sources and the in-memory selection set. The
// selection always references existing sources: Remove drops the id from the
// selection in the same critical section, so no observable state has a
// dangling selected id.
type Store struct {
	mu       sync.Mutex
	db       Persistence
	selected map[string]struct{}
}

// NewStore creates a Store over the given persistence. The selection set
// starts empty; it is session state, not persisted.
func NewStore(db Persistence) *Store {
	return &Store{
		db:       db,
		selected: make(map[string]struct{}),
	}
}

// Add persists a source, assigning a fresh id when none is set. Sources are
// not deduplicated: two sources may share a name or content.
func (s *Store) Add(src Source) (Source, error) {
	if src.ID == "" {
		src.ID = uuid.New().String()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}

	rec, err := toRecord(src)
	if err != nil {
		return Source{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.SaveSource(rec); err != nil {
		return Source{}, fmt.Errorf("saving source: %w", err)
	}
	return src, nil
}

// Remove deletes a source and removes its id from the selection set
// atomically with respect to other Store operations.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteSource(id); err != nil {
		return err
	}
	delete(s.selected, id)
	return nil
}

// List returns all sources in insertion order.
func (s *Store) List() ([]Source, error) {
	recs, err := s.db.ListSources()
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	sources := make([]Source, 0, len(recs))
	for _, rec := range recs {
		src, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// Get returns a single source by id.
func (s *Store) Get(id string) (Source, error) {
	rec, err := s.db.GetSource(id)
	if err != nil {
		return Source{}, err
	}
	return fromRecord(rec)
}

// SetEmbedding stores an embedding for an existing source. Used by the
// backfill path to fill vectors for sources added while the vendor was
// unavailable; content and name are untouched.
func (s *Store) SetEmbedding(id string, embedding []float32) error {
	b, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("encoding embedding: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.UpdateSourceEmbedding(id, string(b))
}

// Select marks a source as included in the next prompt. The id must
// reference an existing source.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.GetSource(id); err != nil {
		return err
	}
	s.selected[id] = struct{}{}
	return nil
}

// Deselect removes a source from the selection set. Deselecting an
// unselected id is a no-op.
func (s *Store) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selected, id)
}

// SelectedIDs returns the selected ids in store insertion order — not
// selection-click order — so assembled context is deterministic for a fixed
// selection set.
func (s *Store) SelectedIDs() ([]string, error) {
	selected, err := s.Selected()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(selected))
	for _, src := range selected {
		ids = append(ids, src.ID)
	}
	return ids, nil
}

// Selected returns the selected sources in store insertion order.
func (s *Store) Selected() ([]Source, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var selected []Source
	for _, src := range all {
		if _, ok := s.selected[src.ID]; ok {
			selected = append(selected, src)
		}
	}
	return selected, nil
}

func toRecord(src Source) (storage.Source, error) {
	rec := storage.Source{
		ID:        src.ID,
		Name:      src.Name,
		Content:   src.Text,
		CreatedAt: src.CreatedAt,
	}
	if src.Embedding != nil {
		b, err := json.Marshal(src.Embedding)
		if err != nil {
			return storage.Source{}, fmt.Errorf("encoding embedding: %w", err)
		}
		rec.Embedding = string(b)
	}
	return rec, nil
}

func fromRecord(rec storage.Source) (Source, error) {
	src := Source{
		ID:        rec.ID,
		Name:      rec.Name,
		Text:      rec.Content,
		CreatedAt: rec.CreatedAt,
	}
	if rec.Embedding != "" {
		if err := json.Unmarshal([]byte(rec.Embedding), &src.Embedding); err != nil {
			return Source{}, fmt.Errorf("decoding embedding for %s: %w", rec.ID, err)
		}
	}
	return src, nil
}
