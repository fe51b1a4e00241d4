// Package memory manages the accumulated user-memory record: a free-form
// preference map plus deduplicated fact and topic lists. Semantically
// append-only — updates union with what is stored, nothing is removed
// automatically.
package memory

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"chatrelay/internal/storage"
)

// Memory is the accumulated user preference record.
type Memory struct {
	Preferences map[string]any `json:"preferences"`
	Facts       []string       `json:"facts"`
	Topics      []string       `json:"topics"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// MemoryStore is the slice of storage.Store the manager needs.
type MemoryStore interface {
	GetMemory() (storage.Memory, error)
	SaveMemory(storage.Memory) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Manager provides synchronized access to the single user-memory record.
type Manager struct {
	store MemoryStore
	clock Clock

	mu  sync.RWMutex
	mem Memory
}

// NewManager creates a Manager and loads the stored record.
func NewManager(store MemoryStore) (*Manager, error) {
	return NewManagerWithClock(store, realClock{})
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store MemoryStore, clock Clock) (*Manager, error) {
	m := &Manager{store: store, clock: clock}

	rec, err := store.GetMemory()
	if err != nil {
		return nil, fmt.Errorf("loading memory: %w", err)
	}
	mem, err := decode(rec)
	if err != nil {
		return nil, err
	}
	m.mem = mem
	return m, nil
}

// Get returns a copy of the current memory.
func (m *Manager) Get() Memory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyMemory(m.mem)
}

// Update unions the given facts and topics into the stored lists (first-seen
// order kept, duplicates dropped) and merges the preference map, then
// persists the result. Nothing is ever removed.
func (m *Manager) Update(facts, topics []string, prefs map[string]any) (Memory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mem.Facts = union(m.mem.Facts, facts)
	m.mem.Topics = union(m.mem.Topics, topics)
	if len(prefs) > 0 {
		if m.mem.Preferences == nil {
			m.mem.Preferences = make(map[string]any, len(prefs))
		}
		for k, v := range prefs {
			m.mem.Preferences[k] = v
		}
	}
	m.mem.UpdatedAt = m.clock.Now()

	rec, err := encode(m.mem)
	if err != nil {
		return Memory{}, err
	}
	if err := m.store.SaveMemory(rec); err != nil {
		return Memory{}, fmt.Errorf("saving memory: %w", err)
	}
	return copyMemory(m.mem), nil
}

// maxSummaryChars caps the summary to stay under ~500 tokens (4 chars/token).
const maxSummaryChars = 2000

// Summary returns a compact string representation of the memory suitable for
// injection into a system prompt.
func (m *Manager) Summary() string {
	mem := m.Get()

	var parts []string
	if len(mem.Preferences) > 0 {
		var kvs []string
		for _, k := range sortedKeys(mem.Preferences) {
			kvs = append(kvs, fmt.Sprintf("%s=%v", k, mem.Preferences[k]))
		}
		parts = append(parts, fmt.Sprintf("Preferences: %s.", strings.Join(kvs, ", ")))
	}
	if len(mem.Facts) > 0 {
		parts = append(parts, fmt.Sprintf("Known facts: %s.", strings.Join(mem.Facts, "; ")))
	}
	if len(mem.Topics) > 0 {
		parts = append(parts, fmt.Sprintf("Topics of interest: %s.", strings.Join(mem.Topics, ", ")))
	}

	if len(parts) == 0 {
		return ""
	}

	summary := strings.Join(parts, " ")
	if len(summary) > maxSummaryChars {
		// Don't split a multi-byte UTF-8 character.
		end := maxSummaryChars
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		summary = summary[:end]
	}
	return summary
}

func union(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, v := range existing {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for _, v := range incoming {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic summary output.
	sort.Strings(keys)
	return keys
}

func copyMemory(mem Memory) Memory {
	out := Memory{UpdatedAt: mem.UpdatedAt}
	if mem.Preferences != nil {
		out.Preferences = make(map[string]any, len(mem.Preferences))
		for k, v := range mem.Preferences {
			out.Preferences[k] = v
		}
	}
	out.Facts = append([]string(nil), mem.Facts...)
	out.Topics = append([]string(nil), mem.Topics...)
	return out
}

func decode(rec storage.Memory) (Memory, error) {
	mem := Memory{UpdatedAt: rec.UpdatedAt}
	if rec.Preferences != "" {
		if err := json.Unmarshal([]byte(rec.Preferences), &mem.Preferences); err != nil {
			return Memory{}, fmt.Errorf("decoding preferences: %w", err)
		}
	}
	if rec.Facts != "" {
		if err := json.Unmarshal([]byte(rec.Facts), &mem.Facts); err != nil {
			return Memory{}, fmt.Errorf("decoding facts: %w", err)
		}
	}
	if rec.Topics != "" {
		if err := json.Unmarshal([]byte(rec.Topics), &mem.Topics); err != nil {
			return Memory{}, fmt.Errorf("decoding topics: %w", err)
		}
	}
	return mem, nil
}

func encode(mem Memory) (storage.Memory, error) {
	prefs := mem.Preferences
	if prefs == nil {
		prefs = map[string]any{}
	}
	pb, err := json.Marshal(prefs)
	if err != nil {
		return storage.Memory{}, fmt.Errorf("encoding preferences: %w", err)
	}
	fb, err := json.Marshal(orEmpty(mem.Facts))
	if err != nil {
		return storage.Memory{}, fmt.Errorf("encoding facts: %w", err)
	}
	tb, err := json.Marshal(orEmpty(mem.Topics))
	if err != nil {
		return storage.Memory{}, fmt.Errorf("encoding topics: %w", err)
	}
	return storage.Memory{
		Preferences: string(pb),
		Facts:       string(fb),
		Topics:      string(tb),
		UpdatedAt:   mem.UpdatedAt,
	}, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
