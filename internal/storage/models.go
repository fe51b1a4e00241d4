package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Source is a persisted prompt-context fragment. Embedding is a JSON array
// stored as text; empty when no vector was computed.
type Source struct {
	ID        string
	Name      string
	Content   string
	Embedding string
	CreatedAt time.Time
}

// Conversation is a conversation metadata record. Message bodies live in
// conversation_messages.
type Conversation struct {
	ID           string
	Name         string
	Model        string
	Active       bool
	MessageCount int
	UpdatedAt    time.Time
}

// Message is a single stored conversation message.
type Message struct {
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// Memory is the single user-memory record. Preferences, Facts, and Topics
// are JSON stored as text; decoding belongs to the memory package.
type Memory struct {
	Preferences string
	Facts       string
	Topics      string
	UpdatedAt   time.Time
}
