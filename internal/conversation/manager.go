// Package conversation manages conversation metadata records and their
// message logs. Exactly one conversation is active at a time; deleting the
// active one promotes the most recently updated survivor.
package conversation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatrelay/internal/storage"
)

// Conversation is a conversation metadata record.
type Conversation struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Model        string    `json:"model"`
	Active       bool      `json:"active"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Message is a single stored conversation message.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationStore is the slice of storage.Store the manager needs.
type ConversationStore interface {
	SaveConversation(storage.Conversation) error
	ListConversations() ([]storage.Conversation, error)
	GetConversation(id string) (storage.Conversation, error)
	UpdateConversation(storage.Conversation) error
	SetActiveConversation(id string) error
	DeleteConversation(id string) error
	AppendMessage(storage.Message) error
	ListMessages(conversationID string) ([]storage.Message, error)
	DeleteMessages(conversationID string) error
}

// Manager enforces the conversation invariants over the storage layer.
type Manager struct {
	store ConversationStore
}

// NewManager creates a Manager over the given store.
func NewManager(store ConversationStore) *Manager {
	return &Manager{store: store}
}

// Create starts a new conversation and makes it the active one.
func (m *Manager) Create(name, model string) (Conversation, error) {
	c := Conversation{
		ID:        uuid.New().String(),
		Name:      name,
		Model:     model,
		UpdatedAt: time.Now().UTC(),
	}
	if c.Name == "" {
		c.Name = "New conversation"
	}

	if err := m.store.SaveConversation(toRecord(c)); err != nil {
		return Conversation{}, fmt.Errorf("creating conversation: %w", err)
	}
	if err := m.store.SetActiveConversation(c.ID); err != nil {
		return Conversation{}, fmt.Errorf("activating conversation: %w", err)
	}
	c.Active = true
	return c, nil
}

// List returns all conversations, most recently updated first.
func (m *Manager) List() ([]Conversation, error) {
	recs, err := m.store.ListConversations()
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	convs := make([]Conversation, 0, len(recs))
	for _, rec := range recs {
		convs = append(convs, fromRecord(rec))
	}
	return convs, nil
}

// Get returns a single conversation by id.
func (m *Manager) Get(id string) (Conversation, error) {
	rec, err := m.store.GetConversation(id)
	if err != nil {
		return Conversation{}, err
	}
	return fromRecord(rec), nil
}

// Rename updates a conversation's display name.
func (m *Manager) Rename(id, name string) (Conversation, error) {
	return m.update(id, func(rec *storage.Conversation) {
		rec.Name = name
	})
}

// SetModel updates a conversation's selected model.
func (m *Manager) SetModel(id, model string) (Conversation, error) {
	return m.update(id, func(rec *storage.Conversation) {
		rec.Model = model
	})
}

func (m *Manager) update(id string, mutate func(*storage.Conversation)) (Conversation, error) {
	rec, err := m.store.GetConversation(id)
	if err != nil {
		return Conversation{}, err
	}
	mutate(&rec)
	rec.UpdatedAt = time.Now().UTC()
	if err := m.store.UpdateConversation(rec); err != nil {
		return Conversation{}, err
	}
	return fromRecord(rec), nil
}

// SetActive makes the given conversation the single active one.
func (m *Manager) SetActive(id string) error {
	return m.store.SetActiveConversation(id)
}

// Active returns the currently active conversation, or ErrNotFound when no
// conversations exist.
func (m *Manager) Active() (Conversation, error) {
	recs, err := m.store.ListConversations()
	if err != nil {
		return Conversation{}, fmt.Errorf("listing conversations: %w", err)
	}
	for _, rec := range recs {
		if rec.Active {
			return fromRecord(rec), nil
		}
	}
	return Conversation{}, storage.ErrNotFound
}

// Delete removes a conversation and its message log. Deleting the active
// conversation promotes the most recently updated remaining one, if any.
func (m *Manager) Delete(id string) error {
	rec, err := m.store.GetConversation(id)
	if err != nil {
		return err
	}

	if err := m.store.DeleteMessages(id); err != nil {
		return err
	}
	if err := m.store.DeleteConversation(id); err != nil {
		return err
	}

	if !rec.Active {
		return nil
	}

	remaining, err := m.store.ListConversations()
	if err != nil {
		return fmt.Errorf("listing conversations after delete: %w", err)
	}
	if len(remaining) == 0 {
		return nil
	}
	// ListConversations orders by updated_at descending.
	return m.store.SetActiveConversation(remaining[0].ID)
}

// ClearMessages drops a conversation's message log and resets its count,
// keeping the conversation itself.
func (m *Manager) ClearMessages(conversationID string) error {
	rec, err := m.store.GetConversation(conversationID)
	if err != nil {
		return err
	}
	if err := m.store.DeleteMessages(conversationID); err != nil {
		return err
	}
	rec.MessageCount = 0
	rec.UpdatedAt = time.Now().UTC()
	return m.store.UpdateConversation(rec)
}

// AppendMessage stores a message, bumping the conversation's message count
// and last-modified timestamp.
func (m *Manager) AppendMessage(conversationID, role, content string) error {
	return m.store.AppendMessage(storage.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	})
}

// Messages returns a conversation's message log in append order.
func (m *Manager) Messages(conversationID string) ([]Message, error) {
	if _, err := m.store.GetConversation(conversationID); err != nil {
		return nil, err
	}
	recs, err := m.store.ListMessages(conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	msgs := make([]Message, 0, len(recs))
	for _, rec := range recs {
		msgs = append(msgs, Message{Role: rec.Role, Content: rec.Content, CreatedAt: rec.CreatedAt})
	}
	return msgs, nil
}

func toRecord(c Conversation) storage.Conversation {
	return storage.Conversation{
		ID:           c.ID,
		Name:         c.Name,
		Model:        c.Model,
		Active:       c.Active,
		MessageCount: c.MessageCount,
		UpdatedAt:    c.UpdatedAt,
	}
}

func fromRecord(rec storage.Conversation) Conversation {
	return Conversation{
		ID:           rec.ID,
		Name:         rec.Name,
		Model:        rec.Model,
		Active:       rec.Active,
		MessageCount: rec.MessageCount,
		UpdatedAt:    rec.UpdatedAt,
	}
}
