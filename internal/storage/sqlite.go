// Package storage is the SQLite-backed durable store for sources,
// conversations, message logs, and user memory. It is the single persistence
// point the higher-level stores inject, so tests substitute an in-memory
// database without changing call sites.
package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "chatrelay.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("querying schema_version: %w", err)
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- sources ---

// SaveSource inserts a source at the end of the store order.
func (s *Store) SaveSource(src Source) error {
	_, err := s.db.Exec(`INSERT INTO sources (id, name, content, embedding, position, created_at)
		VALUES (?, ?, ?, NULLIF(?, ''), (SELECT COALESCE(MAX(position), 0) + 1 FROM sources), ?)`,
		src.ID, src.Name, src.Content, src.Embedding, src.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting source: %w", err)
	}
	return nil
}

// ListSources returns all sources in insertion order.
func (s *Store) ListSources() ([]Source, error) {
	rows, err := s.db.Query(`SELECT id, name, content, COALESCE(embedding, ''), created_at
		FROM sources ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.ID, &src.Name, &src.Content, &src.Embedding, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// GetSource returns a single source by id.
func (s *Store) GetSource(id string) (Source, error) {
	var src Source
	err := s.db.QueryRow(`SELECT id, name, content, COALESCE(embedding, ''), created_at
		FROM sources WHERE id = ?`, id).
		Scan(&src.ID, &src.Name, &src.Content, &src.Embedding, &src.CreatedAt)
	if err == sql.ErrNoRows {
		return Source{}, ErrNotFound
	}
	if err != nil {
		return Source{}, fmt.Errorf("querying source %s: %w", id, err)
	}
	return src, nil
}

// UpdateSourceEmbedding replaces a source's stored embedding.
func (s *Store) UpdateSourceEmbedding(id, embedding string) error {
	res, err := s.db.Exec("UPDATE sources SET embedding = NULLIF(?, '') WHERE id = ?", embedding, id)
	if err != nil {
		return fmt.Errorf("updating source embedding %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSource removes a source by id.
func (s *Store) DeleteSource(id string) error {
	res, err := s.db.Exec("DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting source %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- conversations ---

// SaveConversation inserts a conversation record.
func (s *Store) SaveConversation(c Conversation) error {
	_, err := s.db.Exec(`INSERT INTO conversations (id, name, model, active, message_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Model, c.Active, c.MessageCount, c.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

// ListConversations returns all conversations, most recently updated first.
func (s *Store) ListConversations() ([]Conversation, error) {
	rows, err := s.db.Query(`SELECT id, name, model, active, message_count, updated_at
		FROM conversations ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Name, &c.Model, &c.Active, &c.MessageCount, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// GetConversation returns a single conversation by id.
func (s *Store) GetConversation(id string) (Conversation, error) {
	var c Conversation
	err := s.db.QueryRow(`SELECT id, name, model, active, message_count, updated_at
		FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Model, &c.Active, &c.MessageCount, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("querying conversation %s: %w", id, err)
	}
	return c, nil
}

// UpdateConversation overwrites name, model, and updated_at for a conversation.
func (s *Store) UpdateConversation(c Conversation) error {
	res, err := s.db.Exec(`UPDATE conversations SET name = ?, model = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Model, c.UpdatedAt.UTC(), c.ID)
	if err != nil {
		return fmt.Errorf("updating conversation %s: %w", c.ID, err)
	}
	return rowsAffectedOrNotFound(res)
}

// SetActiveConversation marks the given conversation active and all others
// inactive in one transaction.
func (s *Store) SetActiveConversation(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if _, err := tx.Exec("UPDATE conversations SET active = 0 WHERE active = 1"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clearing active flag: %w", err)
	}
	res, err := tx.Exec("UPDATE conversations SET active = 1 WHERE id = ?", id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("setting active flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		tx.Rollback()
		return ErrNotFound
	}
	return tx.Commit()
}

// DeleteConversation removes a conversation and its message log.
func (s *Store) DeleteConversation(id string) error {
	res, err := s.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	return rowsAffectedOrNotFound(res)
}

// AppendMessage stores a message and bumps the conversation's message count
// and updated_at in the same transaction.
func (s *Store) AppendMessage(m Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO conversation_messages (conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?)`, m.ConversationID, m.Role, m.Content, m.CreatedAt.UTC()); err != nil {
		tx.Rollback()
		return fmt.Errorf("inserting message: %w", err)
	}
	res, err := tx.Exec(`UPDATE conversations SET message_count = message_count + 1, updated_at = ?
		WHERE id = ?`, m.CreatedAt.UTC(), m.ConversationID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("bumping message count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		tx.Rollback()
		return ErrNotFound
	}
	return tx.Commit()
}

// ListMessages returns a conversation's messages in append order.
func (s *Store) ListMessages(conversationID string) ([]Message, error) {
	rows, err := s.db.Query(`SELECT conversation_id, role, content, created_at
		FROM conversation_messages WHERE conversation_id = ? ORDER BY id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// DeleteMessages clears a conversation's message log.
func (s *Store) DeleteMessages(conversationID string) error {
	if _, err := s.db.Exec("DELETE FROM conversation_messages WHERE conversation_id = ?", conversationID); err != nil {
		return fmt.Errorf("deleting messages for %s: %w", conversationID, err)
	}
	return nil
}

// --- user memory ---

// GetMemory returns the single memory record, or a zero-value record when
// none has been saved yet.
func (s *Store) GetMemory() (Memory, error) {
	var m Memory
	err := s.db.QueryRow(`SELECT preferences, facts, topics, updated_at FROM user_memory WHERE id = 1`).
		Scan(&m.Preferences, &m.Facts, &m.Topics, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return Memory{Preferences: "{}", Facts: "[]", Topics: "[]"}, nil
	}
	if err != nil {
		return Memory{}, fmt.Errorf("querying memory: %w", err)
	}
	return m, nil
}

// SaveMemory upserts the single memory record.
func (s *Store) SaveMemory(m Memory) error {
	_, err := s.db.Exec(`INSERT INTO user_memory (id, preferences, facts, topics, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET preferences = excluded.preferences,
			facts = excluded.facts, topics = excluded.topics, updated_at = excluded.updated_at`,
		m.Preferences, m.Facts, m.Topics, m.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving memory: %w", err)
	}
	return nil
}

func rowsAffectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
