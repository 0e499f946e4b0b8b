package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateEmail is returned when a user with the same normalized email
// already exists.
var ErrDuplicateEmail = errors.New("email already registered")

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        email TEXT UNIQUE NOT NULL,
        full_name TEXT NOT NULL,
        password_hash TEXT NOT NULL,
        profile_notes TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS conversations (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        title TEXT NOT NULL DEFAULT 'Claire session',
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        conversation_id TEXT NOT NULL,
        sender_role TEXT NOT NULL CHECK (sender_role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (conversation_id) REFERENCES conversations (id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations (user_id, is_active);
    CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, created_at);
    `
	_, err := s.db.Exec(schema)
	return err
}

// NormalizeEmail applies the lookup normalization: trim whitespace, lowercase.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User methods

func (s *SQLiteStore) GetUserByEmail(email string) (*User, error) {
	var user User
	err := s.db.QueryRow(
		"SELECT id, email, full_name, password_hash, profile_notes, created_at FROM users WHERE email = ?",
		NormalizeEmail(email),
	).Scan(&user.ID, &user.Email, &user.FullName, &user.PasswordHash, &user.ProfileNotes, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) GetUserByID(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow(
		"SELECT id, email, full_name, password_hash, profile_notes, created_at FROM users WHERE id = ?",
		id,
	).Scan(&user.ID, &user.Email, &user.FullName, &user.PasswordHash, &user.ProfileNotes, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// CreateUser persists a new user. The email is normalized, the display name
// trimmed, and blank profile notes stored as NULL. A uniqueness violation on
// the email surfaces as ErrDuplicateEmail.
func (s *SQLiteStore) CreateUser(email, fullName, passwordHash, profileNotes string) (*User, error) {
	notes := nullableText(profileNotes)
	res, err := s.db.Exec(
		"INSERT INTO users (email, full_name, password_hash, profile_notes) VALUES (?, ?, ?, ?)",
		NormalizeEmail(email), strings.TrimSpace(fullName), passwordHash, notes,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetUserByID(id)
}

func (s *SQLiteStore) UpdateUserProfileNotes(userID int64, profileNotes string) error {
	res, err := s.db.Exec("UPDATE users SET profile_notes = ? WHERE id = ?", nullableText(profileNotes), userID)
	if err != nil {
		return fmt.Errorf("failed to update profile notes: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("user not found, profile notes not updated")
	}
	return nil
}

// UpdateUserCredentials resynchronizes a seeded account's display name and
// password hash with the current deployment configuration.
func (s *SQLiteStore) UpdateUserCredentials(userID int64, fullName, passwordHash string) error {
	res, err := s.db.Exec(
		"UPDATE users SET full_name = ?, password_hash = ? WHERE id = ?",
		strings.TrimSpace(fullName), passwordHash, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user credentials: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("user not found, credentials not updated")
	}
	return nil
}

// Conversation methods

func (s *SQLiteStore) CreateConversation(userID int64, title string) (*Conversation, error) {
	conv := &Conversation{
		ID:       uuid.NewString(),
		UserID:   userID,
		Title:    title,
		IsActive: true,
	}
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	_, err := s.db.Exec(
		"INSERT INTO conversations (id, user_id, title, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		conv.ID, conv.UserID, conv.Title, conv.IsActive, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}
	return conv, nil
}

func (s *SQLiteStore) GetConversationByID(conversationID string, userID int64) (*Conversation, error) {
	var conv Conversation
	err := s.db.QueryRow(
		"SELECT id, user_id, title, is_active, created_at, updated_at FROM conversations WHERE id = ? AND user_id = ?",
		conversationID, userID,
	).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.IsActive, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// GetNewestActiveConversation returns the most recently created conversation
// still flagged active for the user, or nil if there is none.
func (s *SQLiteStore) GetNewestActiveConversation(userID int64) (*Conversation, error) {
	var conv Conversation
	err := s.db.QueryRow(
		`SELECT id, user_id, title, is_active, created_at, updated_at
         FROM conversations
         WHERE user_id = ? AND is_active = TRUE
         ORDER BY created_at DESC, rowid DESC
         LIMIT 1`,
		userID,
	).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.IsActive, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query active conversation: %w", err)
	}
	return &conv, nil
}

// StartNewConversation deactivates every conversation of the user and creates
// a fresh active one, inside a single transaction.
func (s *SQLiteStore) StartNewConversation(userID int64, title string) (*Conversation, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.Exec(
		"UPDATE conversations SET is_active = FALSE, updated_at = ? WHERE user_id = ?",
		now, userID,
	); err != nil {
		return nil, fmt.Errorf("failed to deactivate conversations: %w", err)
	}

	conv := &Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := tx.Exec(
		"INSERT INTO conversations (id, user_id, title, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		conv.ID, conv.UserID, conv.Title, conv.IsActive, conv.CreatedAt, conv.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit new conversation: %w", err)
	}
	return conv, nil
}

func (s *SQLiteStore) GetConversationsByUserID(userID int64) ([]Conversation, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, title, is_active, created_at, updated_at FROM conversations WHERE user_id = ? ORDER BY created_at DESC, rowid DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.IsActive, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// DeleteConversation removes a conversation and, via the schema's cascade,
// all of its messages.
func (s *SQLiteStore) DeleteConversation(conversationID string, userID int64) error {
	res, err := s.db.Exec("DELETE FROM conversations WHERE id = ? AND user_id = ?", conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Message methods

func (s *SQLiteStore) CreateMessage(msg *Message) error {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()

	_, err := s.db.Exec(
		"INSERT INTO messages (id, conversation_id, sender_role, content, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.ConversationID, msg.SenderRole, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// GetLastNMessages returns the most recent n messages of a conversation in
// ascending creation order. Identical timestamps are tie-broken by rowid,
// which reflects insertion order.
func (s *SQLiteStore) GetLastNMessages(conversationID string, n int) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT id, conversation_id, sender_role, content, created_at
         FROM messages
         WHERE conversation_id = ?
         ORDER BY created_at DESC, rowid DESC
         LIMIT ?`,
		conversationID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderRole, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Flip newest-first into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func nullableText(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
