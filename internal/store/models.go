package store

import "time"

// Sender roles are a closed set; the schema enforces it with a CHECK.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"` // stored trimmed and lowercased
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	ProfileNotes *string   `json:"profile_notes"`
	CreatedAt    time.Time `json:"created_at"`
}

type Conversation struct {
	ID        string    `json:"id"` // UUID
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID             string    `json:"id"` // UUID
	ConversationID string    `json:"conversation_id"`
	SenderRole     string    `json:"sender_role"` // RoleUser or RoleAssistant
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
