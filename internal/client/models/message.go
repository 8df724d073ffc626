package models

import (
	"strings"
	"time"
)

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TempIDPrefix tags ids assigned locally before the row is persisted.
const TempIDPrefix = "temp-"

// ChatMessage is a row of the messages table.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTemporary reports whether the message still carries a local id.
func (m ChatMessage) IsTemporary() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// NewChatMessage is the insert payload for messages.
type NewChatMessage struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
	Role    Role   `json:"role"`
}
