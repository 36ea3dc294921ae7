package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageType records the input modality of a message, not its rendering.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeVoice MessageType = "voice"
)

// Message is a single turn in the conversation. Messages are immutable once
// created except through Store.UpdateMessage, which preserves ID, Role and
// Timestamp.
type Message struct {
	ID          string
	Role        Role
	Type        MessageType
	Content     string
	Timestamp   time.Time
	Suggestions []string
	Metadata    map[string]any
}

// NewMessage creates a message with a generated ID and the current time.
func NewMessage(role Role, typ MessageType, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Type:      typ,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Patch describes a partial update to an existing message. Nil fields are
// left untouched.
type Patch struct {
	Content     *string
	Type        *MessageType
	Suggestions []string
	Metadata    map[string]any
}
