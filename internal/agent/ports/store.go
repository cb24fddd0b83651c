package ports

import (
	"context"
	"time"
)

// MessageRole identifies the author of a stored conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
)

// MessageType classifies an assistant message.
type MessageType string

const (
	TypeResult MessageType = "RESULT"
	TypeError  MessageType = "ERROR"
)

// Fragment is the persisted artifact of a successful run.
type Fragment struct {
	SandboxURL string            `json:"sandbox_url"`
	Title      string            `json:"title"`
	Files      map[string]string `json:"files"`
}

// StoredMessage is one row of the conversation log.
type StoredMessage struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Content        string      `json:"content"`
	Role           MessageRole `json:"role"`
	Type           MessageType `json:"type,omitempty"`
	Fragment       *Fragment   `json:"fragment,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// CreateMessageParams carries the fields for a new message row.
type CreateMessageParams struct {
	ConversationID string
	Content        string
	Role           MessageRole
	Type           MessageType
	Fragment       *Fragment
}

// MessageStore persists and lists conversation messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, params CreateMessageParams) (*StoredMessage, error)

	// ListRecentMessages returns up to limit messages for a conversation,
	// newest first.
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]StoredMessage, error)
}
