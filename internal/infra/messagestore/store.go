// Package messagestore persists conversation messages and result fragments.
package messagestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AAsriyan/vibe/internal/agent/ports"
	"github.com/AAsriyan/vibe/internal/shared/logging"
)

const messageTable = "messages"

// Store implements a Postgres-backed message store.
type Store struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

var _ ports.MessageStore = (*Store)(nil)

// New constructs a Postgres-backed message store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:   pool,
		logger: logging.NewComponentLogger("MessageStore"),
	}
}

// EnsureSchema creates the message table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("message store not initialized")
	}

	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL,
    content TEXT NOT NULL,
    role TEXT NOT NULL,
    type TEXT,
    fragment JSONB,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
    ON %s (conversation_id, created_at DESC);
`, messageTable, messageTable)

	_, err := s.pool.Exec(ctx, query)
	return err
}

// CreateMessage inserts one message row, with an optional fragment payload.
func (s *Store) CreateMessage(ctx context.Context, params ports.CreateMessageParams) (*ports.StoredMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("message store not initialized")
	}
	if params.ConversationID == "" {
		return nil, fmt.Errorf("conversation id is required")
	}

	message := &ports.StoredMessage{
		ID:             uuid.NewString(),
		ConversationID: params.ConversationID,
		Content:        params.Content,
		Role:           params.Role,
		Type:           params.Type,
		Fragment:       params.Fragment,
		CreatedAt:      time.Now().UTC(),
	}

	var fragment []byte
	if params.Fragment != nil {
		encoded, err := json.Marshal(params.Fragment)
		if err != nil {
			return nil, fmt.Errorf("encode fragment: %w", err)
		}
		fragment = encoded
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, conversation_id, content, role, type, fragment, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
`, messageTable)

	_, err := s.pool.Exec(ctx, query,
		message.ID,
		message.ConversationID,
		message.Content,
		string(message.Role),
		string(message.Type),
		fragment,
		message.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	s.logger.Debug("Message persisted: conversation=%s role=%s type=%s",
		message.ConversationID, message.Role, message.Type)
	return message, nil
}

// ListRecentMessages returns up to limit messages for a conversation, newest
// first.
func (s *Store) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]ports.StoredMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("message store not initialized")
	}
	if limit <= 0 {
		limit = 5
	}

	query := fmt.Sprintf(`
SELECT id, conversation_id, content, role, COALESCE(type, ''), fragment, created_at
FROM %s
WHERE conversation_id = $1
ORDER BY created_at DESC
LIMIT $2
`, messageTable)

	rows, err := s.pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []ports.StoredMessage
	for rows.Next() {
		var (
			msg      ports.StoredMessage
			role     string
			msgType  string
			fragment []byte
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Content, &role, &msgType, &fragment, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = ports.MessageRole(role)
		msg.Type = ports.MessageType(msgType)
		if len(fragment) > 0 {
			var decoded ports.Fragment
			if err := json.Unmarshal(fragment, &decoded); err != nil {
				return nil, fmt.Errorf("decode fragment: %w", err)
			}
			msg.Fragment = &decoded
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
