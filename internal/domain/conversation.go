package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ConversationMode string

const (
	ModeChat  ConversationMode = "chat"
	ModeVoice ConversationMode = "voice"
)

type MessageRole string

const (
	RoleUserMessage      MessageRole = "user"
	RoleAssistantMessage MessageRole = "assistant"
)

type Conversation struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Mode      ConversationMode
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	UserID         uuid.UUID
	Role           MessageRole
	Content        string
	CreatedAt      time.Time
}

type ConversationRepository interface {
	Create(ctx context.Context, userID uuid.UUID, title string, mode ConversationMode) (*Conversation, error)
	// Get returns ErrConversationNotFound when the conversation belongs to another user.
	Get(ctx context.Context, userID, conversationID uuid.UUID) (*Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Conversation, error)
	Touch(ctx context.Context, conversationID uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, conversationID, userID uuid.UUID, role MessageRole, content string) (*Message, error)
	// ListRecent returns the newest limit messages in chronological order.
	ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]Message, error)
	ListByUserBetween(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]Message, error)
	UsersWithMessagesBetween(ctx context.Context, start, end time.Time) ([]uuid.UUID, error)
}
