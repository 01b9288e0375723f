package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/coachpulse/internal/domain"
)

const conversationColumns = `id, user_id, title, mode, created_at, updated_at`

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func scanConversation(row scanner) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Mode, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepo) Create(ctx context.Context, userID uuid.UUID, title string, mode domain.ConversationMode) (*domain.Conversation, error) {
	c, err := scanConversation(r.pool.QueryRow(ctx, `
		INSERT INTO conversations (user_id, title, mode)
		VALUES ($1, $2, $3)
		RETURNING `+conversationColumns, userID, title, mode))
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) Get(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error) {
	c, err := scanConversation(r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE id = $1 AND user_id = $2`, conversationID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return collect(rows, scanConversation)
}

func (r *ConversationRepo) Touch(ctx context.Context, conversationID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, conversationID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

const messageColumns = `id, conversation_id, user_id, role, content, created_at`

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func scanMessage(row scanner) (*domain.Message, error) {
	var m domain.Message
	if err := row.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) Create(ctx context.Context, conversationID, userID uuid.UUID, role domain.MessageRole, content string) (*domain.Message, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, user_id, role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING `+messageColumns, conversationID, userID, role, content))
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+` FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at, id`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	return collect(rows, scanMessage)
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at, id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return collect(rows, scanMessage)
}

func (r *MessageRepo) ListByUserBetween(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at, id`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages in window: %w", err)
	}
	return collect(rows, scanMessage)
}

func (r *MessageRepo) UsersWithMessagesBetween(ctx context.Context, start, end time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT user_id FROM messages
		WHERE created_at >= $1 AND created_at < $2`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan active users: %w", err)
	}
	return ids, nil
}

// collect drains rows through scan, closing rows in every case.
func collect[T any](rows pgx.Rows, scan func(scanner) (*T, error)) ([]T, error) {
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return out, nil
}
