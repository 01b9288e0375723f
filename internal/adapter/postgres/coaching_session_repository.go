package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/coachpulse/internal/domain"
)

const sessionColumns = `id, user_id, scheduled_at, duration_minutes, topic, status, notes, created_at, updated_at`

type CoachingSessionRepo struct {
	pool *pgxpool.Pool
}

func NewCoachingSessionRepo(pool *pgxpool.Pool) *CoachingSessionRepo {
	return &CoachingSessionRepo{pool: pool}
}

func scanSession(row scanner) (*domain.CoachingSession, error) {
	var s domain.CoachingSession
	if err := row.Scan(&s.ID, &s.UserID, &s.ScheduledAt, &s.DurationMinutes, &s.Topic, &s.Status, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *CoachingSessionRepo) Create(ctx context.Context, s *domain.CoachingSession) (*domain.CoachingSession, error) {
	saved, err := scanSession(r.pool.QueryRow(ctx, `
		INSERT INTO coaching_sessions (user_id, scheduled_at, duration_minutes, topic, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+sessionColumns, s.UserID, s.ScheduledAt, s.DurationMinutes, s.Topic, s.Status, s.Notes))
	if err != nil {
		return nil, fmt.Errorf("failed to create coaching session: %w", err)
	}
	return saved, nil
}

func (r *CoachingSessionRepo) Get(ctx context.Context, userID, sessionID uuid.UUID) (*domain.CoachingSession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM coaching_sessions WHERE id = $1 AND user_id = $2`, sessionID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get coaching session: %w", err)
	}
	return s, nil
}

func (r *CoachingSessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CoachingSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM coaching_sessions
		WHERE user_id = $1
		ORDER BY
			(status = 'scheduled' AND scheduled_at >= NOW()) DESC,
			CASE WHEN status = 'scheduled' AND scheduled_at >= NOW() THEN scheduled_at END ASC,
			scheduled_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list coaching sessions: %w", err)
	}
	return collect(rows, scanSession)
}

func (r *CoachingSessionRepo) Update(ctx context.Context, s *domain.CoachingSession) (*domain.CoachingSession, error) {
	saved, err := scanSession(r.pool.QueryRow(ctx, `
		UPDATE coaching_sessions
		SET status = $3, notes = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+sessionColumns, s.ID, s.UserID, s.Status, s.Notes))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update coaching session: %w", err)
	}
	return saved, nil
}
