package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/coachpulse/internal/domain"
)

type FeedbackRepo struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepo(pool *pgxpool.Pool) *FeedbackRepo {
	return &FeedbackRepo{pool: pool}
}

func (r *FeedbackRepo) Create(ctx context.Context, f *domain.Feedback) (*domain.Feedback, error) {
	var saved domain.Feedback
	err := r.pool.QueryRow(ctx, `
		INSERT INTO feedback (user_id, session_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, session_id, rating, comment, created_at`,
		f.UserID, f.SessionID, f.Rating, f.Comment,
	).Scan(&saved.ID, &saved.UserID, &saved.SessionID, &saved.Rating, &saved.Comment, &saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create feedback: %w", err)
	}
	return &saved, nil
}

func (r *FeedbackRepo) ListRecent(ctx context.Context, limit int) ([]domain.Feedback, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT f.id, f.user_id, f.session_id, f.rating, f.comment, f.created_at, p.email
		FROM feedback f
		JOIN profiles p ON p.id = f.user_id
		ORDER BY f.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return collect(rows, func(row scanner) (*domain.Feedback, error) {
		var f domain.Feedback
		if err := row.Scan(&f.ID, &f.UserID, &f.SessionID, &f.Rating, &f.Comment, &f.CreatedAt, &f.UserEmail); err != nil {
			return nil, err
		}
		return &f, nil
	})
}
