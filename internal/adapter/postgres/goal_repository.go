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

const goalColumns = `id, user_id, title, description, target_date, status, progress, created_at, updated_at`

type GoalRepo struct {
	pool *pgxpool.Pool
}

func NewGoalRepo(pool *pgxpool.Pool) *GoalRepo {
	return &GoalRepo{pool: pool}
}

func scanGoal(row scanner) (*domain.Goal, error) {
	var g domain.Goal
	if err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.TargetDate, &g.Status, &g.Progress, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GoalRepo) Create(ctx context.Context, g *domain.Goal) (*domain.Goal, error) {
	saved, err := scanGoal(r.pool.QueryRow(ctx, `
		INSERT INTO goals (user_id, title, description, target_date, status, progress)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+goalColumns, g.UserID, g.Title, g.Description, g.TargetDate, g.Status, g.Progress))
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}
	return saved, nil
}

func (r *GoalRepo) Get(ctx context.Context, userID, goalID uuid.UUID) (*domain.Goal, error) {
	g, err := scanGoal(r.pool.QueryRow(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = $1 AND user_id = $2`, goalID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGoalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return g, nil
}

func (r *GoalRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Goal, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+goalColumns+` FROM goals WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	return collect(rows, scanGoal)
}

func (r *GoalRepo) ListActive(ctx context.Context, userID uuid.UUID) ([]domain.Goal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+goalColumns+` FROM goals
		WHERE user_id = $1 AND status = 'active'
		ORDER BY target_date NULLS LAST, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active goals: %w", err)
	}
	return collect(rows, scanGoal)
}

func (r *GoalRepo) Update(ctx context.Context, g *domain.Goal) (*domain.Goal, error) {
	saved, err := scanGoal(r.pool.QueryRow(ctx, `
		UPDATE goals
		SET title = $3, description = $4, target_date = $5, status = $6, progress = $7, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+goalColumns, g.ID, g.UserID, g.Title, g.Description, g.TargetDate, g.Status, g.Progress))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGoalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}
	return saved, nil
}
