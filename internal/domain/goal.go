package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalAbandoned GoalStatus = "abandoned"
)

func (s GoalStatus) Valid() bool {
	switch s {
	case GoalActive, GoalCompleted, GoalAbandoned:
		return true
	}
	return false
}

type Goal struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description string
	TargetDate  *time.Time
	Status      GoalStatus
	Progress    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type GoalRepository interface {
	Create(ctx context.Context, g *Goal) (*Goal, error)
	Get(ctx context.Context, userID, goalID uuid.UUID) (*Goal, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Goal, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]Goal, error)
	Update(ctx context.Context, g *Goal) (*Goal, error)
}
