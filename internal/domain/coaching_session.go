package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// CanTransitionTo reports whether a booked session may move to next.
// Only scheduled sessions change state; completed and cancelled are final.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	return s == SessionScheduled && (next == SessionCompleted || next == SessionCancelled)
}

type CoachingSession struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	ScheduledAt     time.Time
	DurationMinutes int
	Topic           string
	Status          SessionStatus
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CoachingSessionRepository interface {
	Create(ctx context.Context, s *CoachingSession) (*CoachingSession, error)
	Get(ctx context.Context, userID, sessionID uuid.UUID) (*CoachingSession, error)
	// ListByUser returns upcoming scheduled sessions first, then the rest newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]CoachingSession, error)
	Update(ctx context.Context, s *CoachingSession) (*CoachingSession, error)
}
