package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Feedback struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	SessionID *uuid.UUID
	Rating    int
	Comment   string
	CreatedAt time.Time

	// UserEmail is populated by admin listings only.
	UserEmail string
}

type FeedbackRepository interface {
	Create(ctx context.Context, f *Feedback) (*Feedback, error)
	ListRecent(ctx context.Context, limit int) ([]Feedback, error)
}
