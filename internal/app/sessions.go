package app

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

const (
	minSessionMinutes  = 15
	maxSessionMinutes  = 180
	defaultSessionMins = 60
	maxTopicLength     = 200
	maxNotesLength     = 5000
)

// SessionService books and closes coaching sessions.
type SessionService struct {
	sessions domain.CoachingSessionRepository
	clock    clockwork.Clock
}

func NewSessionService(sessions domain.CoachingSessionRepository, clock clockwork.Clock) *SessionService {
	return &SessionService{sessions: sessions, clock: clock}
}

type NewSession struct {
	ScheduledAt     string // RFC3339
	DurationMinutes int
	Topic           string
}

type SessionPatch struct {
	Status *domain.SessionStatus
	Notes  *string
}

func (s *SessionService) List(ctx context.Context, userID uuid.UUID) ([]domain.CoachingSession, error) {
	return s.sessions.ListByUser(ctx, userID)
}

func (s *SessionService) Schedule(ctx context.Context, userID uuid.UUID, in NewSession) (*domain.CoachingSession, error) {
	at, err := time.Parse(time.RFC3339, in.ScheduledAt)
	if err != nil {
		return nil, apperrors.ValidationError("scheduled_at must be an RFC3339 timestamp").WithField("scheduled_at", in.ScheduledAt)
	}
	if !at.After(s.clock.Now()) {
		return nil, apperrors.ValidationError("scheduled_at must be in the future").WithField("scheduled_at", in.ScheduledAt)
	}

	duration := in.DurationMinutes
	if duration == 0 {
		duration = defaultSessionMins
	}
	if duration < minSessionMinutes || duration > maxSessionMinutes {
		return nil, apperrors.ValidationError(fmt.Sprintf("duration_minutes must be between %d and %d", minSessionMinutes, maxSessionMinutes)).
			WithField("duration_minutes", duration)
	}

	topic := strings.TrimSpace(in.Topic)
	if utf8.RuneCountInString(topic) > maxTopicLength {
		return nil, apperrors.ValidationError("topic must be at most 200 characters").WithField("field", "topic")
	}

	return s.sessions.Create(ctx, &domain.CoachingSession{
		UserID:          userID,
		ScheduledAt:     at.UTC(),
		DurationMinutes: duration,
		Topic:           topic,
		Status:          domain.SessionScheduled,
	})
}

// Update changes notes and moves a scheduled session to completed or
// cancelled. Any other transition is ErrInvalidTransition.
func (s *SessionService) Update(ctx context.Context, userID, sessionID uuid.UUID, patch SessionPatch) (*domain.CoachingSession, error) {
	cs, err := s.sessions.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && *patch.Status != cs.Status {
		switch *patch.Status {
		case domain.SessionScheduled, domain.SessionCompleted, domain.SessionCancelled:
		default:
			return nil, apperrors.ValidationError("status must be scheduled, completed or cancelled").WithField("status", string(*patch.Status))
		}
		if !cs.Status.CanTransitionTo(*patch.Status) {
			return nil, fmt.Errorf("%s -> %s: %w", cs.Status, *patch.Status, domain.ErrInvalidTransition)
		}
		cs.Status = *patch.Status
	}

	if patch.Notes != nil {
		notes := strings.TrimSpace(*patch.Notes)
		if utf8.RuneCountInString(notes) > maxNotesLength {
			return nil, apperrors.ValidationError("notes must be at most 5000 characters").WithField("field", "notes")
		}
		cs.Notes = notes
	}

	return s.sessions.Update(ctx, cs)
}
