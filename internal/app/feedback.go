package app

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

const maxCommentLength = 2000

type FeedbackService struct {
	feedback domain.FeedbackRepository
	sessions domain.CoachingSessionRepository
}

func NewFeedbackService(feedback domain.FeedbackRepository, sessions domain.CoachingSessionRepository) *FeedbackService {
	return &FeedbackService{feedback: feedback, sessions: sessions}
}

// Submit records a rating. A referenced session must belong to the user.
func (s *FeedbackService) Submit(ctx context.Context, userID uuid.UUID, rating int, comment string, sessionID *uuid.UUID) (*domain.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.ValidationError("rating must be between 1 and 5").WithField("rating", rating)
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, apperrors.ValidationError("comment must be at most 2000 characters").WithField("field", "comment")
	}

	if sessionID != nil {
		if _, err := s.sessions.Get(ctx, userID, *sessionID); err != nil {
			return nil, err
		}
	}

	return s.feedback.Create(ctx, &domain.Feedback{
		UserID:    userID,
		SessionID: sessionID,
		Rating:    rating,
		Comment:   comment,
	})
}
