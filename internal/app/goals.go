package app

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

const (
	maxGoalTitleLength       = 200
	maxGoalDescriptionLength = 2000
	dateLayout               = "2006-01-02"
)

type GoalService struct {
	goals domain.GoalRepository
}

func NewGoalService(goals domain.GoalRepository) *GoalService {
	return &GoalService{goals: goals}
}

type NewGoal struct {
	Title       string
	Description string
	TargetDate  string // YYYY-MM-DD, optional
}

// GoalPatch carries the fields of a partial update; nil means unchanged.
type GoalPatch struct {
	Title       *string
	Description *string
	Status      *domain.GoalStatus
	Progress    *int
}

func (s *GoalService) List(ctx context.Context, userID uuid.UUID) ([]domain.Goal, error) {
	return s.goals.ListByUser(ctx, userID)
}

func (s *GoalService) Create(ctx context.Context, userID uuid.UUID, in NewGoal) (*domain.Goal, error) {
	title, err := validateGoalTitle(in.Title)
	if err != nil {
		return nil, err
	}
	desc, err := validateGoalDescription(in.Description)
	if err != nil {
		return nil, err
	}

	g := &domain.Goal{
		UserID:      userID,
		Title:       title,
		Description: desc,
		Status:      domain.GoalActive,
	}
	if in.TargetDate != "" {
		t, err := time.Parse(dateLayout, in.TargetDate)
		if err != nil {
			return nil, apperrors.ValidationError("target_date must be YYYY-MM-DD").WithField("target_date", in.TargetDate)
		}
		g.TargetDate = &t
	}

	return s.goals.Create(ctx, g)
}

// Update applies a patch. Completing a goal forces progress to 100.
func (s *GoalService) Update(ctx context.Context, userID, goalID uuid.UUID, patch GoalPatch) (*domain.Goal, error) {
	g, err := s.goals.Get(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		if g.Title, err = validateGoalTitle(*patch.Title); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		if g.Description, err = validateGoalDescription(*patch.Description); err != nil {
			return nil, err
		}
	}
	if patch.Progress != nil {
		if *patch.Progress < 0 || *patch.Progress > 100 {
			return nil, apperrors.ValidationError("progress must be between 0 and 100").WithField("progress", *patch.Progress)
		}
		g.Progress = *patch.Progress
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, apperrors.ValidationError("status must be active, completed or abandoned").WithField("status", string(*patch.Status))
		}
		g.Status = *patch.Status
	}
	if g.Status == domain.GoalCompleted {
		g.Progress = 100
	}

	return s.goals.Update(ctx, g)
}

func validateGoalTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperrors.ValidationError("title is required").WithField("field", "title")
	}
	if utf8.RuneCountInString(title) > maxGoalTitleLength {
		return "", apperrors.ValidationError("title must be at most 200 characters").WithField("field", "title")
	}
	return title, nil
}

func validateGoalDescription(desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	if utf8.RuneCountInString(desc) > maxGoalDescriptionLength {
		return "", apperrors.ValidationError("description must be at most 2000 characters").WithField("field", "description")
	}
	return desc, nil
}
