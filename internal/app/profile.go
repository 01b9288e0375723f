package app

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

const (
	maxCoachingFocusLength = 500
	maxCompanyNameLength   = 200
	maxIndustryLength      = 100
	maxChallengesLength    = 2000
)

type ProfileService struct {
	profiles domain.ProfileRepository
	business domain.BusinessProfileRepository
}

func NewProfileService(profiles domain.ProfileRepository, business domain.BusinessProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles, business: business}
}

func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	return s.profiles.Get(ctx, userID)
}

func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
	upd, err := normalizeProfileUpdate(upd)
	if err != nil {
		return nil, err
	}
	return s.profiles.Update(ctx, userID, upd)
}

// CompleteOnboarding saves the onboarding answers and unlocks the app pages.
func (s *ProfileService) CompleteOnboarding(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
	upd, err := normalizeProfileUpdate(upd)
	if err != nil {
		return nil, err
	}
	if upd.FullName == "" {
		return nil, apperrors.ValidationError("full_name is required").WithField("field", "full_name")
	}
	return s.profiles.CompleteOnboarding(ctx, userID, upd)
}

func normalizeProfileUpdate(upd domain.ProfileUpdate) (domain.ProfileUpdate, error) {
	upd.FullName = strings.TrimSpace(upd.FullName)
	upd.CoachingFocus = strings.TrimSpace(upd.CoachingFocus)
	upd.Timezone = strings.TrimSpace(upd.Timezone)

	if len(upd.FullName) > maxFullNameLength {
		return upd, apperrors.ValidationError("full_name must be at most 100 characters").WithField("field", "full_name")
	}
	if len(upd.CoachingFocus) > maxCoachingFocusLength {
		return upd, apperrors.ValidationError("coaching_focus must be at most 500 characters").WithField("field", "coaching_focus")
	}
	if upd.Timezone == "" {
		upd.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(upd.Timezone); err != nil {
		return upd, apperrors.ValidationError("timezone is not a valid IANA name").WithField("timezone", upd.Timezone)
	}
	return upd, nil
}

// GetBusiness returns the business profile, or an empty one when the user
// has not filled it in yet.
func (s *ProfileService) GetBusiness(ctx context.Context, userID uuid.UUID) (*domain.BusinessProfile, error) {
	bp, err := s.business.Get(ctx, userID)
	if errors.Is(err, domain.ErrBusinessProfileNotFound) {
		return &domain.BusinessProfile{UserID: userID}, nil
	}
	return bp, err
}

func (s *ProfileService) UpsertBusiness(ctx context.Context, bp *domain.BusinessProfile) (*domain.BusinessProfile, error) {
	bp.CompanyName = strings.TrimSpace(bp.CompanyName)
	bp.Industry = strings.TrimSpace(bp.Industry)
	bp.Website = strings.TrimSpace(bp.Website)
	bp.Challenges = strings.TrimSpace(bp.Challenges)

	switch {
	case bp.CompanyName == "":
		return nil, apperrors.ValidationError("company_name is required").WithField("field", "company_name")
	case len(bp.CompanyName) > maxCompanyNameLength:
		return nil, apperrors.ValidationError("company_name must be at most 200 characters").WithField("field", "company_name")
	case len(bp.Industry) > maxIndustryLength:
		return nil, apperrors.ValidationError("industry must be at most 100 characters").WithField("field", "industry")
	case bp.TeamSize < 0:
		return nil, apperrors.ValidationError("team_size must not be negative").WithField("field", "team_size")
	case len(bp.Challenges) > maxChallengesLength:
		return nil, apperrors.ValidationError("challenges must be at most 2000 characters").WithField("field", "challenges")
	}
	if bp.Website != "" {
		if u, err := url.ParseRequestURI(bp.Website); err != nil || u.Host == "" {
			return nil, apperrors.ValidationError("website must be an absolute URL").WithField("field", "website")
		}
	}

	return s.business.Upsert(ctx, bp)
}
