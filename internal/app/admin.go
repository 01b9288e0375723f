package app

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type AdminService struct {
	stats        domain.StatsRepository
	profiles     domain.ProfileRepository
	feedback     domain.FeedbackRepository
	entitlements domain.EntitlementSource
	clock        clockwork.Clock
}

func NewAdminService(stats domain.StatsRepository, profiles domain.ProfileRepository, feedback domain.FeedbackRepository, entitlements domain.EntitlementSource, clock clockwork.Clock) *AdminService {
	return &AdminService{stats: stats, profiles: profiles, feedback: feedback, entitlements: entitlements, clock: clock}
}

func (s *AdminService) Stats(ctx context.Context) (*domain.AdminStats, error) {
	return s.stats.Stats(ctx, s.clock.Now())
}

type UserPage struct {
	Users  []domain.Profile
	Total  int
	Limit  int
	Offset int
}

func (s *AdminService) Users(ctx context.Context, limit, offset int) (*UserPage, error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	users, total, err := s.profiles.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Total: total, Limit: limit, Offset: offset}, nil
}

// SetRole changes a user's role. Admins cannot demote themselves.
func (s *AdminService) SetRole(ctx context.Context, actorID, userID uuid.UUID, role domain.Role) (*domain.Profile, error) {
	if !role.Valid() {
		return nil, apperrors.ValidationError("role must be user or admin").WithField("role", string(role))
	}
	if actorID == userID && role != domain.RoleAdmin {
		return nil, apperrors.ConflictError("admins cannot remove their own admin role")
	}

	profile, err := s.profiles.SetRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}

	if s.entitlements != nil {
		if err := s.entitlements.InvalidateEntitlement(ctx, userID); err != nil {
			slog.WarnContext(ctx, "Failed to invalidate entitlement after role change", "user_id", userID, "error", err)
		}
	}
	slog.InfoContext(ctx, "Role changed", "actor_id", actorID, "user_id", userID, "role", role)
	return profile, nil
}

func (s *AdminService) Feedback(ctx context.Context, limit int) ([]domain.Feedback, error) {
	return s.feedback.ListRecent(ctx, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
