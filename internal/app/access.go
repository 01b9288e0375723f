package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coachpulse/internal/domain"
)

// Access answers role and plan questions. Both are a single entitlement
// lookup served through the entitlement cache.
type Access struct {
	entitlements domain.EntitlementSource
	clock        clockwork.Clock
}

func NewAccess(entitlements domain.EntitlementSource, clock clockwork.Clock) *Access {
	return &Access{entitlements: entitlements, clock: clock}
}

func (a *Access) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	ent, err := a.entitlements.GetEntitlement(ctx, userID)
	if err != nil {
		return false, err
	}
	return ent.Role == domain.RoleAdmin, nil
}

// HasFeature reports whether the user may use feature. Free features are
// always available to existing users.
func (a *Access) HasFeature(ctx context.Context, userID uuid.UUID, feature domain.Feature) (bool, error) {
	if !feature.RequiresPro() {
		return true, nil
	}
	ent, err := a.entitlements.GetEntitlement(ctx, userID)
	if err != nil {
		return false, err
	}
	return ent.IsPro(a.clock.Now()), nil
}

func (a *Access) Entitlement(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error) {
	return a.entitlements.GetEntitlement(ctx, userID)
}
