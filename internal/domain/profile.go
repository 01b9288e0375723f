package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

type SubscriptionStatus string

const (
	SubscriptionInactive SubscriptionStatus = "inactive"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

// Profile is the application-side record of a hosted-auth user. Its ID is
// the user ID issued by the hosted auth service.
type Profile struct {
	ID                    uuid.UUID
	Email                 string
	FullName              string
	CoachingFocus         string
	Timezone              string
	Role                  Role
	OnboardingCompleted   bool
	SubscriptionTier      Tier
	SubscriptionStatus    SubscriptionStatus
	SubscriptionExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Entitlement reflects the subset of a profile that gates features.
type Entitlement struct {
	UserID    uuid.UUID          `json:"user_id"`
	Role      Role               `json:"role"`
	Tier      Tier               `json:"tier"`
	Status    SubscriptionStatus `json:"status"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
}

// IsPro reports whether the subscription grants pro features at now.
// A nil expiry means the plan does not lapse.
func (e Entitlement) IsPro(now time.Time) bool {
	if e.Tier != TierPro || e.Status != SubscriptionActive {
		return false
	}
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}

func (p *Profile) Entitlement() Entitlement {
	return Entitlement{
		UserID:    p.ID,
		Role:      p.Role,
		Tier:      p.SubscriptionTier,
		Status:    p.SubscriptionStatus,
		ExpiresAt: p.SubscriptionExpiresAt,
	}
}

type ProfileUpdate struct {
	FullName      string
	CoachingFocus string
	Timezone      string
}

type ProfileRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	// Ensure creates the profile row on first sign-in and refreshes the email otherwise.
	Ensure(ctx context.Context, userID uuid.UUID, email, fullName string) (*Profile, error)
	Update(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*Profile, error)
	CompleteOnboarding(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*Profile, error)
	GetEntitlement(ctx context.Context, userID uuid.UUID) (*Entitlement, error)
	SetRole(ctx context.Context, userID uuid.UUID, role Role) (*Profile, error)
	List(ctx context.Context, limit, offset int) ([]Profile, int, error)
}

type BusinessProfile struct {
	UserID      uuid.UUID
	CompanyName string
	Industry    string
	TeamSize    int
	Website     string
	Challenges  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type BusinessProfileRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*BusinessProfile, error)
	Upsert(ctx context.Context, bp *BusinessProfile) (*BusinessProfile, error)
}

// EntitlementSource resolves a user's entitlement, usually through a cache.
type EntitlementSource interface {
	GetEntitlement(ctx context.Context, userID uuid.UUID) (*Entitlement, error)
	InvalidateEntitlement(ctx context.Context, userID uuid.UUID) error
}
