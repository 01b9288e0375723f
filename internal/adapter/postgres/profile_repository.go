package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/coachpulse/internal/domain"
)

// profileColumns must match the Scan order in scanProfile.
const profileColumns = `id, email, full_name, coaching_focus, timezone, role, onboarding_completed,
	subscription_tier, subscription_status, subscription_expires_at, created_at, updated_at`

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func scanProfile(row scanner) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.CoachingFocus, &p.Timezone, &p.Role, &p.OnboardingCompleted,
		&p.SubscriptionTier, &p.SubscriptionStatus, &p.SubscriptionExpiresAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) one(ctx context.Context, op, query string, args ...any) (*domain.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s profile: %w", op, err)
	}
	return p, nil
}

func (r *ProfileRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	return r.one(ctx, "get", `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID)
}

func (r *ProfileRepo) Ensure(ctx context.Context, userID uuid.UUID, email, fullName string) (*domain.Profile, error) {
	return r.one(ctx, "ensure", `
		INSERT INTO profiles (id, email, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    full_name = CASE WHEN profiles.full_name = '' THEN EXCLUDED.full_name ELSE profiles.full_name END,
		    updated_at = NOW()
		RETURNING `+profileColumns, userID, email, fullName)
}

func (r *ProfileRepo) Update(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
	return r.one(ctx, "update", `
		UPDATE profiles
		SET full_name = $2, coaching_focus = $3, timezone = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+profileColumns, userID, upd.FullName, upd.CoachingFocus, upd.Timezone)
}

func (r *ProfileRepo) CompleteOnboarding(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
	return r.one(ctx, "complete onboarding for", `
		UPDATE profiles
		SET full_name = $2, coaching_focus = $3, timezone = $4, onboarding_completed = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING `+profileColumns, userID, upd.FullName, upd.CoachingFocus, upd.Timezone)
}

func (r *ProfileRepo) GetEntitlement(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error) {
	e := domain.Entitlement{UserID: userID}
	err := r.pool.QueryRow(ctx, `
		SELECT role, subscription_tier, subscription_status, subscription_expires_at
		FROM profiles WHERE id = $1`, userID).Scan(&e.Role, &e.Tier, &e.Status, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}
	return &e, nil
}

func (r *ProfileRepo) SetRole(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.Profile, error) {
	return r.one(ctx, "set role on", `
		UPDATE profiles SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+profileColumns, userID, role)
}

func (r *ProfileRepo) List(ctx context.Context, limit, offset int) ([]domain.Profile, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count profiles: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+profileColumns+` FROM profiles
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]domain.Profile, 0, limit)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, total, nil
}

type BusinessProfileRepo struct {
	pool *pgxpool.Pool
}

func NewBusinessProfileRepo(pool *pgxpool.Pool) *BusinessProfileRepo {
	return &BusinessProfileRepo{pool: pool}
}

const businessProfileColumns = `user_id, company_name, industry, team_size, website, challenges, created_at, updated_at`

func scanBusinessProfile(row scanner) (*domain.BusinessProfile, error) {
	var bp domain.BusinessProfile
	if err := row.Scan(&bp.UserID, &bp.CompanyName, &bp.Industry, &bp.TeamSize, &bp.Website, &bp.Challenges, &bp.CreatedAt, &bp.UpdatedAt); err != nil {
		return nil, err
	}
	return &bp, nil
}

func (r *BusinessProfileRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.BusinessProfile, error) {
	bp, err := scanBusinessProfile(r.pool.QueryRow(ctx, `SELECT `+businessProfileColumns+` FROM business_profiles WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBusinessProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business profile: %w", err)
	}
	return bp, nil
}

func (r *BusinessProfileRepo) Upsert(ctx context.Context, bp *domain.BusinessProfile) (*domain.BusinessProfile, error) {
	saved, err := scanBusinessProfile(r.pool.QueryRow(ctx, `
		INSERT INTO business_profiles (user_id, company_name, industry, team_size, website, challenges)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET company_name = EXCLUDED.company_name,
		    industry = EXCLUDED.industry,
		    team_size = EXCLUDED.team_size,
		    website = EXCLUDED.website,
		    challenges = EXCLUDED.challenges,
		    updated_at = NOW()
		RETURNING `+businessProfileColumns,
		bp.UserID, bp.CompanyName, bp.Industry, bp.TeamSize, bp.Website, bp.Challenges))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert business profile: %w", err)
	}
	return saved, nil
}
