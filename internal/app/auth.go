package app

import (
	"context"
	"net/mail"
	"strings"

	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

const (
	minPasswordLength = 8
	maxFullNameLength = 100
)

// AuthService signs users in through the hosted auth service and keeps the
// local profile row in step.
type AuthService struct {
	identity domain.IdentityProvider
	profiles domain.ProfileRepository
}

func NewAuthService(identity domain.IdentityProvider, profiles domain.ProfileRepository) *AuthService {
	return &AuthService{identity: identity, profiles: profiles}
}

type Credentials struct {
	Email    string
	Password string
	FullName string
}

func (c Credentials) validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return apperrors.ValidationError("email and password are required")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return apperrors.ValidationError("email is not a valid address").WithField("field", "email")
	}
	if len(c.Password) < minPasswordLength {
		return apperrors.ValidationError("password must be at least 8 characters").WithField("field", "password")
	}
	if len(c.FullName) > maxFullNameLength {
		return apperrors.ValidationError("full_name must be at most 100 characters").WithField("field", "full_name")
	}
	return nil
}

// Login verifies credentials and returns the user's profile, creating it on
// first sign-in.
func (s *AuthService) Login(ctx context.Context, creds Credentials) (*domain.Profile, error) {
	creds.Email = strings.TrimSpace(strings.ToLower(creds.Email))
	if err := creds.validate(); err != nil {
		return nil, err
	}

	id, err := s.identity.SignIn(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, err
	}
	return s.profiles.Ensure(ctx, id.UserID, firstNonEmpty(id.Email, creds.Email), "")
}

// SignUp registers a new user and creates the profile row.
func (s *AuthService) SignUp(ctx context.Context, creds Credentials) (*domain.Profile, error) {
	creds.Email = strings.TrimSpace(strings.ToLower(creds.Email))
	creds.FullName = strings.TrimSpace(creds.FullName)
	if err := creds.validate(); err != nil {
		return nil, err
	}

	id, err := s.identity.SignUp(ctx, creds.Email, creds.Password, creds.FullName)
	if err != nil {
		return nil, err
	}
	return s.profiles.Ensure(ctx, id.UserID, firstNonEmpty(id.Email, creds.Email), creds.FullName)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
