// Package baas talks to the hosted backend: password auth, bearer token
// verification and the vector-search RPC backing coaching context.
package baas

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pscheid92/coachpulse/internal/adapter/provider"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/pscheid92/coachpulse/internal/platform/retry"
	"github.com/tidwall/gjson"
)

const providerName = "baas"

type Config struct {
	URL        string
	AnonKey    string
	ServiceKey string
	JWTSecret  string
}

// AuthClient signs users in and up against the hosted auth service.
type AuthClient struct {
	http *provider.Client
}

var _ domain.IdentityProvider = (*AuthClient)(nil)

func NewAuthClient(cfg Config, opts ...provider.Option) *AuthClient {
	opts = append([]provider.Option{provider.WithHeader("apikey", cfg.AnonKey)}, opts...)
	return &AuthClient{http: provider.New(providerName, cfg.URL, opts...)}
}

type passwordGrant struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

func (c *AuthClient) SignIn(ctx context.Context, email, password string) (*domain.Identity, error) {
	body, err := c.http.Raw(ctx, "sign_in", http.MethodPost, "/auth/v1/token?grant_type=password", passwordGrant{
		Email:    email,
		Password: password,
	})
	var se *retry.StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusBadRequest || se.StatusCode == http.StatusUnauthorized) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return parseIdentity(body)
}

func (c *AuthClient) SignUp(ctx context.Context, email, password, fullName string) (*domain.Identity, error) {
	req := signUpRequest{Email: email, Password: password}
	if fullName != "" {
		req.Data = map[string]any{"full_name": fullName}
	}

	body, err := c.http.Raw(ctx, "sign_up", http.MethodPost, "/auth/v1/signup", req)
	var se *retry.StatusError
	if errors.As(err, &se) && isEmailTaken(se) {
		return nil, domain.ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return parseIdentity(body)
}

func isEmailTaken(se *retry.StatusError) bool {
	if se.StatusCode != http.StatusBadRequest && se.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	msg := strings.ToLower(se.Message)
	return strings.Contains(msg, "already registered") || strings.Contains(msg, "already exists")
}

// parseIdentity accepts both a session payload ({access_token, user}) and a
// bare user object, which sign-up returns while email confirmation is pending.
func parseIdentity(body []byte) (*domain.Identity, error) {
	parsed := gjson.ParseBytes(body)
	user := parsed.Get("user")
	if !user.Exists() {
		user = parsed
	}

	id, err := uuid.Parse(user.Get("id").String())
	if err != nil {
		return nil, fmt.Errorf("auth response carries no valid user id: %w", err)
	}

	return &domain.Identity{
		UserID:      id,
		Email:       user.Get("email").String(),
		AccessToken: parsed.Get("access_token").String(),
	}, nil
}
