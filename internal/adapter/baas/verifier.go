package baas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pscheid92/coachpulse/internal/adapter/provider"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/pscheid92/coachpulse/internal/platform/retry"
	"github.com/tidwall/gjson"
)

// TokenVerifier validates access tokens issued by the hosted auth service.
// Tokens are checked locally with the shared HS256 secret when one is
// configured; anything that fails local verification is checked remotely.
type TokenVerifier struct {
	secret []byte
	http   *provider.Client
}

var _ domain.TokenVerifier = (*TokenVerifier)(nil)

func NewTokenVerifier(cfg Config, opts ...provider.Option) *TokenVerifier {
	opts = append([]provider.Option{provider.WithHeader("apikey", cfg.AnonKey)}, opts...)
	v := &TokenVerifier{http: provider.New(providerName, cfg.URL, opts...)}
	if cfg.JWTSecret != "" {
		v.secret = []byte(cfg.JWTSecret)
	}
	return v
}

func (v *TokenVerifier) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, domain.ErrInvalidToken
	}

	if v.secret != nil {
		id, err := v.verifyLocal(token)
		if err == nil {
			return id, nil
		}
		slog.DebugContext(ctx, "Local token verification failed, asking auth service", "error", err)
	}

	return v.verifyRemote(ctx, token)
}

func (v *TokenVerifier) verifyLocal(token string) (uuid.UUID, error) {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("jwt parse: %w", err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("jwt subject is not a user id: %w", err)
	}
	return id, nil
}

func (v *TokenVerifier) verifyRemote(ctx context.Context, token string) (uuid.UUID, error) {
	req, err := v.http.NewRequest(ctx, http.MethodGet, "/auth/v1/user", nil)
	if err != nil {
		return uuid.Nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	body, _, err := v.http.Do("get_user", req)
	var se *retry.StatusError
	if errors.As(err, &se) && se.StatusCode < 500 {
		return uuid.Nil, domain.ErrInvalidToken
	}
	if err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.Parse(gjson.GetBytes(body, "id").String())
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}
	return id, nil
}
