// Package gemini issues ephemeral tokens for the Gemini Live API.
package gemini

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coachpulse/internal/adapter/provider"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/tidwall/gjson"
)

const (
	providerName   = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com"

	tokenLifetime      = 30 * time.Minute
	newSessionDeadline = time.Minute
)

type Client struct {
	http  *provider.Client
	model string
	clock clockwork.Clock
}

var _ domain.LiveTokenIssuer = (*Client)(nil)

func NewClient(apiKey, model string, clock clockwork.Clock, opts ...provider.Option) *Client {
	return NewClientWithBaseURL(defaultBaseURL, apiKey, model, clock, opts...)
}

func NewClientWithBaseURL(baseURL, apiKey, model string, clock clockwork.Clock, opts ...provider.Option) *Client {
	opts = append([]provider.Option{provider.WithHeader("x-goog-api-key", apiKey)}, opts...)
	return &Client{
		http:  provider.New(providerName, baseURL, opts...),
		model: model,
		clock: clock,
	}
}

type authTokenRequest struct {
	Uses                   int                    `json:"uses"`
	ExpireTime             string                 `json:"expireTime"`
	NewSessionExpireTime   string                 `json:"newSessionExpireTime"`
	LiveConnectConstraints liveConnectConstraints `json:"liveConnectConstraints"`
}

type liveConnectConstraints struct {
	Model string `json:"model"`
}

// CreateLiveToken mints a single-use token locked to the configured live
// model. The browser must open its session within a minute.
func (c *Client) CreateLiveToken(ctx context.Context) (*domain.EphemeralSession, error) {
	now := c.clock.Now().UTC()
	expires := now.Add(tokenLifetime)

	body, err := c.http.Raw(ctx, "live_token", http.MethodPost, "/v1alpha/auth_tokens", authTokenRequest{
		Uses:                   1,
		ExpireTime:             expires.Format(time.RFC3339),
		NewSessionExpireTime:   now.Add(newSessionDeadline).Format(time.RFC3339),
		LiveConnectConstraints: liveConnectConstraints{Model: c.model},
	})
	if err != nil {
		return nil, err
	}

	name := gjson.GetBytes(body, "name").String()
	if name == "" {
		return nil, errors.New("gemini auth token: response carries no token name")
	}

	return &domain.EphemeralSession{
		Provider:  providerName,
		Model:     c.model,
		Token:     name,
		ExpiresAt: expires,
	}, nil
}
