package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/tidwall/gjson"
)

type realtimeSessionRequest struct {
	Model        string `json:"model"`
	Voice        string `json:"voice,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// CreateRealtimeSession mints an ephemeral client secret the browser uses to
// open a realtime voice connection.
func (c *Client) CreateRealtimeSession(ctx context.Context, instructions string) (*domain.EphemeralSession, error) {
	body, err := c.http.Raw(ctx, "realtime_session", http.MethodPost, "/v1/realtime/sessions", realtimeSessionRequest{
		Model:        c.cfg.RealtimeModel,
		Voice:        c.cfg.SpeechVoice,
		Instructions: instructions,
	})
	if err != nil {
		return nil, err
	}

	secret := gjson.GetBytes(body, "client_secret.value").String()
	if secret == "" {
		return nil, errors.New("openai realtime: response carries no client secret")
	}

	session := &domain.EphemeralSession{
		Provider: providerName,
		Model:    c.cfg.RealtimeModel,
		Token:    secret,
	}
	if exp := gjson.GetBytes(body, "client_secret.expires_at"); exp.Exists() {
		session.ExpiresAt = time.Unix(exp.Int(), 0).UTC()
	}
	return session, nil
}

// RealtimeEndpoint returns the websocket URL and headers for a server-side
// realtime connection.
func (c *Client) RealtimeEndpoint() (string, http.Header, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", nil, fmt.Errorf("openai realtime: invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/realtime"
	u.RawQuery = url.Values{"model": {c.cfg.RealtimeModel}}.Encode()

	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.cfg.APIKey)
	h.Set("OpenAI-Beta", "realtime=v1")
	return u.String(), h, nil
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("openai: failed to marshal request: %w", err)
	}
	return bytes.NewReader(b), nil
}
