// Package mailer sends transactional email through an HTTP email API.
// Bodies are written in markdown and rendered to HTML before sending.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pscheid92/coachpulse/internal/adapter/provider"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/yuin/goldmark"
)

const (
	providerName   = "mailer"
	defaultBaseURL = "https://api.resend.com"
)

type Client struct {
	http *provider.Client
	from string
}

var _ domain.Mailer = (*Client)(nil)

func NewClient(apiKey, from string, opts ...provider.Option) *Client {
	return NewClientWithBaseURL(defaultBaseURL, apiKey, from, opts...)
}

func NewClientWithBaseURL(baseURL, apiKey, from string, opts ...provider.Option) *Client {
	opts = append([]provider.Option{provider.WithBearer(apiKey)}, opts...)
	return &Client{
		http: provider.New(providerName, baseURL, opts...),
		from: from,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

func (c *Client) Send(ctx context.Context, e domain.Email) error {
	if e.To == "" {
		return errors.New("mailer: recipient is required")
	}

	html, err := RenderHTML(e.Markdown)
	if err != nil {
		return err
	}

	return c.http.JSON(ctx, "send", http.MethodPost, "/emails", sendRequest{
		From:    c.from,
		To:      []string{e.To},
		Subject: e.Subject,
		HTML:    html,
		Text:    e.Markdown,
	}, nil)
}

// RenderHTML converts markdown to HTML. Raw HTML in the source is dropped.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("mailer: failed to render markdown: %w", err)
	}
	return buf.String(), nil
}
