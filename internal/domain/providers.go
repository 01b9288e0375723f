package domain

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one turn sent to a chat completion model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}

type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// KnowledgeChunk is a retrieved passage used as prompt context.
type KnowledgeChunk struct {
	Content    string
	Similarity float64
}

type KnowledgeBase interface {
	Search(ctx context.Context, embedding []float32, limit int) ([]KnowledgeChunk, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// EphemeralSession is a short-lived credential the browser uses to talk to a
// voice provider directly.
type EphemeralSession struct {
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RealtimeSessionIssuer interface {
	CreateRealtimeSession(ctx context.Context, instructions string) (*EphemeralSession, error)
}

type LiveTokenIssuer interface {
	CreateLiveToken(ctx context.Context) (*EphemeralSession, error)
}

// Identity is a hosted-auth user returned after sign-in or sign-up.
type Identity struct {
	UserID      uuid.UUID
	Email       string
	AccessToken string
}

type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignUp(ctx context.Context, email, password, fullName string) (*Identity, error)
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (uuid.UUID, error)
}

type Email struct {
	To       string
	Subject  string
	Markdown string
}

type Mailer interface {
	Send(ctx context.Context, e Email) error
}
