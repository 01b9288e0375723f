package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coachpulse/internal/adapter/metrics"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
	"github.com/pscheid92/coachpulse/internal/prompts"
)

const (
	demoSweepInterval = time.Minute
	demoHistoryLimit  = 10
)

// DemoSession is an anonymous, in-memory trial conversation.
type DemoSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Remaining int       `json:"remaining"`
}

type demoEntry struct {
	expiresAt time.Time
	used      int
	history   []domain.ChatMessage
}

type DemoDeps struct {
	Completer    domain.ChatCompleter
	Prompts      *prompts.Catalog
	Model        string
	TTL          time.Duration
	MessageLimit int
	Clock        clockwork.Clock
	Metrics      *metrics.DemoMetrics // optional
}

// DemoService lets visitors try the coach without an account. Nothing is
// persisted and sessions vanish on restart.
type DemoService struct {
	deps DemoDeps

	mu       sync.Mutex
	sessions map[string]*demoEntry

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewDemoService(deps DemoDeps) *DemoService {
	return &DemoService{
		deps:     deps,
		sessions: make(map[string]*demoEntry),
		stopCh:   make(chan struct{}),
	}
}

func (s *DemoService) Start(ctx context.Context) (*DemoSession, error) {
	now := s.deps.Clock.Now()
	token := uuid.NewString()
	entry := &demoEntry{expiresAt: now.Add(s.deps.TTL)}

	s.mu.Lock()
	s.sessions[token] = entry
	active := len(s.sessions)
	s.mu.Unlock()

	s.setActive(active)
	slog.DebugContext(ctx, "Demo session started", "expires_at", entry.expiresAt)

	return &DemoSession{Token: token, ExpiresAt: entry.expiresAt, Remaining: s.deps.MessageLimit}, nil
}

// DemoReply is one answered demo message.
type DemoReply struct {
	Reply     string `json:"reply"`
	Remaining int    `json:"remaining"`
}

func (s *DemoService) Chat(ctx context.Context, token, message string) (*DemoReply, error) {
	message, err := validateMessage(message)
	if err != nil {
		return nil, err
	}

	history, err := s.reserve(token)
	if err != nil {
		return nil, err
	}

	p := s.deps.Prompts.Demo
	msgs := make([]domain.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, domain.ChatMessage{Role: "system", Content: p.System})
	msgs = append(msgs, history...)
	msgs = append(msgs, domain.ChatMessage{Role: "user", Content: message})

	reply, err := s.deps.Completer.Complete(ctx, domain.ChatRequest{
		Model:       s.deps.Model,
		Messages:    msgs,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	})
	if err != nil {
		s.release(token)
		return nil, apperrors.ExternalError("the coach is unavailable, try again", err)
	}

	remaining := s.record(token, message, reply)
	if s.deps.Metrics != nil {
		s.deps.Metrics.Messages.Inc()
	}
	return &DemoReply{Reply: reply, Remaining: remaining}, nil
}

// reserve claims one message slot so concurrent requests cannot exceed the limit.
func (s *DemoService) reserve(token string) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[token]
	if !ok || !s.deps.Clock.Now().Before(entry.expiresAt) {
		return nil, domain.ErrDemoSessionNotFound
	}
	if entry.used >= s.deps.MessageLimit {
		return nil, domain.ErrDemoLimitReached
	}
	entry.used++
	return append([]domain.ChatMessage(nil), entry.history...), nil
}

func (s *DemoService) release(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sessions[token]; ok && entry.used > 0 {
		entry.used--
	}
}

func (s *DemoService) record(token, message, reply string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[token]
	if !ok {
		return 0
	}
	entry.history = append(entry.history,
		domain.ChatMessage{Role: "user", Content: message},
		domain.ChatMessage{Role: "assistant", Content: reply},
	)
	if len(entry.history) > demoHistoryLimit {
		entry.history = entry.history[len(entry.history)-demoHistoryLimit:]
	}
	return s.deps.MessageLimit - entry.used
}

// Sweep drops expired sessions and returns how many were removed.
func (s *DemoService) Sweep() int {
	now := s.deps.Clock.Now()

	s.mu.Lock()
	removed := 0
	for token, entry := range s.sessions {
		if !now.Before(entry.expiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	active := len(s.sessions)
	s.mu.Unlock()

	s.setActive(active)
	if removed > 0 {
		slog.Debug("Demo sessions swept", "removed", removed, "active", active)
	}
	return removed
}

// StartSweeper removes expired sessions every minute until Stop is called.
func (s *DemoService) StartSweeper() {
	ticker := s.deps.Clock.NewTicker(demoSweepInterval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ticker.Chan():
				s.Sweep()
			case <-s.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
	slog.Info("Demo sweeper started", "interval", demoSweepInterval.String())
}

func (s *DemoService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *DemoService) setActive(n int) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ActiveSessions.Set(float64(n))
	}
}
