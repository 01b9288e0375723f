package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
	"github.com/pscheid92/coachpulse/internal/prompts"
)

const (
	maxTranscriptChars  = 48000
	defaultSummaryLimit = 10
	maxSummaryLimit     = 100
)

type SummaryDeps struct {
	Messages  domain.MessageRepository
	Summaries domain.SummaryRepository
	Profiles  domain.ProfileRepository
	Features  FeatureChecker
	Completer domain.ChatCompleter
	Mailer    domain.Mailer // nil disables summary emails
	Queue     domain.SummaryQueue
	Prompts   *prompts.Catalog
	Model     string
	Clock     clockwork.Clock
}

// SummaryService generates daily, weekly and monthly coaching summaries.
type SummaryService struct {
	deps SummaryDeps
}

func NewSummaryService(deps SummaryDeps) *SummaryService {
	return &SummaryService{deps: deps}
}

func (s *SummaryService) List(ctx context.Context, userID uuid.UUID, period domain.Period, limit int) ([]domain.Summary, error) {
	if limit <= 0 {
		limit = defaultSummaryLimit
	}
	if limit > maxSummaryLimit {
		limit = maxSummaryLimit
	}
	return s.deps.Summaries.ListByUser(ctx, userID, period, limit)
}

// Trigger enqueues generation for the window preceding now, either for
// every active user or for one user.
func (s *SummaryService) Trigger(ctx context.Context, period domain.Period, userID *uuid.UUID) error {
	if s.deps.Queue == nil {
		return errors.New("summary queue is not configured")
	}
	now := s.deps.Clock.Now()
	if userID == nil {
		return s.deps.Queue.EnqueuePeriod(ctx, period, now)
	}
	return s.deps.Queue.EnqueueUser(ctx, *userID, period.PreviousWindow(now))
}

// FanOut enqueues one generation task per user with messages in the window
// preceding ref. Users without the period's feature are skipped.
func (s *SummaryService) FanOut(ctx context.Context, period domain.Period, ref time.Time) (int, error) {
	w := period.PreviousWindow(ref)
	users, err := s.eligibleUsers(ctx, w)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, id := range users {
		if err := s.deps.Queue.EnqueueUser(ctx, id, w); err != nil {
			return enqueued, fmt.Errorf("failed to enqueue summary for %s: %w", id, err)
		}
		enqueued++
	}
	return enqueued, nil
}

// RunReport describes an inline run.
type RunReport struct {
	Window    domain.Window
	Users     int
	Generated int
	Skipped   int
	Failed    int
}

// RunInline generates summaries for every eligible user without the queue.
// Failures for one user are logged and counted, not returned.
func (s *SummaryService) RunInline(ctx context.Context, period domain.Period, ref time.Time) (*RunReport, error) {
	w := period.PreviousWindow(ref)
	users, err := s.eligibleUsers(ctx, w)
	if err != nil {
		return nil, err
	}

	report := &RunReport{Window: w, Users: len(users)}
	for _, id := range users {
		summary, err := s.Generate(ctx, id, w)
		switch {
		case err != nil:
			report.Failed++
			slog.ErrorContext(ctx, "Summary generation failed", "user_id", id, "period", period, "error", err)
		case summary == nil:
			report.Skipped++
		default:
			report.Generated++
		}
	}
	return report, nil
}

// Preview lists users and message counts for the window without generating.
func (s *SummaryService) Preview(ctx context.Context, period domain.Period, ref time.Time) (domain.Window, map[uuid.UUID]int, error) {
	w := period.PreviousWindow(ref)
	users, err := s.eligibleUsers(ctx, w)
	if err != nil {
		return w, nil, err
	}

	counts := make(map[uuid.UUID]int, len(users))
	for _, id := range users {
		msgs, err := s.deps.Messages.ListByUserBetween(ctx, id, w.Start, w.End)
		if err != nil {
			return w, nil, err
		}
		counts[id] = len(msgs)
	}
	return w, counts, nil
}

func (s *SummaryService) eligibleUsers(ctx context.Context, w domain.Window) ([]uuid.UUID, error) {
	users, err := s.deps.Messages.UsersWithMessagesBetween(ctx, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}

	eligible := users[:0]
	for _, id := range users {
		ok, err := s.allowed(ctx, id, w.Period)
		if err != nil {
			slog.WarnContext(ctx, "Entitlement lookup failed, skipping user", "user_id", id, "error", err)
			continue
		}
		if ok {
			eligible = append(eligible, id)
		}
	}
	return eligible, nil
}

func (s *SummaryService) allowed(ctx context.Context, userID uuid.UUID, period domain.Period) (bool, error) {
	if s.deps.Features == nil {
		return true, nil
	}
	ok, err := s.deps.Features.HasFeature(ctx, userID, period.Feature())
	if errors.Is(err, domain.ErrProfileNotFound) {
		return false, nil
	}
	return ok, err
}

// Generate summarizes one user's messages in w, stores the result and emails
// it. It returns nil when there is nothing to summarize or the user's plan
// does not include the period.
func (s *SummaryService) Generate(ctx context.Context, userID uuid.UUID, w domain.Window) (*domain.Summary, error) {
	ok, err := s.allowed(ctx, userID, w.Period)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	msgs, err := s.deps.Messages.ListByUserBetween(ctx, userID, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	prompt := s.deps.Prompts.SummaryPrompt(w.Period)
	content, err := s.deps.Completer.Complete(ctx, domain.ChatRequest{
		Model: s.deps.Model,
		Messages: []domain.ChatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: transcript(msgs, w)},
		},
		Temperature: prompt.Temperature,
		MaxTokens:   prompt.MaxTokens,
	})
	if err != nil {
		return nil, apperrors.ExternalError("summary completion failed", err)
	}

	summary, err := s.deps.Summaries.Upsert(ctx, &domain.Summary{
		UserID:       userID,
		Period:       w.Period,
		PeriodStart:  w.Start,
		PeriodEnd:    w.End,
		Content:      content,
		MessageCount: len(msgs),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store summary: %w", err)
	}

	s.email(ctx, summary)
	slog.InfoContext(ctx, "Summary generated", "user_id", userID, "period", w.Period, "messages", len(msgs))
	return summary, nil
}

func (s *SummaryService) email(ctx context.Context, summary *domain.Summary) {
	if s.deps.Mailer == nil || s.deps.Profiles == nil {
		return
	}
	profile, err := s.deps.Profiles.Get(ctx, summary.UserID)
	if err != nil || profile.Email == "" {
		return
	}

	err = s.deps.Mailer.Send(ctx, domain.Email{
		To:       profile.Email,
		Subject:  fmt.Sprintf("Your %s coaching summary", summary.Period),
		Markdown: summary.Content,
	})
	if err != nil {
		slog.WarnContext(ctx, "Failed to email summary", "user_id", summary.UserID, "period", summary.Period, "error", err)
	}
}

// transcript renders messages oldest first, keeping the newest part when it
// exceeds the model budget.
func transcript(msgs []domain.Message, w domain.Window) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = fmt.Sprintf("[%s] %s: %s", m.CreatedAt.UTC().Format("2006-01-02 15:04"), m.Role, m.Content)
	}

	total := 0
	start := len(lines)
	for start > 0 && total+len(lines[start-1])+1 <= maxTranscriptChars {
		start--
		total += len(lines[start]) + 1
	}
	if start == len(lines) && start > 0 {
		// The newest line alone is over budget: keep its head.
		start--
		lines[start] = truncateUTF8(lines[start], maxTranscriptChars)
	}

	header := fmt.Sprintf("Coaching transcript from %s to %s (UTC):\n",
		w.Start.UTC().Format("2006-01-02"), w.End.UTC().Add(-time.Second).Format("2006-01-02"))
	return header + strings.Join(lines[start:], "\n")
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
