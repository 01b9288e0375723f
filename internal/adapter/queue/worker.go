package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coachpulse/internal/adapter/metrics"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/pscheid92/coachpulse/internal/platform/correlation"
)

// SummaryRunner is the application side of summary tasks.
type SummaryRunner interface {
	// FanOut enqueues one user task per user active in the window before ref
	// and returns how many were enqueued.
	FanOut(ctx context.Context, period domain.Period, ref time.Time) (int, error)
	// Generate writes the summary for one user. A nil summary means there was
	// nothing to summarize.
	Generate(ctx context.Context, userID uuid.UUID, w domain.Window) (*domain.Summary, error)
}

// Handlers turns asynq tasks into SummaryRunner calls.
type Handlers struct {
	runner  SummaryRunner
	clock   clockwork.Clock
	metrics *metrics.JobMetrics
}

func NewHandlers(runner SummaryRunner, clock clockwork.Clock, m *metrics.JobMetrics) *Handlers {
	return &Handlers{runner: runner, clock: clock, metrics: m}
}

// Mux registers every task handler.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSummaryPeriod, h.instrument(TypeSummaryPeriod, h.handlePeriod))
	mux.HandleFunc(TypeSummaryUser, h.instrument(TypeSummaryUser, h.handleUser))
	return mux
}

func (h *Handlers) instrument(taskType string, next func(context.Context, *asynq.Task) error) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		ctx = correlation.WithID(ctx, correlation.NewID())
		start := time.Now()

		err := next(ctx, t)

		outcome := "success"
		if err != nil {
			outcome = "error"
			slog.ErrorContext(ctx, "Task failed", "type", taskType, "error", err)
		}
		if h.metrics != nil {
			h.metrics.Processed.WithLabelValues(taskType, outcome).Inc()
			h.metrics.Duration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		}
		return err
	}
}

func (h *Handlers) handlePeriod(ctx context.Context, t *asynq.Task) error {
	var p periodPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid period payload: %v: %w", err, asynq.SkipRetry)
	}
	if _, err := domain.ParsePeriod(string(p.Period)); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	ref := p.Reference
	if ref.IsZero() {
		ref = h.clock.Now()
	}

	n, err := h.runner.FanOut(ctx, p.Period, ref)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Summary fan-out complete", "period", p.Period, "users", n)
	return nil
}

func (h *Handlers) handleUser(ctx context.Context, t *asynq.Task) error {
	var p userPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid user payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.UserID == uuid.Nil || !p.Start.Before(p.End) {
		return fmt.Errorf("user payload missing user or window: %w", asynq.SkipRetry)
	}

	s, err := h.runner.Generate(ctx, p.UserID, p.window())
	if err != nil {
		return err
	}
	if s == nil {
		slog.DebugContext(ctx, "No messages to summarize", "user_id", p.UserID, "period", p.Period)
	}
	return nil
}

// Worker owns the asynq server.
type Worker struct {
	server   *asynq.Server
	handlers *Handlers
}

func NewWorker(opt asynq.RedisConnOpt, concurrency int, handlers *Handlers) *Worker {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueSummaries: 1},
		Logger:      slogLogger{},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			if retried >= maxRetry {
				slog.Error("Task exhausted retries", "type", task.Type(), "error", err)
			}
		}),
	})
	return &Worker{server: srv, handlers: handlers}
}

// Start begins processing in the background.
func (w *Worker) Start() error {
	if err := w.server.Start(w.handlers.Mux()); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight tasks and stops the worker.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
