package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/pscheid92/coachpulse/internal/adapter/metrics"
	"github.com/pscheid92/coachpulse/internal/domain"
)

// Client enqueues summary tasks. Duplicate enqueues for the same window are
// dropped by task ID.
type Client struct {
	client  *asynq.Client
	metrics *metrics.JobMetrics
}

var _ domain.SummaryQueue = (*Client)(nil)

// ParseRedisURL converts a redis:// URL into asynq connection options.
func ParseRedisURL(redisURL string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis URL: %w", err)
	}
	return opt, nil
}

func NewClient(opt asynq.RedisConnOpt, m *metrics.JobMetrics) *Client {
	return &Client{client: asynq.NewClient(opt), metrics: m}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueuePeriod schedules the fan-out for the window preceding ref. A zero
// ref lets the worker pick the window when it runs.
func (c *Client) EnqueuePeriod(ctx context.Context, period domain.Period, ref time.Time) error {
	task, err := NewPeriodTask(period, ref)
	if err != nil {
		return err
	}

	var opts []asynq.Option
	if !ref.IsZero() {
		opts = append(opts, asynq.TaskID(periodTaskID(period.PreviousWindow(ref))), asynq.Retention(retention))
	}
	return c.enqueue(ctx, task, opts...)
}

func (c *Client) EnqueueUser(ctx context.Context, userID uuid.UUID, w domain.Window) error {
	task, err := NewUserTask(userID, w)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, asynq.TaskID(userTaskID(userID, w)), asynq.Retention(retention))
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		slog.DebugContext(ctx, "Task already enqueued", "type", task.Type())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", task.Type(), err)
	}

	if c.metrics != nil {
		c.metrics.Enqueued.WithLabelValues(task.Type()).Inc()
	}
	slog.DebugContext(ctx, "Task enqueued", "type", task.Type(), "id", info.ID, "queue", info.Queue)
	return nil
}
