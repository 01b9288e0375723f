// Package queue runs summary generation as asynq background tasks: a client
// that enqueues work, a worker that executes it and a cron scheduler.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/pscheid92/coachpulse/internal/domain"
)

const (
	TypeSummaryPeriod = "summary:period"
	TypeSummaryUser   = "summary:user"

	QueueSummaries = "summaries"

	maxRetry  = 3
	retention = 24 * time.Hour
)

// periodPayload fans out to one user task per active user. A zero Reference
// means "now" when the task runs, which is what cron entries rely on.
type periodPayload struct {
	Period    domain.Period `json:"period"`
	Reference time.Time     `json:"reference,omitzero"`
}

type userPayload struct {
	UserID uuid.UUID     `json:"user_id"`
	Period domain.Period `json:"period"`
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
}

func (p userPayload) window() domain.Window {
	return domain.Window{Period: p.Period, Start: p.Start, End: p.End}
}

// NewPeriodTask builds a fan-out task for period.
func NewPeriodTask(period domain.Period, ref time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(periodPayload{Period: period, Reference: ref})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal period payload: %w", err)
	}
	return asynq.NewTask(TypeSummaryPeriod, payload, asynq.Queue(QueueSummaries), asynq.MaxRetry(maxRetry)), nil
}

// NewUserTask builds a generation task for one user and window.
func NewUserTask(userID uuid.UUID, w domain.Window) (*asynq.Task, error) {
	payload, err := json.Marshal(userPayload{UserID: userID, Period: w.Period, Start: w.Start, End: w.End})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user payload: %w", err)
	}
	return asynq.NewTask(TypeSummaryUser, payload, asynq.Queue(QueueSummaries), asynq.MaxRetry(maxRetry)), nil
}

// userTaskID makes user tasks unique per user, period and window start.
func userTaskID(userID uuid.UUID, w domain.Window) string {
	return fmt.Sprintf("%s:%s:%s:%s", TypeSummaryUser, w.Period, userID, w.Start.UTC().Format("2006-01-02"))
}

func periodTaskID(w domain.Window) string {
	return fmt.Sprintf("%s:%s:%s", TypeSummaryPeriod, w.Period, w.Start.UTC().Format("2006-01-02"))
}
