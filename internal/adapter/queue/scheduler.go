package queue

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/pscheid92/coachpulse/internal/domain"
)

// Schedule pairs a cron spec (UTC) with the period it triggers.
type Schedule struct {
	Cron   string
	Period domain.Period
}

// DefaultSchedules run each period shortly after its window closes.
var DefaultSchedules = []Schedule{
	{Cron: "0 2 * * *", Period: domain.PeriodDaily},
	{Cron: "0 3 * * 1", Period: domain.PeriodWeekly},
	{Cron: "0 4 1 * *", Period: domain.PeriodMonthly},
}

type Scheduler struct {
	scheduler *asynq.Scheduler
}

func NewScheduler(opt asynq.RedisConnOpt, schedules []Schedule) (*Scheduler, error) {
	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   slogLogger{},
	})

	for _, sch := range schedules {
		task, err := NewPeriodTask(sch.Period, time.Time{})
		if err != nil {
			return nil, err
		}
		id, err := s.Register(sch.Cron, task)
		if err != nil {
			return nil, fmt.Errorf("failed to register %s schedule %q: %w", sch.Period, sch.Cron, err)
		}
		slog.Info("Summary schedule registered", "period", sch.Period, "cron", sch.Cron, "entry_id", id)
	}

	return &Scheduler{scheduler: s}, nil
}

func (s *Scheduler) Start() error {
	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
