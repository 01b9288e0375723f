package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Feature returns the feature gating generation for this period.
func (p Period) Feature() Feature {
	switch p {
	case PeriodWeekly:
		return FeatureWeeklySummary
	case PeriodMonthly:
		return FeatureMonthlySummary
	default:
		return FeatureDailySummary
	}
}

// Window is the half-open interval [Start, End) a summary covers.
type Window struct {
	Period Period
	Start  time.Time
	End    time.Time
}

// PreviousWindow returns the most recently completed period before ref, in UTC.
// Weekly windows follow ISO weeks (Monday to Monday).
func (p Period) PreviousWindow(ref time.Time) Window {
	ref = ref.UTC()
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)

	switch p {
	case PeriodWeekly:
		offset := (int(today.Weekday()) + 6) % 7 // days since Monday
		thisMonday := today.AddDate(0, 0, -offset)
		return Window{Period: p, Start: thisMonday.AddDate(0, 0, -7), End: thisMonday}
	case PeriodMonthly:
		firstOfMonth := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{Period: p, Start: firstOfMonth.AddDate(0, -1, 0), End: firstOfMonth}
	default:
		return Window{Period: p, Start: today.AddDate(0, 0, -1), End: today}
	}
}

type Summary struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Period       Period
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Content      string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type SummaryRepository interface {
	// Upsert overwrites content when a summary for (user, period, start) exists.
	Upsert(ctx context.Context, s *Summary) (*Summary, error)
	ListByUser(ctx context.Context, userID uuid.UUID, period Period, limit int) ([]Summary, error)
}

// SummaryQueue schedules asynchronous summary generation.
type SummaryQueue interface {
	EnqueuePeriod(ctx context.Context, period Period, ref time.Time) error
	EnqueueUser(ctx context.Context, userID uuid.UUID, w Window) error
}
