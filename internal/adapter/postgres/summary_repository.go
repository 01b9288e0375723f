package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/coachpulse/internal/domain"
)

// summaryTables maps each period to its table. Table names are never taken
// from user input.
var summaryTables = map[domain.Period]string{
	domain.PeriodDaily:   "daily_summaries",
	domain.PeriodWeekly:  "weekly_summaries",
	domain.PeriodMonthly: "monthly_summaries",
}

const summaryColumns = `id, user_id, period_start, period_end, content, message_count, created_at, updated_at`

type SummaryRepo struct {
	pool *pgxpool.Pool
}

func NewSummaryRepo(pool *pgxpool.Pool) *SummaryRepo {
	return &SummaryRepo{pool: pool}
}

func summaryTable(p domain.Period) (string, error) {
	table, ok := summaryTables[p]
	if !ok {
		return "", fmt.Errorf("no summary table for period %q", p)
	}
	return table, nil
}

func scanSummary(period domain.Period) func(scanner) (*domain.Summary, error) {
	return func(row scanner) (*domain.Summary, error) {
		s := domain.Summary{Period: period}
		if err := row.Scan(&s.ID, &s.UserID, &s.PeriodStart, &s.PeriodEnd, &s.Content, &s.MessageCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		return &s, nil
	}
}

func (r *SummaryRepo) Upsert(ctx context.Context, s *domain.Summary) (*domain.Summary, error) {
	table, err := summaryTable(s.Period)
	if err != nil {
		return nil, err
	}

	saved, err := scanSummary(s.Period)(r.pool.QueryRow(ctx, `
		INSERT INTO `+table+` (user_id, period_start, period_end, content, message_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, period_start) DO UPDATE
		SET period_end = EXCLUDED.period_end,
		    content = EXCLUDED.content,
		    message_count = EXCLUDED.message_count,
		    updated_at = NOW()
		RETURNING `+summaryColumns, s.UserID, s.PeriodStart, s.PeriodEnd, s.Content, s.MessageCount))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %s summary: %w", s.Period, err)
	}
	return saved, nil
}

func (r *SummaryRepo) ListByUser(ctx context.Context, userID uuid.UUID, period domain.Period, limit int) ([]domain.Summary, error) {
	table, err := summaryTable(period)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+summaryColumns+` FROM `+table+`
		WHERE user_id = $1
		ORDER BY period_start DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s summaries: %w", period, err)
	}
	return collect(rows, scanSummary(period))
}
