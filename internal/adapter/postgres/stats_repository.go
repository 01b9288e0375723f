package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/coachpulse/internal/domain"
)

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

func (r *StatsRepo) Stats(ctx context.Context, now time.Time) (*domain.AdminStats, error) {
	stats := domain.AdminStats{SessionsByStatus: make(map[domain.SessionStatus]int)}

	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM profiles),
			(SELECT COUNT(*) FROM profiles
			  WHERE subscription_tier = 'pro' AND subscription_status = 'active'
			    AND (subscription_expires_at IS NULL OR subscription_expires_at > $1)),
			(SELECT COUNT(*) FROM conversations),
			(SELECT COUNT(*) FROM messages WHERE created_at >= $1::timestamptz - INTERVAL '7 days'),
			(SELECT COALESCE(AVG(rating), 0)::float8 FROM feedback),
			(SELECT COUNT(*) FROM feedback)`, now,
	).Scan(&stats.TotalUsers, &stats.ProUsers, &stats.TotalConversations, &stats.MessagesLast7Days, &stats.AverageRating, &stats.FeedbackCount)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin stats: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM coaching_sessions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status domain.SessionStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan session count: %w", err)
		}
		stats.SessionsByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session counts: %w", err)
	}

	return &stats, nil
}
