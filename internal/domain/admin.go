package domain

import (
	"context"
	"time"
)

type AdminStats struct {
	TotalUsers         int                   `json:"total_users"`
	ProUsers           int                   `json:"pro_users"`
	TotalConversations int                   `json:"total_conversations"`
	MessagesLast7Days  int                   `json:"messages_last_7_days"`
	AverageRating      float64               `json:"average_rating"`
	FeedbackCount      int                   `json:"feedback_count"`
	SessionsByStatus   map[SessionStatus]int `json:"sessions_by_status"`
}

type StatsRepository interface {
	Stats(ctx context.Context, now time.Time) (*AdminStats, error)
}
