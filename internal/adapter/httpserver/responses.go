package httpserver

import (
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/coachpulse/internal/domain"
)

type profileResponse struct {
	ID                    uuid.UUID                 `json:"id"`
	Email                 string                    `json:"email"`
	FullName              string                    `json:"full_name"`
	CoachingFocus         string                    `json:"coaching_focus"`
	Timezone              string                    `json:"timezone"`
	Role                  domain.Role               `json:"role"`
	OnboardingCompleted   bool                      `json:"onboarding_completed"`
	SubscriptionTier      domain.Tier               `json:"subscription_tier"`
	SubscriptionStatus    domain.SubscriptionStatus `json:"subscription_status"`
	SubscriptionExpiresAt *time.Time                `json:"subscription_expires_at"`
	CreatedAt             time.Time                 `json:"created_at"`
}

func newProfileResponse(p *domain.Profile) profileResponse {
	return profileResponse{
		ID:                    p.ID,
		Email:                 p.Email,
		FullName:              p.FullName,
		CoachingFocus:         p.CoachingFocus,
		Timezone:              p.Timezone,
		Role:                  p.Role,
		OnboardingCompleted:   p.OnboardingCompleted,
		SubscriptionTier:      p.SubscriptionTier,
		SubscriptionStatus:    p.SubscriptionStatus,
		SubscriptionExpiresAt: p.SubscriptionExpiresAt,
		CreatedAt:             p.CreatedAt,
	}
}

type businessProfileResponse struct {
	CompanyName string     `json:"company_name"`
	Industry    string     `json:"industry"`
	TeamSize    int        `json:"team_size"`
	Website     string     `json:"website"`
	Challenges  string     `json:"challenges"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

func newBusinessProfileResponse(bp *domain.BusinessProfile) businessProfileResponse {
	resp := businessProfileResponse{
		CompanyName: bp.CompanyName,
		Industry:    bp.Industry,
		TeamSize:    bp.TeamSize,
		Website:     bp.Website,
		Challenges:  bp.Challenges,
	}
	if !bp.UpdatedAt.IsZero() {
		resp.UpdatedAt = &bp.UpdatedAt
	}
	return resp
}

type conversationResponse struct {
	ID        uuid.UUID               `json:"id"`
	Title     string                  `json:"title"`
	Mode      domain.ConversationMode `json:"mode"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func newConversationResponse(c *domain.Conversation) conversationResponse {
	return conversationResponse{ID: c.ID, Title: c.Title, Mode: c.Mode, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

type messageResponse struct {
	ID             uuid.UUID          `json:"id"`
	ConversationID uuid.UUID          `json:"conversation_id"`
	Role           domain.MessageRole `json:"role"`
	Content        string             `json:"content"`
	CreatedAt      time.Time          `json:"created_at"`
}

func newMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{ID: m.ID, ConversationID: m.ConversationID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt}
}

type goalResponse struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	TargetDate  *string           `json:"target_date"`
	Status      domain.GoalStatus `json:"status"`
	Progress    int               `json:"progress"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func newGoalResponse(g *domain.Goal) goalResponse {
	resp := goalResponse{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Status:      g.Status,
		Progress:    g.Progress,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
	if g.TargetDate != nil {
		d := g.TargetDate.Format(time.DateOnly)
		resp.TargetDate = &d
	}
	return resp
}

type sessionResponse struct {
	ID              uuid.UUID            `json:"id"`
	ScheduledAt     time.Time            `json:"scheduled_at"`
	DurationMinutes int                  `json:"duration_minutes"`
	Topic           string               `json:"topic"`
	Status          domain.SessionStatus `json:"status"`
	Notes           string               `json:"notes"`
	CreatedAt       time.Time            `json:"created_at"`
}

func newSessionResponse(s *domain.CoachingSession) sessionResponse {
	return sessionResponse{
		ID:              s.ID,
		ScheduledAt:     s.ScheduledAt,
		DurationMinutes: s.DurationMinutes,
		Topic:           s.Topic,
		Status:          s.Status,
		Notes:           s.Notes,
		CreatedAt:       s.CreatedAt,
	}
}

type feedbackResponse struct {
	ID        uuid.UUID  `json:"id"`
	SessionID *uuid.UUID `json:"session_id"`
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment"`
	UserEmail string     `json:"user_email,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func newFeedbackResponse(f *domain.Feedback) feedbackResponse {
	return feedbackResponse{ID: f.ID, SessionID: f.SessionID, Rating: f.Rating, Comment: f.Comment, UserEmail: f.UserEmail, CreatedAt: f.CreatedAt}
}

type summaryResponse struct {
	ID           uuid.UUID     `json:"id"`
	Period       domain.Period `json:"period"`
	PeriodStart  time.Time     `json:"period_start"`
	PeriodEnd    time.Time     `json:"period_end"`
	Content      string        `json:"content"`
	MessageCount int           `json:"message_count"`
	CreatedAt    time.Time     `json:"created_at"`
}

func newSummaryResponse(s *domain.Summary) summaryResponse {
	return summaryResponse{
		ID:           s.ID,
		Period:       s.Period,
		PeriodStart:  s.PeriodStart,
		PeriodEnd:    s.PeriodEnd,
		Content:      s.Content,
		MessageCount: s.MessageCount,
		CreatedAt:    s.CreatedAt,
	}
}

// mapSlice converts a slice of domain rows with fn.
func mapSlice[T, R any](items []T, fn func(*T) R) []R {
	out := make([]R, len(items))
	for i := range items {
		out[i] = fn(&items[i])
	}
	return out
}
