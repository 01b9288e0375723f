package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/adapter/metrics"
	"github.com/pscheid92/coachpulse/internal/app"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/pscheid92/coachpulse/internal/platform/config"
	"github.com/pscheid92/coachpulse/web"
)

type authService interface {
	Login(ctx context.Context, creds app.Credentials) (*domain.Profile, error)
	SignUp(ctx context.Context, creds app.Credentials) (*domain.Profile, error)
}

type accessService interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	HasFeature(ctx context.Context, userID uuid.UUID, feature domain.Feature) (bool, error)
	Entitlement(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error)
}

type profileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error)
	CompleteOnboarding(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error)
	GetBusiness(ctx context.Context, userID uuid.UUID) (*domain.BusinessProfile, error)
	UpsertBusiness(ctx context.Context, bp *domain.BusinessProfile) (*domain.BusinessProfile, error)
}

type coachingService interface {
	ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	CreateConversation(ctx context.Context, userID uuid.UUID, title string, mode domain.ConversationMode) (*domain.Conversation, error)
	Messages(ctx context.Context, userID, conversationID uuid.UUID) ([]domain.Message, error)
	AppendMessage(ctx context.Context, userID, conversationID uuid.UUID, role domain.MessageRole, content string) (*domain.Message, error)
	Chat(ctx context.Context, userID uuid.UUID, conversationID *uuid.UUID, message string) (*app.ChatResult, error)
}

type voiceService interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
	Speak(ctx context.Context, text string) ([]byte, error)
	Instructions(ctx context.Context, userID uuid.UUID) string
	RealtimeSession(ctx context.Context, userID uuid.UUID) (*domain.EphemeralSession, error)
	GeminiSession(ctx context.Context) (*domain.EphemeralSession, error)
}

type goalService interface {
	List(ctx context.Context, userID uuid.UUID) ([]domain.Goal, error)
	Create(ctx context.Context, userID uuid.UUID, in app.NewGoal) (*domain.Goal, error)
	Update(ctx context.Context, userID, goalID uuid.UUID, patch app.GoalPatch) (*domain.Goal, error)
}

type sessionService interface {
	List(ctx context.Context, userID uuid.UUID) ([]domain.CoachingSession, error)
	Schedule(ctx context.Context, userID uuid.UUID, in app.NewSession) (*domain.CoachingSession, error)
	Update(ctx context.Context, userID, sessionID uuid.UUID, patch app.SessionPatch) (*domain.CoachingSession, error)
}

type feedbackService interface {
	Submit(ctx context.Context, userID uuid.UUID, rating int, comment string, sessionID *uuid.UUID) (*domain.Feedback, error)
}

type summaryService interface {
	List(ctx context.Context, userID uuid.UUID, period domain.Period, limit int) ([]domain.Summary, error)
	Trigger(ctx context.Context, period domain.Period, userID *uuid.UUID) error
}

type billingService interface {
	Enabled() bool
	Checkout(ctx context.Context, userID uuid.UUID) (*domain.PaymentOrder, error)
	Status(ctx context.Context, userID uuid.UUID) (*app.BillingStatus, error)
	HandleEvent(ctx context.Context, ev domain.PaymentEvent) error
	Sync(ctx context.Context, userID uuid.UUID, providerOrderID string) (*domain.PaymentOrder, error)
}

type adminService interface {
	Stats(ctx context.Context) (*domain.AdminStats, error)
	Users(ctx context.Context, limit, offset int) (*app.UserPage, error)
	SetRole(ctx context.Context, actorID, userID uuid.UUID, role domain.Role) (*domain.Profile, error)
	Feedback(ctx context.Context, limit int) ([]domain.Feedback, error)
}

type demoService interface {
	Start(ctx context.Context) (*app.DemoSession, error)
	Chat(ctx context.Context, token, message string) (*app.DemoReply, error)
}

// paymentWebhook authenticates and decodes payment provider callbacks.
type paymentWebhook interface {
	Verify(h http.Header, body []byte) error
	Parse(body []byte) (domain.PaymentEvent, error)
}

type voiceRelay interface {
	Serve(ctx context.Context, w http.ResponseWriter, req *http.Request, instructions string) error
}

// Services bundles the use cases the HTTP layer exposes.
type Services struct {
	Auth      authService
	Access    accessService
	Profiles  profileService
	Coaching  coachingService
	Voice     voiceService
	Goals     goalService
	Sessions  sessionService
	Feedback  feedbackService
	Summaries summaryService
	Billing   billingService
	Admin     adminService
	Demo      demoService
}

type Deps struct {
	Services       Services
	Tokens         domain.TokenVerifier
	Webhook        paymentWebhook // nil when billing is not configured
	Relay          voiceRelay     // nil when realtime voice is not configured
	HealthChecks   []HealthCheck
	Metrics        *metrics.Set
	MetricsHandler http.Handler
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	svc     Services
	tokens  domain.TokenVerifier
	webhook paymentWebhook
	relay   voiceRelay

	relayLimits    *connectionLimits
	templates      *template.Template
	sessionStore   *sessions.CookieStore
	healthChecks   []HealthCheck
	metrics        *metrics.Set
	metricsHandler http.Handler
	startTime      time.Time
}

func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		svc:            deps.Services,
		tokens:         deps.Tokens,
		webhook:        deps.Webhook,
		relay:          deps.Relay,
		templates:      templates,
		sessionStore:   setupSessionStore(cfg),
		healthChecks:   deps.HealthChecks,
		metrics:        deps.Metrics,
		metricsHandler: deps.MetricsHandler,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func parseTemplates() (*template.Template, error) {
	templates, err := template.New("").Funcs(templateFuncs).ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return templates, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Session keys
const (
	sessionName      = "coachpulse-session"
	sessionKeyUserID = "user_id"
)

func (s *Server) renderTemplate(c echo.Context, name string, data any) error {
	return s.renderTemplateStatus(c, http.StatusOK, name, data)
}

func (s *Server) renderTemplateStatus(c echo.Context, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Template execution failed", "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(status, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	return sessionStore
}
