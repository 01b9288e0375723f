package httpserver

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/app"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/pscheid92/coachpulse/internal/platform/config"
	"github.com/stretchr/testify/require"
)

var errNotImplemented = errors.New("not implemented")

// --- Mock implementations ---

type mockAuth struct {
	loginFn  func(ctx context.Context, creds app.Credentials) (*domain.Profile, error)
	signUpFn func(ctx context.Context, creds app.Credentials) (*domain.Profile, error)
}

func (m *mockAuth) Login(ctx context.Context, creds app.Credentials) (*domain.Profile, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, creds)
	}
	return nil, errNotImplemented
}

func (m *mockAuth) SignUp(ctx context.Context, creds app.Credentials) (*domain.Profile, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, creds)
	}
	return nil, errNotImplemented
}

// mockAccess resolves every user as known; admin and pro are toggles.
type mockAccess struct {
	admin   bool
	pro     bool
	unknown bool
}

func (m *mockAccess) IsAdmin(_ context.Context, _ uuid.UUID) (bool, error) {
	return m.admin, nil
}

func (m *mockAccess) HasFeature(_ context.Context, _ uuid.UUID, f domain.Feature) (bool, error) {
	return !f.RequiresPro() || m.pro, nil
}

func (m *mockAccess) Entitlement(_ context.Context, userID uuid.UUID) (*domain.Entitlement, error) {
	if m.unknown {
		return nil, domain.ErrProfileNotFound
	}
	return &domain.Entitlement{UserID: userID, Role: domain.RoleUser, Tier: domain.TierFree}, nil
}

type mockProfiles struct {
	getFn                func(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	updateFn             func(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error)
	completeOnboardingFn func(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error)
	getBusinessFn        func(ctx context.Context, userID uuid.UUID) (*domain.BusinessProfile, error)
	upsertBusinessFn     func(ctx context.Context, bp *domain.BusinessProfile) (*domain.BusinessProfile, error)
}

func (m *mockProfiles) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return &domain.Profile{ID: userID, Email: "ada@example.com", FullName: "Ada", Role: domain.RoleUser, OnboardingCompleted: true}, nil
}

func (m *mockProfiles) Update(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, upd)
	}
	return nil, errNotImplemented
}

func (m *mockProfiles) CompleteOnboarding(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
	if m.completeOnboardingFn != nil {
		return m.completeOnboardingFn(ctx, userID, upd)
	}
	return nil, errNotImplemented
}

func (m *mockProfiles) GetBusiness(ctx context.Context, userID uuid.UUID) (*domain.BusinessProfile, error) {
	if m.getBusinessFn != nil {
		return m.getBusinessFn(ctx, userID)
	}
	return &domain.BusinessProfile{UserID: userID}, nil
}

func (m *mockProfiles) UpsertBusiness(ctx context.Context, bp *domain.BusinessProfile) (*domain.BusinessProfile, error) {
	if m.upsertBusinessFn != nil {
		return m.upsertBusinessFn(ctx, bp)
	}
	return nil, errNotImplemented
}

type mockCoaching struct {
	listConversationsFn  func(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	createConversationFn func(ctx context.Context, userID uuid.UUID, title string, mode domain.ConversationMode) (*domain.Conversation, error)
	messagesFn           func(ctx context.Context, userID, conversationID uuid.UUID) ([]domain.Message, error)
	appendMessageFn      func(ctx context.Context, userID, conversationID uuid.UUID, role domain.MessageRole, content string) (*domain.Message, error)
	chatFn               func(ctx context.Context, userID uuid.UUID, conversationID *uuid.UUID, message string) (*app.ChatResult, error)
}

func (m *mockCoaching) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	if m.listConversationsFn != nil {
		return m.listConversationsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockCoaching) CreateConversation(ctx context.Context, userID uuid.UUID, title string, mode domain.ConversationMode) (*domain.Conversation, error) {
	if m.createConversationFn != nil {
		return m.createConversationFn(ctx, userID, title, mode)
	}
	return nil, errNotImplemented
}

func (m *mockCoaching) Messages(ctx context.Context, userID, conversationID uuid.UUID) ([]domain.Message, error) {
	if m.messagesFn != nil {
		return m.messagesFn(ctx, userID, conversationID)
	}
	return nil, errNotImplemented
}

func (m *mockCoaching) AppendMessage(ctx context.Context, userID, conversationID uuid.UUID, role domain.MessageRole, content string) (*domain.Message, error) {
	if m.appendMessageFn != nil {
		return m.appendMessageFn(ctx, userID, conversationID, role, content)
	}
	return nil, errNotImplemented
}

func (m *mockCoaching) Chat(ctx context.Context, userID uuid.UUID, conversationID *uuid.UUID, message string) (*app.ChatResult, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, userID, conversationID, message)
	}
	return nil, errNotImplemented
}

type mockVoice struct {
	transcribeFn      func(ctx context.Context, filename string, audio io.Reader) (string, error)
	speakFn           func(ctx context.Context, text string) ([]byte, error)
	realtimeSessionFn func(ctx context.Context, userID uuid.UUID) (*domain.EphemeralSession, error)
	geminiSessionFn   func(ctx context.Context) (*domain.EphemeralSession, error)
}

func (m *mockVoice) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if m.transcribeFn != nil {
		return m.transcribeFn(ctx, filename, audio)
	}
	return "", errNotImplemented
}

func (m *mockVoice) Speak(ctx context.Context, text string) ([]byte, error) {
	if m.speakFn != nil {
		return m.speakFn(ctx, text)
	}
	return nil, errNotImplemented
}

func (m *mockVoice) Instructions(_ context.Context, _ uuid.UUID) string {
	return "be a coach"
}

func (m *mockVoice) RealtimeSession(ctx context.Context, userID uuid.UUID) (*domain.EphemeralSession, error) {
	if m.realtimeSessionFn != nil {
		return m.realtimeSessionFn(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockVoice) GeminiSession(ctx context.Context) (*domain.EphemeralSession, error) {
	if m.geminiSessionFn != nil {
		return m.geminiSessionFn(ctx)
	}
	return nil, errNotImplemented
}

type mockGoals struct {
	listFn   func(ctx context.Context, userID uuid.UUID) ([]domain.Goal, error)
	createFn func(ctx context.Context, userID uuid.UUID, in app.NewGoal) (*domain.Goal, error)
	updateFn func(ctx context.Context, userID, goalID uuid.UUID, patch app.GoalPatch) (*domain.Goal, error)
}

func (m *mockGoals) List(ctx context.Context, userID uuid.UUID) ([]domain.Goal, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockGoals) Create(ctx context.Context, userID uuid.UUID, in app.NewGoal) (*domain.Goal, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, in)
	}
	return nil, errNotImplemented
}

func (m *mockGoals) Update(ctx context.Context, userID, goalID uuid.UUID, patch app.GoalPatch) (*domain.Goal, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, goalID, patch)
	}
	return nil, errNotImplemented
}

type mockSessions struct {
	listFn     func(ctx context.Context, userID uuid.UUID) ([]domain.CoachingSession, error)
	scheduleFn func(ctx context.Context, userID uuid.UUID, in app.NewSession) (*domain.CoachingSession, error)
	updateFn   func(ctx context.Context, userID, sessionID uuid.UUID, patch app.SessionPatch) (*domain.CoachingSession, error)
}

func (m *mockSessions) List(ctx context.Context, userID uuid.UUID) ([]domain.CoachingSession, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockSessions) Schedule(ctx context.Context, userID uuid.UUID, in app.NewSession) (*domain.CoachingSession, error) {
	if m.scheduleFn != nil {
		return m.scheduleFn(ctx, userID, in)
	}
	return nil, errNotImplemented
}

func (m *mockSessions) Update(ctx context.Context, userID, sessionID uuid.UUID, patch app.SessionPatch) (*domain.CoachingSession, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, sessionID, patch)
	}
	return nil, errNotImplemented
}

type mockFeedback struct {
	submitFn func(ctx context.Context, userID uuid.UUID, rating int, comment string, sessionID *uuid.UUID) (*domain.Feedback, error)
}

func (m *mockFeedback) Submit(ctx context.Context, userID uuid.UUID, rating int, comment string, sessionID *uuid.UUID) (*domain.Feedback, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, userID, rating, comment, sessionID)
	}
	return nil, errNotImplemented
}

type mockSummaries struct {
	listFn    func(ctx context.Context, userID uuid.UUID, period domain.Period, limit int) ([]domain.Summary, error)
	triggerFn func(ctx context.Context, period domain.Period, userID *uuid.UUID) error
}

func (m *mockSummaries) List(ctx context.Context, userID uuid.UUID, period domain.Period, limit int) ([]domain.Summary, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, period, limit)
	}
	return nil, nil
}

func (m *mockSummaries) Trigger(ctx context.Context, period domain.Period, userID *uuid.UUID) error {
	if m.triggerFn != nil {
		return m.triggerFn(ctx, period, userID)
	}
	return errNotImplemented
}

type mockBilling struct {
	enabled       bool
	checkoutFn    func(ctx context.Context, userID uuid.UUID) (*domain.PaymentOrder, error)
	statusFn      func(ctx context.Context, userID uuid.UUID) (*app.BillingStatus, error)
	handleEventFn func(ctx context.Context, ev domain.PaymentEvent) error
	syncFn        func(ctx context.Context, userID uuid.UUID, providerOrderID string) (*domain.PaymentOrder, error)
}

func (m *mockBilling) Enabled() bool { return m.enabled }

func (m *mockBilling) Checkout(ctx context.Context, userID uuid.UUID) (*domain.PaymentOrder, error) {
	if m.checkoutFn != nil {
		return m.checkoutFn(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockBilling) Status(ctx context.Context, userID uuid.UUID) (*app.BillingStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockBilling) HandleEvent(ctx context.Context, ev domain.PaymentEvent) error {
	if m.handleEventFn != nil {
		return m.handleEventFn(ctx, ev)
	}
	return errNotImplemented
}

func (m *mockBilling) Sync(ctx context.Context, userID uuid.UUID, providerOrderID string) (*domain.PaymentOrder, error) {
	if m.syncFn != nil {
		return m.syncFn(ctx, userID, providerOrderID)
	}
	return nil, errNotImplemented
}

type mockAdmin struct {
	statsFn    func(ctx context.Context) (*domain.AdminStats, error)
	usersFn    func(ctx context.Context, limit, offset int) (*app.UserPage, error)
	setRoleFn  func(ctx context.Context, actorID, userID uuid.UUID, role domain.Role) (*domain.Profile, error)
	feedbackFn func(ctx context.Context, limit int) ([]domain.Feedback, error)
}

func (m *mockAdmin) Stats(ctx context.Context) (*domain.AdminStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &domain.AdminStats{}, nil
}

func (m *mockAdmin) Users(ctx context.Context, limit, offset int) (*app.UserPage, error) {
	if m.usersFn != nil {
		return m.usersFn(ctx, limit, offset)
	}
	return nil, errNotImplemented
}

func (m *mockAdmin) SetRole(ctx context.Context, actorID, userID uuid.UUID, role domain.Role) (*domain.Profile, error) {
	if m.setRoleFn != nil {
		return m.setRoleFn(ctx, actorID, userID, role)
	}
	return nil, errNotImplemented
}

func (m *mockAdmin) Feedback(ctx context.Context, limit int) ([]domain.Feedback, error) {
	if m.feedbackFn != nil {
		return m.feedbackFn(ctx, limit)
	}
	return nil, errNotImplemented
}

type mockDemo struct {
	startFn func(ctx context.Context) (*app.DemoSession, error)
	chatFn  func(ctx context.Context, token, message string) (*app.DemoReply, error)
}

func (m *mockDemo) Start(ctx context.Context) (*app.DemoSession, error) {
	if m.startFn != nil {
		return m.startFn(ctx)
	}
	return nil, errNotImplemented
}

func (m *mockDemo) Chat(ctx context.Context, token, message string) (*app.DemoReply, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, token, message)
	}
	return nil, errNotImplemented
}

type mockTokens struct {
	verifyFn func(ctx context.Context, token string) (uuid.UUID, error)
}

func (m *mockTokens) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, token)
	}
	return uuid.Nil, domain.ErrInvalidToken
}

type mockWebhook struct {
	verifyErr error
	event     domain.PaymentEvent
	parseErr  error
}

func (m *mockWebhook) Verify(_ http.Header, _ []byte) error { return m.verifyErr }

func (m *mockWebhook) Parse(_ []byte) (domain.PaymentEvent, error) { return m.event, m.parseErr }

// --- Test helpers ---

// newTestServices returns a Services bundle where every field is a mock with
// default behavior.
func newTestServices() Services {
	return Services{
		Auth:      &mockAuth{},
		Access:    &mockAccess{},
		Profiles:  &mockProfiles{},
		Coaching:  &mockCoaching{},
		Voice:     &mockVoice{},
		Goals:     &mockGoals{},
		Sessions:  &mockSessions{},
		Feedback:  &mockFeedback{},
		Summaries: &mockSummaries{},
		Billing:   &mockBilling{},
		Admin:     &mockAdmin{},
		Demo:      &mockDemo{},
	}
}

const testCronSecret = "cron-secret-for-tests"

func newTestServer(t *testing.T, svc Services, opts ...func(*Server)) *Server {
	t.Helper()

	tmpl := template.Must(template.New("landing.html").Funcs(templateFuncs).Parse(`Landing`))
	template.Must(tmpl.New("login.html").Parse(`Login {{.Error}}`))
	template.Must(tmpl.New("signup.html").Parse(`Signup {{.Error}}`))
	template.Must(tmpl.New("onboarding.html").Parse(`Onboarding {{.Error}}`))
	template.Must(tmpl.New("dashboard.html").Parse(`Dashboard {{.Profile.FullName}}`))
	template.Must(tmpl.New("chat.html").Parse(`Chat {{len .Conversations}}`))
	template.Must(tmpl.New("goals.html").Parse(`Goals {{len .Goals}}`))
	template.Must(tmpl.New("summaries.html").Parse(`Summaries {{.Period}} {{range .Summaries}}{{markdown .Content}}{{end}}`))
	template.Must(tmpl.New("pricing.html").Parse(`Pricing {{money .PriceMinor .Currency}} {{.BillingEnabled}}`))
	template.Must(tmpl.New("admin.html").Parse(`Admin {{.Stats.TotalUsers}}`))

	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!!"))
	store.Options = &sessions.Options{
		Path:   "/",
		MaxAge: 3600,
	}

	srv := &Server{
		echo: echo.New(),
		config: &config.Config{
			AppEnv:        "development",
			BaseURL:       "http://localhost:8080",
			SessionMaxAge: time.Hour,
			CronSecret:    testCronSecret,
			ProPriceMinor: 2900,
			ProCurrency:   "EUR",
			ProPeriod:     30 * 24 * time.Hour,
		},
		svc:          svc,
		tokens:       &mockTokens{},
		sessionStore: store,
		templates:    tmpl,
		startTime:    time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withTokens(tokens domain.TokenVerifier) func(*Server) {
	return func(s *Server) {
		s.tokens = tokens
	}
}

func withWebhook(w paymentWebhook) func(*Server) {
	return func(s *Server) {
		s.webhook = w
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware(nil)(handler)(c)
}

// newAuthedContext builds a context as requireAPIAuth leaves it.
func newAuthedContext(srv *Server, req *http.Request, userID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.Set(ctxKeyUserID, userID)
	return c, rec
}

// setSessionUserID attaches a signed session cookie for userID to req.
func setSessionUserID(t *testing.T, srv *Server, req *http.Request, userID uuid.UUID) {
	t.Helper()
	session, _ := srv.sessionStore.New(req, sessionName)
	require.NotNil(t, session)
	session.Values[sessionKeyUserID] = userID.String()

	rec := httptest.NewRecorder()
	require.NoError(t, session.Save(req, rec))
	for _, cookie := range rec.Result().Cookies() {
		req.AddCookie(cookie)
	}
}
