package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/pscheid92/coachpulse/internal/prompts"
)

// --- Mock implementations ---

type mockProfileRepo struct {
	getFn                func(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	ensureFn             func(ctx context.Context, userID uuid.UUID, email, fullName string) (*domain.Profile, error)
	updateFn             func(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error)
	completeOnboardingFn func(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error)
	setRoleFn            func(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.Profile, error)
	listFn               func(ctx context.Context, limit, offset int) ([]domain.Profile, int, error)
}

func (m *mockProfileRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return nil, domain.ErrProfileNotFound
}

func (m *mockProfileRepo) Ensure(ctx context.Context, userID uuid.UUID, email, fullName string) (*domain.Profile, error) {
	if m.ensureFn != nil {
		return m.ensureFn(ctx, userID, email, fullName)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockProfileRepo) Update(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, upd)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockProfileRepo) CompleteOnboarding(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
	if m.completeOnboardingFn != nil {
		return m.completeOnboardingFn(ctx, userID, upd)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockProfileRepo) GetEntitlement(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error) {
	p, err := m.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	ent := p.Entitlement()
	return &ent, nil
}

func (m *mockProfileRepo) SetRole(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.Profile, error) {
	if m.setRoleFn != nil {
		return m.setRoleFn(ctx, userID, role)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockProfileRepo) List(ctx context.Context, limit, offset int) ([]domain.Profile, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, 0, fmt.Errorf("not implemented")
}

type mockBusinessRepo struct {
	getFn    func(ctx context.Context, userID uuid.UUID) (*domain.BusinessProfile, error)
	upsertFn func(ctx context.Context, bp *domain.BusinessProfile) (*domain.BusinessProfile, error)
}

func (m *mockBusinessRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.BusinessProfile, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return nil, domain.ErrBusinessProfileNotFound
}

func (m *mockBusinessRepo) Upsert(ctx context.Context, bp *domain.BusinessProfile) (*domain.BusinessProfile, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, bp)
	}
	return bp, nil
}

type mockEntitlements struct {
	getFn       func(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error)
	invalidated []uuid.UUID
}

func (m *mockEntitlements) GetEntitlement(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return nil, domain.ErrProfileNotFound
}

func (m *mockEntitlements) InvalidateEntitlement(_ context.Context, userID uuid.UUID) error {
	m.invalidated = append(m.invalidated, userID)
	return nil
}

type mockConversationRepo struct {
	createFn func(ctx context.Context, userID uuid.UUID, title string, mode domain.ConversationMode) (*domain.Conversation, error)
	getFn    func(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error)
	listFn   func(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Conversation, error)
	touched  []uuid.UUID
}

func (m *mockConversationRepo) Create(ctx context.Context, userID uuid.UUID, title string, mode domain.ConversationMode) (*domain.Conversation, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, title, mode)
	}
	return &domain.Conversation{ID: uuid.New(), UserID: userID, Title: title, Mode: mode}, nil
}

func (m *mockConversationRepo) Get(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, conversationID)
	}
	return nil, domain.ErrConversationNotFound
}

func (m *mockConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Conversation, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockConversationRepo) Touch(_ context.Context, conversationID uuid.UUID) error {
	m.touched = append(m.touched, conversationID)
	return nil
}

type mockMessageRepo struct {
	createFn            func(ctx context.Context, conversationID, userID uuid.UUID, role domain.MessageRole, content string) (*domain.Message, error)
	listRecentFn        func(ctx context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error)
	listByConvFn        func(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
	listByUserBetweenFn func(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]domain.Message, error)
	usersBetweenFn      func(ctx context.Context, start, end time.Time) ([]uuid.UUID, error)
	created             []domain.Message
}

func (m *mockMessageRepo) Create(ctx context.Context, conversationID, userID uuid.UUID, role domain.MessageRole, content string) (*domain.Message, error) {
	if m.createFn != nil {
		return m.createFn(ctx, conversationID, userID, role, content)
	}
	msg := domain.Message{ID: uuid.New(), ConversationID: conversationID, UserID: userID, Role: role, Content: content}
	m.created = append(m.created, msg)
	return &msg, nil
}

func (m *mockMessageRepo) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, conversationID, limit)
	}
	return nil, nil
}

func (m *mockMessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	if m.listByConvFn != nil {
		return m.listByConvFn(ctx, conversationID)
	}
	return nil, nil
}

func (m *mockMessageRepo) ListByUserBetween(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]domain.Message, error) {
	if m.listByUserBetweenFn != nil {
		return m.listByUserBetweenFn(ctx, userID, start, end)
	}
	return nil, nil
}

func (m *mockMessageRepo) UsersWithMessagesBetween(ctx context.Context, start, end time.Time) ([]uuid.UUID, error) {
	if m.usersBetweenFn != nil {
		return m.usersBetweenFn(ctx, start, end)
	}
	return nil, nil
}

type mockGoalRepo struct {
	createFn     func(ctx context.Context, g *domain.Goal) (*domain.Goal, error)
	getFn        func(ctx context.Context, userID, goalID uuid.UUID) (*domain.Goal, error)
	listFn       func(ctx context.Context, userID uuid.UUID) ([]domain.Goal, error)
	listActiveFn func(ctx context.Context, userID uuid.UUID) ([]domain.Goal, error)
	updateFn     func(ctx context.Context, g *domain.Goal) (*domain.Goal, error)
}

func (m *mockGoalRepo) Create(ctx context.Context, g *domain.Goal) (*domain.Goal, error) {
	if m.createFn != nil {
		return m.createFn(ctx, g)
	}
	return g, nil
}

func (m *mockGoalRepo) Get(ctx context.Context, userID, goalID uuid.UUID) (*domain.Goal, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, goalID)
	}
	return nil, domain.ErrGoalNotFound
}

func (m *mockGoalRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Goal, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockGoalRepo) ListActive(ctx context.Context, userID uuid.UUID) ([]domain.Goal, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockGoalRepo) Update(ctx context.Context, g *domain.Goal) (*domain.Goal, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, g)
	}
	return g, nil
}

type mockSessionRepo struct {
	createFn func(ctx context.Context, s *domain.CoachingSession) (*domain.CoachingSession, error)
	getFn    func(ctx context.Context, userID, sessionID uuid.UUID) (*domain.CoachingSession, error)
	updateFn func(ctx context.Context, s *domain.CoachingSession) (*domain.CoachingSession, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, s *domain.CoachingSession) (*domain.CoachingSession, error) {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	return s, nil
}

func (m *mockSessionRepo) Get(ctx context.Context, userID, sessionID uuid.UUID) (*domain.CoachingSession, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, sessionID)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *mockSessionRepo) ListByUser(context.Context, uuid.UUID) ([]domain.CoachingSession, error) {
	return nil, nil
}

func (m *mockSessionRepo) Update(ctx context.Context, s *domain.CoachingSession) (*domain.CoachingSession, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, s)
	}
	return s, nil
}

type mockFeedbackRepo struct {
	createFn     func(ctx context.Context, f *domain.Feedback) (*domain.Feedback, error)
	listRecentFn func(ctx context.Context, limit int) ([]domain.Feedback, error)
}

func (m *mockFeedbackRepo) Create(ctx context.Context, f *domain.Feedback) (*domain.Feedback, error) {
	if m.createFn != nil {
		return m.createFn(ctx, f)
	}
	return f, nil
}

func (m *mockFeedbackRepo) ListRecent(ctx context.Context, limit int) ([]domain.Feedback, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return nil, nil
}

type mockSummaryRepo struct {
	upserted []domain.Summary
	listFn   func(ctx context.Context, userID uuid.UUID, period domain.Period, limit int) ([]domain.Summary, error)
}

func (m *mockSummaryRepo) Upsert(_ context.Context, s *domain.Summary) (*domain.Summary, error) {
	m.upserted = append(m.upserted, *s)
	return s, nil
}

func (m *mockSummaryRepo) ListByUser(ctx context.Context, userID uuid.UUID, period domain.Period, limit int) ([]domain.Summary, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, period, limit)
	}
	return nil, nil
}

type mockQueue struct {
	periods []domain.Period
	users   map[uuid.UUID]domain.Window
	userErr error
}

func (m *mockQueue) EnqueuePeriod(_ context.Context, period domain.Period, _ time.Time) error {
	m.periods = append(m.periods, period)
	return nil
}

func (m *mockQueue) EnqueueUser(_ context.Context, userID uuid.UUID, w domain.Window) error {
	if m.userErr != nil {
		return m.userErr
	}
	if m.users == nil {
		m.users = make(map[uuid.UUID]domain.Window)
	}
	m.users[userID] = w
	return nil
}

type mockCompleter struct {
	completeFn func(ctx context.Context, req domain.ChatRequest) (string, error)
	requests   []domain.ChatRequest
}

func (m *mockCompleter) Complete(ctx context.Context, req domain.ChatRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.completeFn != nil {
		return m.completeFn(ctx, req)
	}
	return "reply", nil
}

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(context.Context, string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []float32{0.1, 0.2}, nil
}

type mockKnowledge struct {
	chunks []domain.KnowledgeChunk
	err    error
}

func (m *mockKnowledge) Search(context.Context, []float32, int) ([]domain.KnowledgeChunk, error) {
	return m.chunks, m.err
}

type mockFeatures struct {
	pro bool
	err error
}

func (m *mockFeatures) HasFeature(_ context.Context, _ uuid.UUID, f domain.Feature) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return !f.RequiresPro() || m.pro, nil
}

type mockIdentity struct {
	signInFn func(ctx context.Context, email, password string) (*domain.Identity, error)
	signUpFn func(ctx context.Context, email, password, fullName string) (*domain.Identity, error)
}

func (m *mockIdentity) SignIn(ctx context.Context, email, password string) (*domain.Identity, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockIdentity) SignUp(ctx context.Context, email, password, fullName string) (*domain.Identity, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, email, password, fullName)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockMailer struct {
	sent []domain.Email
	err  error
}

func (m *mockMailer) Send(_ context.Context, e domain.Email) error {
	m.sent = append(m.sent, e)
	return m.err
}

type mockVoice struct {
	transcript string
	audio      []byte
	session    *domain.EphemeralSession
	err        error
	lastInput  string
}

func (m *mockVoice) Transcribe(_ context.Context, _ string, audio io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, audio)
	return m.transcript, m.err
}

func (m *mockVoice) Synthesize(_ context.Context, text string) ([]byte, error) {
	m.lastInput = text
	return m.audio, m.err
}

func (m *mockVoice) CreateRealtimeSession(_ context.Context, instructions string) (*domain.EphemeralSession, error) {
	m.lastInput = instructions
	return m.session, m.err
}

func (m *mockVoice) CreateLiveToken(context.Context) (*domain.EphemeralSession, error) {
	return m.session, m.err
}

type mockPaymentRepo struct {
	orders    map[string]*domain.PaymentOrder
	completed []string
	marked    map[string]domain.OrderState
}

func newMockPaymentRepo(orders ...*domain.PaymentOrder) *mockPaymentRepo {
	m := &mockPaymentRepo{orders: make(map[string]*domain.PaymentOrder), marked: make(map[string]domain.OrderState)}
	for _, o := range orders {
		m.orders[o.ProviderOrderID] = o
	}
	return m
}

func (m *mockPaymentRepo) Create(_ context.Context, o *domain.PaymentOrder) (*domain.PaymentOrder, error) {
	o.ID = uuid.New()
	m.orders[o.ProviderOrderID] = o
	return o, nil
}

func (m *mockPaymentRepo) GetByProviderID(_ context.Context, id string) (*domain.PaymentOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (m *mockPaymentRepo) MarkState(_ context.Context, id string, state domain.OrderState) (*domain.PaymentOrder, error) {
	m.marked[id] = state
	o := m.orders[id]
	o.State = state
	return o, nil
}

func (m *mockPaymentRepo) Complete(_ context.Context, id string, _ time.Time, _ time.Duration) (*domain.PaymentOrder, bool, error) {
	o := m.orders[id]
	if o.State == domain.OrderCompleted {
		return o, false, nil
	}
	o.State = domain.OrderCompleted
	m.completed = append(m.completed, id)
	return o, true, nil
}

type mockPaymentProvider struct {
	created []domain.OrderRequest
	state   domain.OrderState
	err     error
}

func (m *mockPaymentProvider) CreateOrder(_ context.Context, req domain.OrderRequest) (*domain.ProviderOrder, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, req)
	return &domain.ProviderOrder{ID: "ord-1", State: domain.OrderPending, CheckoutURL: "https://checkout.example/ord-1"}, nil
}

func (m *mockPaymentProvider) GetOrder(_ context.Context, id string) (*domain.ProviderOrder, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ProviderOrder{ID: id, State: m.state}, nil
}

type mockStatsRepo struct {
	stats *domain.AdminStats
}

func (m *mockStatsRepo) Stats(context.Context, time.Time) (*domain.AdminStats, error) {
	return m.stats, nil
}

func testCatalog() *prompts.Catalog {
	c := &prompts.Catalog{
		Coach: prompts.Prompt{System: "You are a coach.", Temperature: 0.7, MaxTokens: 800},
		Demo:  prompts.Prompt{System: "You are a demo coach.", Temperature: 0.7, MaxTokens: 300},
	}
	c.Realtime.Instructions = "Speak warmly."
	c.Summary.Temperature = 0.3
	c.Summary.MaxTokens = 1000
	c.Summary.Daily = "Summarize the day."
	c.Summary.Weekly = "Summarize the week."
	c.Summary.Monthly = "Summarize the month."
	return c
}
