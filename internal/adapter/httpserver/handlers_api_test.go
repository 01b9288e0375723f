package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/app"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// --- profile ---

func TestHandleUpdateProfile_PassesFields(t *testing.T) {
	userID := uuid.New()
	svc := newTestServices()
	svc.Profiles = &mockProfiles{updateFn: func(_ context.Context, id uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
		assert.Equal(t, userID, id)
		assert.Equal(t, "Europe/Berlin", upd.Timezone)
		return &domain.Profile{ID: id, FullName: upd.FullName, Timezone: upd.Timezone}, nil
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPut, "/api/profile",
		`{"full_name":"Ada","coaching_focus":"delegation","timezone":"Europe/Berlin"}`), userID)

	require.NoError(t, callHandler(srv.handleUpdateProfile, c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"timezone":"Europe/Berlin"`)
}

func TestHandleGetBusinessProfile_EmptyProfile(t *testing.T) {
	srv := newTestServer(t, newTestServices())
	c, rec := newAuthedContext(srv, httptest.NewRequest(http.MethodGet, "/api/business-profile", nil), uuid.New())

	require.NoError(t, callHandler(srv.handleGetBusinessProfile, c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"updated_at":null`)
}

// --- chat ---

func TestHandleChat_ReturnsAssistantMessage(t *testing.T) {
	userID := uuid.New()
	convID := uuid.New()
	svc := newTestServices()
	svc.Coaching = &mockCoaching{chatFn: func(_ context.Context, id uuid.UUID, conversationID *uuid.UUID, message string) (*app.ChatResult, error) {
		assert.Nil(t, conversationID)
		assert.Equal(t, "How do I delegate?", message)
		return &app.ChatResult{
			ConversationID: convID,
			UserMessage:    &domain.Message{ConversationID: convID, Role: domain.RoleUserMessage, Content: message},
			Reply:          &domain.Message{ID: uuid.New(), ConversationID: convID, Role: domain.RoleAssistantMessage, Content: "Start small."},
		}, nil
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPost, "/api/chat", `{"message":"How do I delegate?"}`), userID)

	require.NoError(t, callHandler(srv.handleChat, c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, convID, resp.ConversationID)
	assert.Equal(t, domain.RoleAssistantMessage, resp.Message.Role)
	assert.Equal(t, "Start small.", resp.Message.Content)
}

func TestHandleChat_ContinuesConversation(t *testing.T) {
	convID := uuid.New()
	svc := newTestServices()
	svc.Coaching = &mockCoaching{chatFn: func(_ context.Context, _ uuid.UUID, conversationID *uuid.UUID, _ string) (*app.ChatResult, error) {
		require.NotNil(t, conversationID)
		assert.Equal(t, convID, *conversationID)
		return nil, domain.ErrConversationNotFound
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPost, "/api/chat",
		fmt.Sprintf(`{"conversation_id":%q,"message":"hi"}`, convID)), uuid.New())

	_ = callHandler(srv.handleChat, c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListMessages_BadID(t *testing.T) {
	srv := newTestServer(t, newTestServices())
	c, rec := newAuthedContext(srv, httptest.NewRequest(http.MethodGet, "/api/conversations/nope/messages", nil), uuid.New())
	c.SetParamNames("id")
	c.SetParamValues("nope")

	_ = callHandler(srv.handleListMessages, c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAppendMessage(t *testing.T) {
	convID := uuid.New()
	svc := newTestServices()
	svc.Coaching = &mockCoaching{appendMessageFn: func(_ context.Context, _, id uuid.UUID, role domain.MessageRole, content string) (*domain.Message, error) {
		assert.Equal(t, convID, id)
		assert.Equal(t, domain.RoleAssistantMessage, role)
		return &domain.Message{ID: uuid.New(), ConversationID: id, Role: role, Content: content}, nil
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPost, "/", `{"role":"assistant","content":"spoken reply"}`), uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(convID.String())

	require.NoError(t, callHandler(srv.handleAppendMessage, c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "spoken reply")
}

// --- voice ---

func multipartAudio(t *testing.T, field string, size int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, "turn.webm")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0x1a}, size))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/voice/transcribe", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestHandleTranscribe(t *testing.T) {
	svc := newTestServices()
	svc.Voice = &mockVoice{transcribeFn: func(_ context.Context, filename string, audio io.Reader) (string, error) {
		assert.Equal(t, "turn.webm", filename)
		data, err := io.ReadAll(audio)
		require.NoError(t, err)
		assert.Len(t, data, 512)
		return "hello coach", nil
	}}
	srv := newTestServer(t, svc)

	req := multipartAudio(t, "audio", 512)
	c, rec := newAuthedContext(srv, req, uuid.New())

	require.NoError(t, callHandler(srv.handleTranscribe, c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"hello coach"}`, rec.Body.String())
}

func TestHandleTranscribe_MissingFile(t *testing.T) {
	srv := newTestServer(t, newTestServices())
	req := multipartAudio(t, "file", 16)
	c, rec := newAuthedContext(srv, req, uuid.New())

	_ = callHandler(srv.handleTranscribe, c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "audio file is required")
}

func TestHandleSpeech_ReturnsMPEG(t *testing.T) {
	svc := newTestServices()
	svc.Voice = &mockVoice{speakFn: func(_ context.Context, text string) ([]byte, error) {
		assert.Equal(t, "hello", text)
		return []byte("ID3fake"), nil
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPost, "/api/voice/speech", `{"text":"hello"}`), uuid.New())

	require.NoError(t, callHandler(srv.handleSpeech, c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "ID3fake", rec.Body.String())
}

func TestVoiceRoutes_RequirePro(t *testing.T) {
	srv := newTestServer(t, newTestServices())

	req := jsonRequest(http.MethodPost, "/api/voice/realtime-session", `{}`)
	setSessionUserID(t, srv, req, uuid.New())
	rec := httptest.NewRecorder()

	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleRealtimeSession_ProviderDisabled(t *testing.T) {
	svc := newTestServices()
	svc.Voice = &mockVoice{realtimeSessionFn: func(_ context.Context, _ uuid.UUID) (*domain.EphemeralSession, error) {
		return nil, domain.ErrProviderDisabled
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPost, "/api/voice/realtime-session", `{}`), uuid.New())

	_ = callHandler(srv.handleRealtimeSession, c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleVoiceRelay_NotConfigured(t *testing.T) {
	srv := newTestServer(t, newTestServices())
	c, rec := newAuthedContext(srv, httptest.NewRequest(http.MethodGet, "/api/voice/relay", nil), uuid.New())

	_ = callHandler(srv.handleVoiceRelay, c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// --- goals and sessions ---

func TestHandleCreateGoal(t *testing.T) {
	target := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	svc := newTestServices()
	svc.Goals = &mockGoals{createFn: func(_ context.Context, userID uuid.UUID, in app.NewGoal) (*domain.Goal, error) {
		assert.Equal(t, "2026-12-31", in.TargetDate)
		return &domain.Goal{ID: uuid.New(), UserID: userID, Title: in.Title, TargetDate: &target, Status: domain.GoalActive}, nil
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPost, "/api/goals", `{"title":"Hire a COO","target_date":"2026-12-31"}`), uuid.New())

	require.NoError(t, callHandler(srv.handleCreateGoal, c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"target_date":"2026-12-31"`)
}

func TestHandleUpdateGoal_PartialPatch(t *testing.T) {
	goalID := uuid.New()
	svc := newTestServices()
	svc.Goals = &mockGoals{updateFn: func(_ context.Context, _, id uuid.UUID, patch app.GoalPatch) (*domain.Goal, error) {
		assert.Equal(t, goalID, id)
		assert.Nil(t, patch.Title)
		require.NotNil(t, patch.Status)
		assert.Equal(t, domain.GoalCompleted, *patch.Status)
		return &domain.Goal{ID: id, Status: domain.GoalCompleted, Progress: 100}, nil
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPatch, "/", `{"status":"completed"}`), uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(goalID.String())

	require.NoError(t, callHandler(srv.handleUpdateGoal, c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"progress":100`)
}

func TestHandleUpdateSession_InvalidTransition(t *testing.T) {
	svc := newTestServices()
	svc.Sessions = &mockSessions{updateFn: func(_ context.Context, _, _ uuid.UUID, _ app.SessionPatch) (*domain.CoachingSession, error) {
		return nil, fmt.Errorf("completed -> cancelled: %w", domain.ErrInvalidTransition)
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPatch, "/", `{"status":"cancelled"}`), uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	_ = callHandler(srv.handleUpdateSession, c)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleScheduleSession_ValidationError(t *testing.T) {
	svc := newTestServices()
	svc.Sessions = &mockSessions{scheduleFn: func(_ context.Context, _ uuid.UUID, in app.NewSession) (*domain.CoachingSession, error) {
		assert.Equal(t, 240, in.DurationMinutes)
		return nil, apperrors.ValidationError("duration_minutes must be between 15 and 180")
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPost, "/api/sessions",
		`{"scheduled_at":"2030-01-01T10:00:00Z","duration_minutes":240}`), uuid.New())

	_ = callHandler(srv.handleScheduleSession, c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSubmitFeedback(t *testing.T) {
	sessionID := uuid.New()
	svc := newTestServices()
	svc.Feedback = &mockFeedback{submitFn: func(_ context.Context, _ uuid.UUID, rating int, _ string, sid *uuid.UUID) (*domain.Feedback, error) {
		assert.Equal(t, 5, rating)
		require.NotNil(t, sid)
		assert.Equal(t, sessionID, *sid)
		return &domain.Feedback{ID: uuid.New(), SessionID: sid, Rating: rating}, nil
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPost, "/api/feedback",
		fmt.Sprintf(`{"rating":5,"session_id":%q}`, sessionID)), uuid.New())

	require.NoError(t, callHandler(srv.handleSubmitFeedback, c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

// --- summaries ---

func TestHandleListSummaries(t *testing.T) {
	svc := newTestServices()
	svc.Summaries = &mockSummaries{listFn: func(_ context.Context, _ uuid.UUID, period domain.Period, limit int) ([]domain.Summary, error) {
		assert.Equal(t, domain.PeriodWeekly, period)
		assert.Equal(t, 5, limit)
		return []domain.Summary{{ID: uuid.New(), Period: period, Content: "# Week"}}, nil
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, httptest.NewRequest(http.MethodGet, "/api/summaries?period=weekly&limit=5", nil), uuid.New())

	require.NoError(t, callHandler(srv.handleListSummaries, c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# Week")
}

func TestHandleListSummaries_BadInput(t *testing.T) {
	srv := newTestServer(t, newTestServices())

	for _, q := range []string{"period=yearly", "period=daily&limit=ten"} {
		c, rec := newAuthedContext(srv, httptest.NewRequest(http.MethodGet, "/api/summaries?"+q, nil), uuid.New())
		_ = callHandler(srv.handleListSummaries, c)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestCronSummaries_EndToEnd(t *testing.T) {
	var triggered domain.Period
	svc := newTestServices()
	svc.Summaries = &mockSummaries{triggerFn: func(_ context.Context, period domain.Period, userID *uuid.UUID) error {
		assert.Nil(t, userID)
		triggered = period
		return nil
	}}
	srv := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/cron/summaries?period=monthly", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+testCronSecret)
	rec := httptest.NewRecorder()

	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, domain.PeriodMonthly, triggered)
}

// --- billing ---

func TestHandleCheckout(t *testing.T) {
	svc := newTestServices()
	svc.Billing = &mockBilling{enabled: true, checkoutFn: func(_ context.Context, _ uuid.UUID) (*domain.PaymentOrder, error) {
		return &domain.PaymentOrder{ProviderOrderID: "ord-1", State: domain.OrderPending, CheckoutURL: "https://checkout.example/ord-1"}, nil
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPost, "/api/billing/checkout", `{}`), uuid.New())

	require.NoError(t, callHandler(srv.handleCheckout, c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"order_id":"ord-1","state":"pending","checkout_url":"https://checkout.example/ord-1"}`, rec.Body.String())
}

func TestHandleCheckout_AlreadyPro(t *testing.T) {
	svc := newTestServices()
	svc.Billing = &mockBilling{checkoutFn: func(_ context.Context, _ uuid.UUID) (*domain.PaymentOrder, error) {
		return nil, domain.ErrAlreadySubscribed
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPost, "/api/billing/checkout", `{}`), uuid.New())

	_ = callHandler(srv.handleCheckout, c)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleRevolutWebhook(t *testing.T) {
	event := domain.PaymentEvent{Event: domain.EventOrderCompleted, OrderID: "ord-1"}

	tests := []struct {
		name       string
		webhook    paymentWebhook
		handleErr  error
		wantStatus int
		wantCalled bool
	}{
		{"not configured", nil, nil, http.StatusServiceUnavailable, false},
		{"bad signature", &mockWebhook{verifyErr: domain.ErrInvalidSignature}, nil, http.StatusUnauthorized, false},
		{"bad payload", &mockWebhook{parseErr: fmt.Errorf("missing order_id")}, nil, http.StatusBadRequest, false},
		{"applied", &mockWebhook{event: event}, nil, http.StatusOK, true},
		{"handler failure", &mockWebhook{event: event}, fmt.Errorf("db down"), http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			svc := newTestServices()
			svc.Billing = &mockBilling{handleEventFn: func(_ context.Context, ev domain.PaymentEvent) error {
				called = true
				assert.Equal(t, event, ev)
				return tt.handleErr
			}}
			srv := newTestServer(t, svc, withWebhook(tt.webhook))

			req := httptest.NewRequest(http.MethodPost, "/webhooks/revolut", strings.NewReader(`{"event":"ORDER_COMPLETED","order_id":"ord-1"}`))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()

			srv.echo.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}

func TestHandleBillingSync(t *testing.T) {
	svc := newTestServices()
	svc.Billing = &mockBilling{syncFn: func(_ context.Context, _ uuid.UUID, orderID string) (*domain.PaymentOrder, error) {
		assert.Equal(t, "ord-9", orderID)
		return &domain.PaymentOrder{ProviderOrderID: orderID, State: domain.OrderCompleted}, nil
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPost, "/", `{}`), uuid.New())
	c.SetParamNames("order_id")
	c.SetParamValues("ord-9")

	require.NoError(t, callHandler(srv.handleBillingSync, c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"completed"`)
}

// --- admin ---

func TestAdminRoutes_ForbiddenForUsers(t *testing.T) {
	srv := newTestServer(t, newTestServices())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	setSessionUserID(t, srv, req, uuid.New())
	rec := httptest.NewRecorder()

	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleAdminUsers_Paging(t *testing.T) {
	svc := newTestServices()
	svc.Admin = &mockAdmin{usersFn: func(_ context.Context, limit, offset int) (*app.UserPage, error) {
		assert.Equal(t, 20, limit)
		assert.Equal(t, 40, offset)
		return &app.UserPage{Users: []domain.Profile{{ID: uuid.New(), Email: "a@example.com"}}, Total: 41, Limit: limit, Offset: offset}, nil
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, httptest.NewRequest(http.MethodGet, "/api/admin/users?limit=20&offset=40", nil), uuid.New())

	require.NoError(t, callHandler(srv.handleAdminUsers, c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp userPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 41, resp.Total)
	assert.Len(t, resp.Users, 1)
}

func TestHandleAdminSetRole(t *testing.T) {
	actorID := uuid.New()
	targetID := uuid.New()
	svc := newTestServices()
	svc.Admin = &mockAdmin{setRoleFn: func(_ context.Context, actor, user uuid.UUID, role domain.Role) (*domain.Profile, error) {
		assert.Equal(t, actorID, actor)
		assert.Equal(t, targetID, user)
		return &domain.Profile{ID: user, Role: role}, nil
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPatch, "/", `{"role":"admin"}`), actorID)
	c.SetParamNames("id")
	c.SetParamValues(targetID.String())

	require.NoError(t, callHandler(srv.handleAdminSetRole, c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)
}

func TestHandleAdminRunSummaries_ForOneUser(t *testing.T) {
	userID := uuid.New()
	svc := newTestServices()
	svc.Summaries = &mockSummaries{triggerFn: func(_ context.Context, period domain.Period, uid *uuid.UUID) error {
		assert.Equal(t, domain.PeriodDaily, period)
		require.NotNil(t, uid)
		assert.Equal(t, userID, *uid)
		return nil
	}}
	srv := newTestServer(t, svc)

	c, rec := newAuthedContext(srv, jsonRequest(http.MethodPost, "/api/admin/summaries/run",
		fmt.Sprintf(`{"period":"daily","user_id":%q}`, userID)), uuid.New())

	require.NoError(t, callHandler(srv.handleAdminRunSummaries, c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

// --- demo ---

func TestDemoEndpoints(t *testing.T) {
	expires := time.Date(2026, 6, 1, 12, 30, 0, 0, time.UTC)
	svc := newTestServices()
	svc.Demo = &mockDemo{
		startFn: func(_ context.Context) (*app.DemoSession, error) {
			return &app.DemoSession{Token: "tok", ExpiresAt: expires, Remaining: 10}, nil
		},
		chatFn: func(_ context.Context, token, message string) (*app.DemoReply, error) {
			switch token {
			case "tok":
				return &app.DemoReply{Reply: "echo: " + message, Remaining: 9}, nil
			case "spent":
				return nil, domain.ErrDemoLimitReached
			default:
				return nil, domain.ErrDemoSessionNotFound
			}
		},
	}
	srv := newTestServer(t, svc)

	t.Run("start", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/demo/session", `{}`))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"token":"tok","expires_at":"2026-06-01T12:30:00Z","remaining":10}`, rec.Body.String())
	})

	tests := []struct {
		token string
		want  int
	}{
		{"tok", http.StatusOK},
		{"spent", http.StatusTooManyRequests},
		{"unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run("chat "+tt.token, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.echo.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/demo/chat", fmt.Sprintf(`{"token":%q,"message":"hi"}`, tt.token)))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
