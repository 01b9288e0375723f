package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csrfTokenCookieName = "csrf_token"

func onboardingServices() Services {
	svc := newTestServices()
	svc.Profiles = &mockProfiles{
		getFn: func(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
			return &domain.Profile{ID: id}, nil
		},
		completeOnboardingFn: func(_ context.Context, id uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
			return &domain.Profile{ID: id, FullName: upd.FullName, OnboardingCompleted: true}, nil
		},
	}
	return svc
}

func TestCSRFProtection_FormPost(t *testing.T) {
	userID := uuid.New()
	srv := newTestServer(t, onboardingServices())

	form := url.Values{"full_name": {"Ada"}, "timezone": {"UTC"}}

	t.Run("rejects POST without CSRF token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/onboarding", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		setSessionUserID(t, srv, req, userID)
		rec := httptest.NewRecorder()

		srv.echo.ServeHTTP(rec, req)

		// Echo's CSRF middleware returns 400, not 403
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects POST with mismatched token", func(t *testing.T) {
		f := url.Values{"full_name": {"Ada"}, "timezone": {"UTC"}, "csrf_token": {"forged"}}
		req := httptest.NewRequest(http.MethodPost, "/onboarding", strings.NewReader(f.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		req.AddCookie(&http.Cookie{Name: csrfTokenCookieName, Value: "real-token"})
		setSessionUserID(t, srv, req, userID)
		rec := httptest.NewRecorder()

		srv.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("accepts POST with token issued by GET", func(t *testing.T) {
		getReq := httptest.NewRequest(http.MethodGet, "/onboarding", nil)
		setSessionUserID(t, srv, getReq, userID)
		getRec := httptest.NewRecorder()
		srv.echo.ServeHTTP(getRec, getReq)
		require.Equal(t, http.StatusOK, getRec.Code)

		var token string
		for _, ck := range getRec.Result().Cookies() {
			if ck.Name == csrfTokenCookieName {
				token = ck.Value
			}
		}
		require.NotEmpty(t, token)

		f := url.Values{"full_name": {"Ada"}, "timezone": {"UTC"}, "csrf_token": {token}}
		req := httptest.NewRequest(http.MethodPost, "/onboarding", strings.NewReader(f.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		req.AddCookie(&http.Cookie{Name: csrfTokenCookieName, Value: token})
		setSessionUserID(t, srv, req, userID)
		rec := httptest.NewRecorder()

		srv.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	})
}

func TestCSRFSkipper(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name    string
		headers map[string]string
		skip    bool
	}{
		{"form post", map[string]string{echo.HeaderContentType: echo.MIMEApplicationForm}, false},
		{"multipart upload", map[string]string{echo.HeaderContentType: "multipart/form-data; boundary=x"}, false},
		{"json body", map[string]string{echo.HeaderContentType: "application/json; charset=utf-8"}, true},
		{"bearer token", map[string]string{echo.HeaderAuthorization: "Bearer abc"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/voice/transcribe", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.skip, skipCSRF(e.NewContext(req, httptest.NewRecorder())))
		})
	}
}

func TestAPIAuthRunsBeforeCSRF(t *testing.T) {
	srv := newTestServer(t, newTestServices())

	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
	}{
		{"empty body", "/api/billing/checkout", "", ""},
		{"form body", "/api/goals", echo.MIMEApplicationForm, "title=Ship"},
		{"plain text", "/api/feedback", echo.MIMETextPlain, "great"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set(echo.HeaderContentType, tt.contentType)
			}
			rec := httptest.NewRecorder()

			srv.echo.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var resp apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, apperrors.TypeUnauthorized, resp.Type)
		})
	}

	t.Run("session form post still needs a token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/goals", strings.NewReader("title=Ship"))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		setSessionUserID(t, srv, req, uuid.New())
		rec := httptest.NewRecorder()

		srv.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
