package httpserver

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

// Echo context keys set by the auth middleware.
const (
	ctxKeyUserID  = "userID"
	ctxKeyProfile = "profile"
)

// sessionUserID reads the user ID from the cookie session.
func (s *Server) sessionUserID(c echo.Context) (uuid.UUID, bool) {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return uuid.Nil, false
	}
	raw, ok := session.Values[sessionKeyUserID].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func bearerToken(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(h, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// authenticate resolves the caller from the session cookie, falling back to
// a bearer token issued by the hosted auth service.
func (s *Server) authenticate(c echo.Context) (uuid.UUID, error) {
	if id, ok := s.sessionUserID(c); ok {
		return id, nil
	}
	token, ok := bearerToken(c)
	if !ok || s.tokens == nil {
		return uuid.Nil, apperrors.UnauthorizedError("authentication required")
	}
	id, err := s.tokens.Verify(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			return uuid.Nil, apperrors.UnauthorizedError("invalid access token")
		}
		return uuid.Nil, apperrors.ExternalError("failed to verify access token", err)
	}
	return id, nil
}

// requireAPIAuth rejects unauthenticated API calls with 401. The user must
// still have a profile row.
func (s *Server) requireAPIAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := s.authenticate(c)
		if err != nil {
			return err
		}
		if _, err := s.svc.Access.Entitlement(c.Request().Context(), userID); err != nil {
			if errors.Is(err, domain.ErrProfileNotFound) {
				return apperrors.UnauthorizedError("unknown user")
			}
			return err
		}
		c.Set(ctxKeyUserID, userID)
		return next(c)
	}
}

// requirePageAuth redirects anonymous visitors to the login page and loads
// the caller's profile for the templates.
func (s *Server) requirePageAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := s.sessionUserID(c)
		if !ok {
			return c.Redirect(http.StatusFound, "/auth/login")
		}

		profile, err := s.svc.Profiles.Get(c.Request().Context(), userID)
		if errors.Is(err, domain.ErrProfileNotFound) {
			slog.WarnContext(c.Request().Context(), "Session references unknown user, invalidating", "user_id", userID)
			s.clearSession(c)
			return c.Redirect(http.StatusFound, "/auth/login")
		}
		if err != nil {
			return err
		}

		c.Set(ctxKeyUserID, userID)
		c.Set(ctxKeyProfile, profile)
		return next(c)
	}
}

// requireOnboarded sends users who skipped onboarding back to it. Must run
// after requirePageAuth.
func (s *Server) requireOnboarded(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		profile, ok := c.Get(ctxKeyProfile).(*domain.Profile)
		if !ok || !profile.OnboardingCompleted {
			return c.Redirect(http.StatusFound, "/onboarding")
		}
		return next(c)
	}
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ok, err := s.svc.Access.IsAdmin(c.Request().Context(), currentUserID(c))
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.ForbiddenError("admin access required")
		}
		return next(c)
	}
}

func (s *Server) requireAdminPage(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		profile, ok := c.Get(ctxKeyProfile).(*domain.Profile)
		if !ok || profile.Role != domain.RoleAdmin {
			return c.Redirect(http.StatusFound, "/dashboard")
		}
		return next(c)
	}
}

func (s *Server) requireFeature(feature domain.Feature) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, err := s.svc.Access.HasFeature(c.Request().Context(), currentUserID(c), feature)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.ForbiddenError("this feature requires the Pro plan").WithField("feature", string(feature))
			}
			return next(c)
		}
	}
}

// requireCronSecret guards scheduler callbacks with a shared bearer secret.
func (s *Server) requireCronSecret(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		secret := s.config.CronSecret
		if !ok || secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return apperrors.UnauthorizedError("invalid cron secret")
		}
		return next(c)
	}
}

func currentUserID(c echo.Context) uuid.UUID {
	id, _ := c.Get(ctxKeyUserID).(uuid.UUID)
	return id
}

func (s *Server) clearSession(c echo.Context) {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return
	}
	session.Options.MaxAge = -1
	_ = session.Save(c.Request(), c.Response().Writer)
}
