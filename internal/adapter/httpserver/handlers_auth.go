package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/app"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

func (s *Server) registerAuthRoutes(csrf, rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/auth/login", s.handleLoginPage, csrf)
	s.echo.POST("/auth/login", s.handleLogin, rateLimiter, csrf)
	s.echo.GET("/auth/signup", s.handleSignupPage, csrf)
	s.echo.POST("/auth/signup", s.handleSignup, rateLimiter, csrf)
	s.echo.POST("/auth/logout", s.handleLogout, csrf)
}

type credentialsRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	FullName string `json:"full_name" form:"full_name"`
}

func (s *Server) handleLoginPage(c echo.Context) error {
	if _, ok := s.sessionUserID(c); ok {
		return c.Redirect(http.StatusFound, "/dashboard")
	}
	return s.renderTemplate(c, "login.html", s.pageData(c, nil))
}

func (s *Server) handleSignupPage(c echo.Context) error {
	if _, ok := s.sessionUserID(c); ok {
		return c.Redirect(http.StatusFound, "/dashboard")
	}
	return s.renderTemplate(c, "signup.html", s.pageData(c, nil))
}

func (s *Server) handleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	profile, err := s.svc.Auth.Login(c.Request().Context(), app.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		return s.authFailure(c, "login.html", req, err)
	}
	if err := s.startSession(c, profile.ID); err != nil {
		return err
	}

	slog.InfoContext(c.Request().Context(), "User logged in", "user_id", profile.ID)

	if wantsJSON(c) {
		return writeJSON(c, http.StatusOK, map[string]any{"user": newProfileResponse(profile)})
	}
	target := "/dashboard"
	if !profile.OnboardingCompleted {
		target = "/onboarding"
	}
	return c.Redirect(http.StatusFound, target)
}

func (s *Server) handleSignup(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	profile, err := s.svc.Auth.SignUp(c.Request().Context(), app.Credentials{Email: req.Email, Password: req.Password, FullName: req.FullName})
	if err != nil {
		return s.authFailure(c, "signup.html", req, err)
	}
	if err := s.startSession(c, profile.ID); err != nil {
		return err
	}

	slog.InfoContext(c.Request().Context(), "User signed up", "user_id", profile.ID)

	if wantsJSON(c) {
		return writeJSON(c, http.StatusCreated, map[string]any{"user": newProfileResponse(profile)})
	}
	return c.Redirect(http.StatusFound, "/onboarding")
}

// authFailure re-renders the form with the error for browser posts and
// returns the structured error for API clients.
func (s *Server) authFailure(c echo.Context, page string, req credentialsRequest, err error) error {
	if wantsJSON(c) {
		return err
	}
	appErr := toAppError(err)
	if appErr.Type == apperrors.TypeInternal || appErr.Type == apperrors.TypeExternal {
		return err
	}
	data := s.pageData(c, map[string]any{
		"Error":    appErr.Message,
		"Email":    req.Email,
		"FullName": req.FullName,
	})
	return s.renderTemplateStatus(c, appErr.HTTPStatus(), page, data)
}

// startSession replaces any pre-login session with a fresh one.
func (s *Server) startSession(c echo.Context, userID uuid.UUID) error {
	s.clearSession(c)

	session, err := s.sessionStore.New(c.Request(), sessionName)
	if err != nil && session == nil {
		return apperrors.InternalError("failed to create session", err)
	}
	session.Values[sessionKeyUserID] = userID.String()
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}
	return nil
}

func (s *Server) handleLogout(c echo.Context) error {
	userID, _ := s.sessionUserID(c)
	s.clearSession(c)
	slog.InfoContext(c.Request().Context(), "User logged out", "user_id", userID)

	if wantsJSON(c) {
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusFound, "/auth/login")
}

func wantsJSON(c echo.Context) bool {
	req := c.Request()
	return strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) ||
		strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func writeJSON(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
