package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

type demoChatRequest struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// registerDemoRoutes exposes the anonymous try-it chat. Sessions live in
// memory only and are bounded per IP by the rate limiter.
func (s *Server) registerDemoRoutes(rateLimiter echo.MiddlewareFunc) {
	s.echo.POST("/api/demo/session", s.handleDemoSession, rateLimiter)
	s.echo.POST("/api/demo/chat", s.handleDemoChat, rateLimiter)
}

func (s *Server) handleDemoSession(c echo.Context) error {
	session, err := s.svc.Demo.Start(c.Request().Context())
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusCreated, session)
}

func (s *Server) handleDemoChat(c echo.Context) error {
	var req demoChatRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Token == "" {
		return apperrors.ValidationError("token is required").WithField("field", "token")
	}

	reply, err := s.svc.Demo.Chat(c.Request().Context(), req.Token, req.Message)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, reply)
}
