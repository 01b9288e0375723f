package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

type setRoleRequest struct {
	Role domain.Role `json:"role"`
}

type runSummariesRequest struct {
	Period string     `json:"period"`
	UserID *uuid.UUID `json:"user_id"`
}

type userPageResponse struct {
	Users  []profileResponse `json:"users"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

func (s *Server) handleAdminStats(c echo.Context) error {
	stats, err := s.svc.Admin.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, stats)
}

func (s *Server) handleAdminUsers(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return err
	}

	page, err := s.svc.Admin.Users(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, userPageResponse{
		Users:  mapSlice(page.Users, newProfileResponse),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (s *Server) handleAdminSetRole(c echo.Context) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req setRoleRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	actorID := currentUserID(c)
	profile, err := s.svc.Admin.SetRole(c.Request().Context(), actorID, userID, req.Role)
	if err != nil {
		return err
	}
	slog.InfoContext(c.Request().Context(), "User role changed", "actor_id", actorID, "user_id", userID, "role", req.Role)
	return writeJSON(c, http.StatusOK, newProfileResponse(profile))
}

func (s *Server) handleAdminFeedback(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	feedback, err := s.svc.Admin.Feedback(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]any{"feedback": mapSlice(feedback, newFeedbackResponse)})
}

func (s *Server) handleAdminRunSummaries(c echo.Context) error {
	var req runSummariesRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	period, err := parsePeriod(req.Period)
	if err != nil {
		return err
	}

	if err := s.svc.Summaries.Trigger(c.Request().Context(), period, req.UserID); err != nil {
		return err
	}
	slog.InfoContext(c.Request().Context(), "Summary generation triggered by admin",
		"actor_id", currentUserID(c), "period", period, "user_id", req.UserID)
	return writeJSON(c, http.StatusAccepted, map[string]string{"status": "enqueued", "period": string(period)})
}
