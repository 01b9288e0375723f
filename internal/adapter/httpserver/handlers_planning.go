package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/app"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

type createGoalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TargetDate  string `json:"target_date"`
}

type updateGoalRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Status      *domain.GoalStatus `json:"status"`
	Progress    *int               `json:"progress"`
}

type scheduleSessionRequest struct {
	ScheduledAt     string `json:"scheduled_at"`
	DurationMinutes int    `json:"duration_minutes"`
	Topic           string `json:"topic"`
}

type updateSessionRequest struct {
	Status *domain.SessionStatus `json:"status"`
	Notes  *string               `json:"notes"`
}

type feedbackRequest struct {
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment"`
	SessionID *uuid.UUID `json:"session_id"`
}

func (s *Server) handleListGoals(c echo.Context) error {
	goals, err := s.svc.Goals.List(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]any{"goals": mapSlice(goals, newGoalResponse)})
}

func (s *Server) handleCreateGoal(c echo.Context) error {
	var req createGoalRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	goal, err := s.svc.Goals.Create(c.Request().Context(), currentUserID(c), app.NewGoal{
		Title:       req.Title,
		Description: req.Description,
		TargetDate:  req.TargetDate,
	})
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusCreated, newGoalResponse(goal))
}

func (s *Server) handleUpdateGoal(c echo.Context) error {
	goalID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateGoalRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	goal, err := s.svc.Goals.Update(c.Request().Context(), currentUserID(c), goalID, app.GoalPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Progress:    req.Progress,
	})
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newGoalResponse(goal))
}

func (s *Server) handleListSessions(c echo.Context) error {
	sessions, err := s.svc.Sessions.List(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]any{"sessions": mapSlice(sessions, newSessionResponse)})
}

func (s *Server) handleScheduleSession(c echo.Context) error {
	var req scheduleSessionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	session, err := s.svc.Sessions.Schedule(c.Request().Context(), currentUserID(c), app.NewSession{
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Topic:           req.Topic,
	})
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusCreated, newSessionResponse(session))
}

func (s *Server) handleUpdateSession(c echo.Context) error {
	sessionID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateSessionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	session, err := s.svc.Sessions.Update(c.Request().Context(), currentUserID(c), sessionID, app.SessionPatch{
		Status: req.Status,
		Notes:  req.Notes,
	})
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newSessionResponse(session))
}

func (s *Server) handleSubmitFeedback(c echo.Context) error {
	var req feedbackRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	fb, err := s.svc.Feedback.Submit(c.Request().Context(), currentUserID(c), req.Rating, req.Comment, req.SessionID)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusCreated, newFeedbackResponse(fb))
}
