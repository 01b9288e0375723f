package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

type createConversationRequest struct {
	Title string                  `json:"title"`
	Mode  domain.ConversationMode `json:"mode"`
}

type appendMessageRequest struct {
	Role    domain.MessageRole `json:"role"`
	Content string             `json:"content"`
}

type chatRequest struct {
	ConversationID *uuid.UUID `json:"conversation_id"`
	Message        string     `json:"message"`
}

type chatResponse struct {
	ConversationID uuid.UUID       `json:"conversation_id"`
	Message        messageResponse `json:"message"`
}

// pathID parses a UUID route parameter.
func pathID(c echo.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid "+name).WithField(name, raw)
	}
	return id, nil
}

func (s *Server) handleListConversations(c echo.Context) error {
	conversations, err := s.svc.Coaching.ListConversations(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]any{
		"conversations": mapSlice(conversations, newConversationResponse),
	})
}

func (s *Server) handleCreateConversation(c echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	conv, err := s.svc.Coaching.CreateConversation(c.Request().Context(), currentUserID(c), req.Title, req.Mode)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusCreated, newConversationResponse(conv))
}

func (s *Server) handleListMessages(c echo.Context) error {
	conversationID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	msgs, err := s.svc.Coaching.Messages(c.Request().Context(), currentUserID(c), conversationID)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]any{
		"messages": mapSlice(msgs, newMessageResponse),
	})
}

func (s *Server) handleAppendMessage(c echo.Context) error {
	conversationID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req appendMessageRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	msg, err := s.svc.Coaching.AppendMessage(c.Request().Context(), currentUserID(c), conversationID, req.Role, req.Content)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusCreated, newMessageResponse(msg))
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	result, err := s.svc.Coaching.Chat(c.Request().Context(), currentUserID(c), req.ConversationID, req.Message)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, chatResponse{
		ConversationID: result.ConversationID,
		Message:        newMessageResponse(result.Reply),
	})
}
