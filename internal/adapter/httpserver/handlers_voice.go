package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/app"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

// multipartOverhead leaves room for boundaries and headers around the audio part.
const multipartOverhead = 1 << 20

type speechRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleTranscribe(c echo.Context) error {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, app.MaxAudioBytes+multipartOverhead)

	fh, err := c.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.ValidationError("audio must be at most 25 MiB").WithField("field", "audio")
		}
		return apperrors.ValidationError("audio file is required").WithField("field", "audio")
	}
	if fh.Size > app.MaxAudioBytes {
		return apperrors.ValidationError("audio must be at most 25 MiB").WithField("field", "audio")
	}

	f, err := fh.Open()
	if err != nil {
		return apperrors.InternalError("failed to read upload", err)
	}
	defer f.Close()

	text, err := s.svc.Voice.Transcribe(req.Context(), fh.Filename, f)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleSpeech(c echo.Context) error {
	var req speechRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	audio, err := s.svc.Voice.Speak(c.Request().Context(), req.Text)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	if err := c.Blob(http.StatusOK, "audio/mpeg", audio); err != nil {
		return fmt.Errorf("failed to send audio response: %w", err)
	}
	return nil
}

func (s *Server) handleRealtimeSession(c echo.Context) error {
	session, err := s.svc.Voice.RealtimeSession(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return writeJSON(c, http.StatusOK, session)
}

func (s *Server) handleGeminiSession(c echo.Context) error {
	session, err := s.svc.Voice.GeminiSession(c.Request().Context())
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return writeJSON(c, http.StatusOK, session)
}

// handleVoiceRelay upgrades to a websocket and proxies frames to the realtime
// provider with the caller's coaching instructions.
func (s *Server) handleVoiceRelay(c echo.Context) error {
	if s.relay == nil {
		return domain.ErrProviderDisabled
	}
	ctx := c.Request().Context()
	instructions := s.svc.Voice.Instructions(ctx, currentUserID(c))
	if err := s.relay.Serve(ctx, c.Response(), c.Request(), instructions); err != nil {
		return apperrors.ExternalError("voice relay unavailable", err)
	}
	return nil
}
