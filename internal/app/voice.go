package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
	"github.com/pscheid92/coachpulse/internal/prompts"
)

const (
	MaxAudioBytes   = 25 << 20 // 25 MiB, the transcription upload limit
	maxSpeechLength = 4096
)

type VoiceDeps struct {
	Transcriber domain.Transcriber
	Synthesizer domain.SpeechSynthesizer
	Realtime    domain.RealtimeSessionIssuer
	Live        domain.LiveTokenIssuer
	Profiles    domain.ProfileRepository
	Prompts     *prompts.Catalog
}

// VoiceService proxies speech-to-text, text-to-speech and ephemeral voice
// credentials. Plan gating happens at the route.
type VoiceService struct {
	deps VoiceDeps
}

func NewVoiceService(deps VoiceDeps) *VoiceService {
	return &VoiceService{deps: deps}
}

func (s *VoiceService) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	text, err := s.deps.Transcriber.Transcribe(ctx, filename, audio)
	if err != nil {
		return "", apperrors.ExternalError("transcription failed", err)
	}
	return text, nil
}

func (s *VoiceService) Speak(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ValidationError("text is required").WithField("field", "text")
	}
	if utf8.RuneCountInString(text) > maxSpeechLength {
		return nil, apperrors.ValidationError("text must be at most 4096 characters").WithField("field", "text")
	}

	audio, err := s.deps.Synthesizer.Synthesize(ctx, text)
	if err != nil {
		return nil, apperrors.ExternalError("speech synthesis failed", err)
	}
	return audio, nil
}

// Instructions personalizes the realtime coaching persona for a user.
func (s *VoiceService) Instructions(ctx context.Context, userID uuid.UUID) string {
	base := strings.TrimSpace(s.deps.Prompts.Realtime.Instructions)
	if s.deps.Profiles == nil {
		return base
	}

	profile, err := s.deps.Profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			slog.WarnContext(ctx, "Failed to load profile for voice instructions", "user_id", userID, "error", err)
		}
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	if profile.FullName != "" {
		fmt.Fprintf(&b, "\nThe client's name is %s.", profile.FullName)
	}
	if profile.CoachingFocus != "" {
		fmt.Fprintf(&b, "\nTheir coaching focus: %s", profile.CoachingFocus)
	}
	return b.String()
}

func (s *VoiceService) RealtimeSession(ctx context.Context, userID uuid.UUID) (*domain.EphemeralSession, error) {
	if s.deps.Realtime == nil {
		return nil, domain.ErrProviderDisabled
	}
	session, err := s.deps.Realtime.CreateRealtimeSession(ctx, s.Instructions(ctx, userID))
	if err != nil {
		return nil, apperrors.ExternalError("failed to create realtime session", err)
	}
	return session, nil
}

func (s *VoiceService) GeminiSession(ctx context.Context) (*domain.EphemeralSession, error) {
	if s.deps.Live == nil {
		return nil, domain.ErrProviderDisabled
	}
	session, err := s.deps.Live.CreateLiveToken(ctx)
	if err != nil {
		return nil, apperrors.ExternalError("failed to create gemini session", err)
	}
	return session, nil
}
