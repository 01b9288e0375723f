package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
	"github.com/pscheid92/coachpulse/internal/prompts"
)

const (
	maxMessageLength     = 4000
	maxTitleLength       = 60
	historyLimit         = 20
	conversationsLimit   = 50
	defaultConversation  = "New conversation"
	defaultRAGMatchCount = 4
)

// FeatureChecker is the slice of Access the coaching services need.
type FeatureChecker interface {
	HasFeature(ctx context.Context, userID uuid.UUID, feature domain.Feature) (bool, error)
}

type CoachingDeps struct {
	Conversations domain.ConversationRepository
	Messages      domain.MessageRepository
	Profiles      domain.ProfileRepository
	Business      domain.BusinessProfileRepository
	Goals         domain.GoalRepository
	Completer     domain.ChatCompleter
	Embedder      domain.Embedder
	Knowledge     domain.KnowledgeBase
	Features      FeatureChecker
	Prompts       *prompts.Catalog
	ChatModel     string
	RAGMatchCount int
}

// CoachingService runs the text coaching conversation.
type CoachingService struct {
	deps CoachingDeps
}

func NewCoachingService(deps CoachingDeps) *CoachingService {
	if deps.RAGMatchCount <= 0 {
		deps.RAGMatchCount = defaultRAGMatchCount
	}
	return &CoachingService{deps: deps}
}

func (s *CoachingService) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	return s.deps.Conversations.ListByUser(ctx, userID, conversationsLimit)
}

func (s *CoachingService) CreateConversation(ctx context.Context, userID uuid.UUID, title string, mode domain.ConversationMode) (*domain.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultConversation
	}
	title = truncateRunes(title, maxTitleLength)

	switch mode {
	case "":
		mode = domain.ModeChat
	case domain.ModeChat, domain.ModeVoice:
	default:
		return nil, apperrors.ValidationError("mode must be chat or voice").WithField("mode", string(mode))
	}

	return s.deps.Conversations.Create(ctx, userID, title, mode)
}

// Messages returns the full transcript of a conversation the user owns.
func (s *CoachingService) Messages(ctx context.Context, userID, conversationID uuid.UUID) ([]domain.Message, error) {
	if _, err := s.deps.Conversations.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.deps.Messages.ListByConversation(ctx, conversationID)
}

// AppendMessage stores a transcript turn produced outside the chat endpoint,
// e.g. by a realtime voice session.
func (s *CoachingService) AppendMessage(ctx context.Context, userID, conversationID uuid.UUID, role domain.MessageRole, content string) (*domain.Message, error) {
	if role != domain.RoleUserMessage && role != domain.RoleAssistantMessage {
		return nil, apperrors.ValidationError("role must be user or assistant").WithField("role", string(role))
	}
	content, err := validateMessage(content)
	if err != nil {
		return nil, err
	}
	if _, err := s.deps.Conversations.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	msg, err := s.deps.Messages.Create(ctx, conversationID, userID, role, content)
	if err != nil {
		return nil, err
	}
	s.touch(ctx, conversationID)
	return msg, nil
}

type ChatResult struct {
	ConversationID uuid.UUID
	UserMessage    *domain.Message
	Reply          *domain.Message
}

// Chat sends one user message and returns the coach's reply. A nil
// conversationID starts a new conversation titled after the message.
func (s *CoachingService) Chat(ctx context.Context, userID uuid.UUID, conversationID *uuid.UUID, message string) (*ChatResult, error) {
	message, err := validateMessage(message)
	if err != nil {
		return nil, err
	}

	var conv *domain.Conversation
	if conversationID != nil {
		conv, err = s.deps.Conversations.Get(ctx, userID, *conversationID)
	} else {
		conv, err = s.deps.Conversations.Create(ctx, userID, truncateRunes(message, maxTitleLength), domain.ModeChat)
	}
	if err != nil {
		return nil, err
	}

	history, err := s.deps.Messages.ListRecent(ctx, conv.ID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	system, err := s.systemPrompt(ctx, userID, message)
	if err != nil {
		return nil, err
	}

	msgs := make([]domain.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, domain.ChatMessage{Role: "system", Content: system})
	for _, m := range history {
		msgs = append(msgs, domain.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, domain.ChatMessage{Role: string(domain.RoleUserMessage), Content: message})

	reply, err := s.deps.Completer.Complete(ctx, domain.ChatRequest{
		Model:       s.deps.ChatModel,
		Messages:    msgs,
		Temperature: s.deps.Prompts.Coach.Temperature,
		MaxTokens:   s.deps.Prompts.Coach.MaxTokens,
	})
	if err != nil {
		return nil, apperrors.ExternalError("coach is unavailable, please try again", err)
	}

	userMsg, err := s.deps.Messages.Create(ctx, conv.ID, userID, domain.RoleUserMessage, message)
	if err != nil {
		return nil, err
	}
	assistantMsg, err := s.deps.Messages.Create(ctx, conv.ID, userID, domain.RoleAssistantMessage, reply)
	if err != nil {
		return nil, err
	}
	s.touch(ctx, conv.ID)

	return &ChatResult{ConversationID: conv.ID, UserMessage: userMsg, Reply: assistantMsg}, nil
}

func (s *CoachingService) touch(ctx context.Context, conversationID uuid.UUID) {
	if err := s.deps.Conversations.Touch(ctx, conversationID); err != nil {
		slog.WarnContext(ctx, "Failed to touch conversation", "conversation_id", conversationID, "error", err)
	}
}

// systemPrompt combines the coach persona with what we know about the user
// and any retrieved coaching material.
func (s *CoachingService) systemPrompt(ctx context.Context, userID uuid.UUID, message string) (string, error) {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(s.deps.Prompts.Coach.System))

	profile, err := s.deps.Profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return "", fmt.Errorf("failed to load profile: %w", err)
	}
	if profile != nil {
		if profile.FullName != "" {
			fmt.Fprintf(&b, "\n\nThe client's name is %s.", profile.FullName)
		}
		if profile.CoachingFocus != "" {
			fmt.Fprintf(&b, "\nTheir coaching focus: %s", profile.CoachingFocus)
		}
	}

	if bp := s.businessContext(ctx, userID); bp != nil {
		fmt.Fprintf(&b, "\n\nBusiness context: %s", bp.CompanyName)
		if bp.Industry != "" {
			fmt.Fprintf(&b, " (%s)", bp.Industry)
		}
		if bp.TeamSize > 0 {
			fmt.Fprintf(&b, ", team of %d", bp.TeamSize)
		}
		if bp.Challenges != "" {
			fmt.Fprintf(&b, ". Current challenges: %s", bp.Challenges)
		}
	}

	goals, err := s.deps.Goals.ListActive(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load goals: %w", err)
	}
	if len(goals) > 0 {
		b.WriteString("\n\nActive goals:")
		for _, g := range goals {
			fmt.Fprintf(&b, "\n- %s (%d%% done", g.Title, g.Progress)
			if g.TargetDate != nil {
				fmt.Fprintf(&b, ", target %s", g.TargetDate.Format("2006-01-02"))
			}
			b.WriteString(")")
		}
	}

	if chunks := s.retrieve(ctx, message); len(chunks) > 0 {
		b.WriteString("\n\nRelevant coaching material:")
		for _, c := range chunks {
			b.WriteString("\n---\n")
			b.WriteString(c.Content)
		}
	}

	return b.String(), nil
}

func (s *CoachingService) businessContext(ctx context.Context, userID uuid.UUID) *domain.BusinessProfile {
	if s.deps.Business == nil || s.deps.Features == nil {
		return nil
	}
	ok, err := s.deps.Features.HasFeature(ctx, userID, domain.FeatureBusinessInsights)
	if err != nil || !ok {
		return nil
	}
	bp, err := s.deps.Business.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrBusinessProfileNotFound) {
			slog.WarnContext(ctx, "Failed to load business profile", "user_id", userID, "error", err)
		}
		return nil
	}
	return bp
}

// retrieve fetches RAG context. Failures degrade to no context.
func (s *CoachingService) retrieve(ctx context.Context, query string) []domain.KnowledgeChunk {
	if s.deps.Embedder == nil || s.deps.Knowledge == nil {
		return nil
	}
	emb, err := s.deps.Embedder.Embed(ctx, query)
	if err != nil {
		slog.WarnContext(ctx, "RAG embedding failed, continuing without context", "error", err)
		return nil
	}
	chunks, err := s.deps.Knowledge.Search(ctx, emb, s.deps.RAGMatchCount)
	if err != nil {
		slog.WarnContext(ctx, "RAG search failed, continuing without context", "error", err)
		return nil
	}
	return chunks
}

func validateMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apperrors.ValidationError("message is required").WithField("field", "message")
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return "", apperrors.ValidationError("message must be at most 4000 characters").WithField("field", "message")
	}
	return message, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
