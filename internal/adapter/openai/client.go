// Package openai talks to the OpenAI REST API: chat completions, embeddings,
// transcription, speech synthesis and realtime voice sessions.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pscheid92/coachpulse/internal/adapter/provider"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/pscheid92/coachpulse/internal/platform/retry"
	"github.com/tidwall/gjson"
)

const providerName = "openai"

type Config struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	EmbeddingModel  string
	TranscribeModel string
	SpeechModel     string
	SpeechVoice     string
	RealtimeModel   string
}

type Client struct {
	http  *provider.Client
	cfg   Config
	retry retry.Policy
}

var (
	_ domain.ChatCompleter         = (*Client)(nil)
	_ domain.Embedder              = (*Client)(nil)
	_ domain.Transcriber           = (*Client)(nil)
	_ domain.SpeechSynthesizer     = (*Client)(nil)
	_ domain.RealtimeSessionIssuer = (*Client)(nil)
)

func NewClient(cfg Config, opts ...provider.Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	opts = append([]provider.Option{provider.WithBearer(cfg.APIKey), provider.WithTimeout(60 * time.Second)}, opts...)
	return &Client{
		http:  provider.New(providerName, cfg.BaseURL, opts...),
		cfg:   cfg,
		retry: retry.DefaultPolicy,
	}
}

type chatCompletionRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete returns the first choice of a chat completion.
func (c *Client) Complete(ctx context.Context, req domain.ChatRequest) (string, error) {
	body := chatCompletionRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
	}
	if body.Model == "" {
		body.Model = c.cfg.ChatModel
	}
	if req.Temperature > 0 {
		body.Temperature = &req.Temperature
	}

	var resp chatCompletionResponse
	if err := c.http.JSON(ctx, "chat", http.MethodPost, "/v1/chat/completions", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat: no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text. Retried on transient failures.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	return retry.Do(ctx, c.retry, retry.ClassifyHTTP, func(ctx context.Context) ([]float32, error) {
		var resp embeddingResponse
		req := embeddingRequest{Model: c.cfg.EmbeddingModel, Input: text}
		if err := c.http.JSON(ctx, "embed", http.MethodPost, "/v1/embeddings", req, &resp); err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, &retry.PermanentError{Err: errors.New("openai embed: empty data")}
		}
		return resp.Data[0].Embedding, nil
	})
}

// Transcribe uploads audio as multipart form data and returns the text.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if filename == "" {
		filename = "audio.webm"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("model", c.cfg.TranscribeModel); err != nil {
		return "", fmt.Errorf("openai transcribe: failed to write model field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("openai transcribe: failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("openai transcribe: failed to copy audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("openai transcribe: failed to close form: %w", err)
	}

	req, err := c.http.NewRequest(ctx, http.MethodPost, "/v1/audio/transcriptions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, _, err := c.http.Do("transcribe", req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(gjson.GetBytes(body, "text").String()), nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize returns mp3 audio for text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := jsonBody(speechRequest{
		Model:          c.cfg.SpeechModel,
		Input:          text,
		Voice:          c.cfg.SpeechVoice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, err
	}

	req, err := c.http.NewRequest(ctx, http.MethodPost, "/v1/audio/speech", payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	audio, _, err := c.http.Do("speech", req)
	if err != nil {
		return nil, err
	}
	return audio, nil
}
