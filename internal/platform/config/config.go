package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	BaseURL   string `env:"BASE_URL" default:"http://localhost:8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days

	// Hosted backend (auth + REST RPC)
	BaaSURL        string `env:"BAAS_URL"`
	BaaSAnonKey    string `env:"BAAS_ANON_KEY"`
	BaaSServiceKey string `env:"BAAS_SERVICE_KEY"`
	BaaSJWTSecret  string `env:"BAAS_JWT_SECRET"`
	RAGMatchCount  int    `env:"RAG_MATCH_COUNT" default:"4"`

	OpenAIAPIKey          string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL         string `env:"OPENAI_BASE_URL" default:"https://api.openai.com"`
	OpenAIChatModel       string `env:"OPENAI_CHAT_MODEL" default:"gpt-4o-mini"`
	OpenAISummaryModel    string `env:"OPENAI_SUMMARY_MODEL" default:"gpt-4o-mini"`
	OpenAIEmbeddingModel  string `env:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	OpenAITranscribeModel string `env:"OPENAI_TRANSCRIBE_MODEL" default:"whisper-1"`
	OpenAISpeechModel     string `env:"OPENAI_SPEECH_MODEL" default:"tts-1"`
	OpenAISpeechVoice     string `env:"OPENAI_SPEECH_VOICE" default:"alloy"`
	OpenAIRealtimeModel   string `env:"OPENAI_REALTIME_MODEL" default:"gpt-4o-realtime-preview"`

	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	GeminiLiveModel string `env:"GEMINI_LIVE_MODEL" default:"gemini-2.0-flash-live-001"`

	RevolutSecretKey     string        `env:"REVOLUT_SECRET_KEY"`
	RevolutWebhookSecret string        `env:"REVOLUT_WEBHOOK_SECRET"`
	RevolutSandbox       bool          `env:"REVOLUT_SANDBOX" default:"true"`
	ProPriceMinor        int64         `env:"PRO_PRICE_MINOR" default:"2900"`
	ProCurrency          string        `env:"PRO_CURRENCY" default:"EUR"`
	ProPeriod            time.Duration `env:"PRO_PERIOD" default:"720h"` // 30 days

	MailAPIKey string `env:"MAIL_API_KEY"`
	MailFrom   string `env:"MAIL_FROM" default:"Coachpulse <coach@coachpulse.app>"`

	CronSecret        string `env:"CRON_SECRET"`
	WorkerEnabled     bool   `env:"WORKER_ENABLED" default:"true"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" default:"4"`

	DemoSessionTTL   time.Duration `env:"DEMO_SESSION_TTL" default:"30m"`
	DemoMessageLimit int           `env:"DEMO_MESSAGE_LIMIT" default:"10"`

	EntitlementCacheTTL time.Duration `env:"ENTITLEMENT_CACHE_TTL" default:"30s"`
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// BillingEnabled reports whether the payment provider is configured.
func (c *Config) BillingEnabled() bool {
	return c.RevolutSecretKey != ""
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL":   cfg.DatabaseURL,
		"REDIS_URL":      cfg.RedisURL,
		"SESSION_SECRET": cfg.SessionSecret,
		"BAAS_URL":       cfg.BaaSURL,
		"BAAS_ANON_KEY":  cfg.BaaSAnonKey,
		"OPENAI_API_KEY": cfg.OpenAIAPIKey,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if len(cfg.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 characters")
	}

	if _, err := url.ParseRequestURI(cfg.BaaSURL); err != nil {
		return fmt.Errorf("BAAS_URL must be a valid URL: %w", err)
	}

	if cfg.RevolutSecretKey != "" && cfg.RevolutWebhookSecret == "" {
		return errors.New("REVOLUT_WEBHOOK_SECRET is required when REVOLUT_SECRET_KEY is set")
	}

	if cfg.ProPriceMinor <= 0 {
		return errors.New("PRO_PRICE_MINOR must be positive")
	}
	if len(cfg.ProCurrency) != 3 {
		return fmt.Errorf("PRO_CURRENCY must be a 3-letter ISO code, got %q", cfg.ProCurrency)
	}

	if cfg.DemoMessageLimit < 1 {
		return errors.New("DEMO_MESSAGE_LIMIT must be at least 1")
	}
	if cfg.WorkerConcurrency < 1 {
		return errors.New("WORKER_CONCURRENCY must be at least 1")
	}

	return nil
}
