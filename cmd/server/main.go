package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coachpulse/internal/adapter/baas"
	"github.com/pscheid92/coachpulse/internal/adapter/gemini"
	"github.com/pscheid92/coachpulse/internal/adapter/httpserver"
	"github.com/pscheid92/coachpulse/internal/adapter/mailer"
	"github.com/pscheid92/coachpulse/internal/adapter/metrics"
	"github.com/pscheid92/coachpulse/internal/adapter/openai"
	"github.com/pscheid92/coachpulse/internal/adapter/postgres"
	"github.com/pscheid92/coachpulse/internal/adapter/provider"
	"github.com/pscheid92/coachpulse/internal/adapter/queue"
	"github.com/pscheid92/coachpulse/internal/adapter/redis"
	"github.com/pscheid92/coachpulse/internal/adapter/revolut"
	"github.com/pscheid92/coachpulse/internal/adapter/voicerelay"
	"github.com/pscheid92/coachpulse/internal/app"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/pscheid92/coachpulse/internal/platform/config"
	"github.com/pscheid92/coachpulse/internal/platform/logging"
	"github.com/pscheid92/coachpulse/internal/prompts"
	goredis "github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout       = 10 * time.Second
	startupTimeout        = 10 * time.Second
	cacheEvictionInterval = time.Minute
	schedulerLeaseTTL     = 15 * time.Second
)

// repos groups the Postgres repositories shared by the services.
type repos struct {
	profiles      *postgres.ProfileRepo
	business      *postgres.BusinessProfileRepo
	conversations *postgres.ConversationRepo
	messages      *postgres.MessageRepo
	goals         *postgres.GoalRepo
	sessions      *postgres.CoachingSessionRepo
	feedback      *postgres.FeedbackRepo
	summaries     *postgres.SummaryRepo
	payments      *postgres.PaymentRepo
	stats         *postgres.StatsRepo
}

func newRepos(pool *pgxpool.Pool) repos {
	return repos{
		profiles:      postgres.NewProfileRepo(pool),
		business:      postgres.NewBusinessProfileRepo(pool),
		conversations: postgres.NewConversationRepo(pool),
		messages:      postgres.NewMessageRepo(pool),
		goals:         postgres.NewGoalRepo(pool),
		sessions:      postgres.NewCoachingSessionRepo(pool),
		feedback:      postgres.NewFeedbackRepo(pool),
		summaries:     postgres.NewSummaryRepo(pool),
		payments:      postgres.NewPaymentRepo(pool),
		stats:         postgres.NewStatsRepo(pool),
	}
}

// background holds the goroutines and pools stopped on shutdown.
type background struct {
	worker    *queue.Worker
	queue     *queue.Client
	demo      *app.DemoService
	cancel    context.CancelFunc
	leaseDone <-chan struct{} // closed once the scheduler lease loop has exited
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, m *metrics.DBMetrics) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.NewMetricsTracer(m))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupQueue(cfg *config.Config, m *metrics.JobMetrics) (asynq.RedisConnOpt, *queue.Client) {
	opt, err := queue.ParseRedisURL(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to configure task queue", "error", err)
		os.Exit(1)
	}
	return opt, queue.NewClient(opt, m)
}

// startWorker runs the summary worker in-process.
func startWorker(cfg *config.Config, opt asynq.RedisConnOpt, summaries *app.SummaryService, clock clockwork.Clock, m *metrics.JobMetrics) *queue.Worker {
	worker := queue.NewWorker(opt, cfg.WorkerConcurrency, queue.NewHandlers(summaries, clock, m))
	if err := worker.Start(); err != nil {
		slog.Error("Failed to start worker", "error", err)
		os.Exit(1)
	}
	slog.Info("Summary worker started", "concurrency", cfg.WorkerConcurrency)
	return worker
}

// startScheduler competes for the scheduler lease so that only one instance
// registers the periodic summary tasks. The returned channel is closed when
// ctx is cancelled and the scheduler has stopped.
func startScheduler(ctx context.Context, rdb *goredis.Client, opt asynq.RedisConnOpt, clock clockwork.Clock) <-chan struct{} {
	holder := uuid.NewString()
	lease := redis.NewLease(rdb, redis.SchedulerLeaseKey, holder, schedulerLeaseTTL, clock)

	done := make(chan struct{})
	go func() {
		defer close(done)
		lease.Run(ctx, func() func() {
			scheduler, err := queue.NewScheduler(opt, queue.DefaultSchedules)
			if err != nil {
				slog.Error("Failed to create scheduler", "error", err)
				return nil
			}
			if err := scheduler.Start(); err != nil {
				slog.Error("Failed to start scheduler", "error", err)
				return nil
			}
			slog.Info("Summary scheduler started", "holder", holder)
			return scheduler.Shutdown
		})
	}()
	return done
}

func runGracefulShutdown(srv *httpserver.Server, bg background) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		bg.cancel()
		if bg.leaseDone != nil {
			<-bg.leaseDone
		}
		if bg.worker != nil {
			bg.worker.Shutdown()
		}
		if err := bg.queue.Close(); err != nil {
			slog.Error("Failed to close queue client", "error", err)
		}
		bg.demo.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	registry := metrics.NewRegistry()
	m := metrics.NewSet(registry)

	catalog, err := prompts.Load()
	if err != nil {
		slog.Error("Failed to load prompts", "error", err)
		os.Exit(1)
	}

	pool := setupDB(cfg, m.DB)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	r := newRepos(pool)

	bgCtx, cancelBG := context.WithCancel(context.Background())
	defer cancelBG()

	entitlements := redis.NewEntitlementCache(redisClient, r.profiles, cfg.EntitlementCacheTTL, clock, m.Cache)
	stopEviction := entitlements.StartEvictionTimer(cacheEvictionInterval)
	defer stopEviction()
	go redis.NewInvalidationSubscriber(redisClient, entitlements).Start(bgCtx)

	providerMetrics := provider.WithMetrics(m.Provider)
	baasCfg := baas.Config{
		URL:        cfg.BaaSURL,
		AnonKey:    cfg.BaaSAnonKey,
		ServiceKey: cfg.BaaSServiceKey,
		JWTSecret:  cfg.BaaSJWTSecret,
	}
	openaiClient := openai.NewClient(openai.Config{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		ChatModel:       cfg.OpenAIChatModel,
		EmbeddingModel:  cfg.OpenAIEmbeddingModel,
		TranscribeModel: cfg.OpenAITranscribeModel,
		SpeechModel:     cfg.OpenAISpeechModel,
		SpeechVoice:     cfg.OpenAISpeechVoice,
		RealtimeModel:   cfg.OpenAIRealtimeModel,
	}, providerMetrics)

	// Optional providers stay nil so the services report them as disabled.
	var knowledge domain.KnowledgeBase
	if cfg.BaaSServiceKey != "" {
		knowledge = baas.NewKnowledgeBase(baasCfg, providerMetrics)
	}
	var live domain.LiveTokenIssuer
	if cfg.GeminiAPIKey != "" {
		live = gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiLiveModel, clock, providerMetrics)
	}
	var mail domain.Mailer
	if cfg.MailAPIKey != "" {
		mail = mailer.NewClient(cfg.MailAPIKey, cfg.MailFrom, providerMetrics)
	}
	var payments domain.PaymentProvider
	var webhook *revolut.WebhookVerifier
	if cfg.BillingEnabled() {
		payments = revolut.NewClient(cfg.RevolutSecretKey, cfg.RevolutSandbox, providerMetrics)
		webhook = revolut.NewWebhookVerifier(cfg.RevolutWebhookSecret, clock)
	}

	queueOpt, queueClient := setupQueue(cfg, m.Jobs)

	access := app.NewAccess(entitlements, clock)
	summaries := app.NewSummaryService(app.SummaryDeps{
		Messages:  r.messages,
		Summaries: r.summaries,
		Profiles:  r.profiles,
		Features:  access,
		Completer: openaiClient,
		Mailer:    mail,
		Queue:     queueClient,
		Prompts:   catalog,
		Model:     cfg.OpenAISummaryModel,
		Clock:     clock,
	})
	demo := app.NewDemoService(app.DemoDeps{
		Completer:    openaiClient,
		Prompts:      catalog,
		Model:        cfg.OpenAIChatModel,
		TTL:          cfg.DemoSessionTTL,
		MessageLimit: cfg.DemoMessageLimit,
		Clock:        clock,
		Metrics:      m.Demo,
	})
	demo.StartSweeper()

	services := httpserver.Services{
		Auth:     app.NewAuthService(baas.NewAuthClient(baasCfg, providerMetrics), r.profiles),
		Access:   access,
		Profiles: app.NewProfileService(r.profiles, r.business),
		Coaching: app.NewCoachingService(app.CoachingDeps{
			Conversations: r.conversations,
			Messages:      r.messages,
			Profiles:      r.profiles,
			Business:      r.business,
			Goals:         r.goals,
			Completer:     openaiClient,
			Embedder:      openaiClient,
			Knowledge:     knowledge,
			Features:      access,
			Prompts:       catalog,
			ChatModel:     cfg.OpenAIChatModel,
			RAGMatchCount: cfg.RAGMatchCount,
		}),
		Voice: app.NewVoiceService(app.VoiceDeps{
			Transcriber: openaiClient,
			Synthesizer: openaiClient,
			Realtime:    openaiClient,
			Live:        live,
			Profiles:    r.profiles,
			Prompts:     catalog,
		}),
		Goals:     app.NewGoalService(r.goals),
		Sessions:  app.NewSessionService(r.sessions, clock),
		Feedback:  app.NewFeedbackService(r.feedback, r.sessions),
		Summaries: summaries,
		Billing: app.NewBillingService(app.BillingDeps{
			Payments:     r.payments,
			Profiles:     r.profiles,
			Provider:     payments,
			Entitlements: entitlements,
			Clock:        clock,
			PriceMinor:   cfg.ProPriceMinor,
			Currency:     cfg.ProCurrency,
			Period:       cfg.ProPeriod,
			BaseURL:      cfg.BaseURL,
		}),
		Admin: app.NewAdminService(r.stats, r.profiles, r.feedback, entitlements, clock),
		Demo:  demo,
	}

	deps := httpserver.Deps{
		Services: services,
		Tokens:   baas.NewTokenVerifier(baasCfg, providerMetrics),
		Relay:    voicerelay.New(openaiClient, voicerelay.NewCheckOrigin(cfg.BaseURL, !cfg.IsProduction())),
		HealthChecks: []httpserver.HealthCheck{
			{Name: "postgres", Check: pool.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
		Metrics:        m,
		MetricsHandler: metrics.Handler(registry),
	}
	// Assign only when set to avoid a typed-nil interface.
	if webhook != nil {
		deps.Webhook = webhook
	}

	srv, err := httpserver.NewServer(cfg, deps)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	bg := background{queue: queueClient, demo: demo, cancel: cancelBG}
	if cfg.WorkerEnabled {
		bg.worker = startWorker(cfg, queueOpt, summaries, clock, m.Jobs)
		bg.leaseDone = startScheduler(bgCtx, redisClient, queueOpt, clock)
	}

	done := runGracefulShutdown(srv, bg)

	slog.Info("Server starting", "port", cfg.Port, "billing", cfg.BillingEnabled(), "worker", cfg.WorkerEnabled)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
