package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/coachpulse/internal/adapter/metrics"
	"github.com/pscheid92/coachpulse/internal/domain"
)

func (s *Server) registerRoutes() {
	var errorMetrics *metrics.ErrorMetrics
	if s.metrics != nil {
		errorMetrics = s.metrics.Errors
	}
	if s.relayLimits == nil {
		s.relayLimits = newConnectionLimits(relayMaxConnections, relayMaxPerIP, relayConnectRate, relayConnectBurst)
	}

	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(correlationMiddleware)
	if s.metrics != nil {
		s.echo.Use(s.metrics.HTTP.Middleware())
	}
	s.echo.Use(ErrorHandlingMiddleware(errorMetrics))
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         63072000, // 2 years; only sent over HTTPS
		HSTSPreloadEnabled: true,
		ContentSecurityPolicy: "default-src 'self'; " +
			"script-src 'self' 'unsafe-inline'; " +
			"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; " +
			"font-src 'self' https://fonts.gstatic.com; " +
			"connect-src 'self' wss: https://api.openai.com https://generativelanguage.googleapis.com; " +
			"media-src 'self' blob:; " +
			"frame-ancestors 'none'",
		ReferrerPolicy: "strict-origin-when-cross-origin",
	}))

	csrf := s.setupCSRFMiddleware()
	authLimiter := newRateLimiter(authRatePerSecond, authBurst)
	demoLimiter := newRateLimiter(demoRatePerSecond, demoBurst)

	s.registerHealthRoutes()
	s.registerAuthRoutes(csrf, authLimiter)
	s.registerPageRoutes(csrf)
	s.registerAPIRoutes(csrf)
	s.registerDemoRoutes(demoLimiter)

	s.echo.POST("/webhooks/revolut", s.handleRevolutWebhook)
	s.echo.POST("/api/cron/summaries", s.handleCronSummaries, s.requireCronSecret)
}

// registerPageRoutes attaches middleware per route so unknown paths still 404.
func (s *Server) registerPageRoutes(csrf echo.MiddlewareFunc) {
	s.echo.GET("/", s.handleLanding, csrf)

	s.echo.GET("/onboarding", s.handleOnboardingPage, csrf, s.requirePageAuth)
	s.echo.POST("/onboarding", s.handleOnboardingSubmit, csrf, s.requirePageAuth)

	onboarded := []echo.MiddlewareFunc{csrf, s.requirePageAuth, s.requireOnboarded}
	s.echo.GET("/dashboard", s.handleDashboard, onboarded...)
	s.echo.GET("/chat", s.handleChatPage, onboarded...)
	s.echo.GET("/goals", s.handleGoalsPage, onboarded...)
	s.echo.GET("/summaries", s.handleSummariesPage, onboarded...)
	s.echo.GET("/pricing", s.handlePricing, onboarded...)
	s.echo.GET("/admin", s.handleAdminPage, append(onboarded, s.requireAdminPage)...)
}

// registerAPIRoutes authenticates before the CSRF check so anonymous calls
// get a 401 rather than a token error.
func (s *Server) registerAPIRoutes(csrf echo.MiddlewareFunc) {
	var relayMetrics *metrics.RelayMetrics
	if s.metrics != nil {
		relayMetrics = s.metrics.Relay
	}

	api := s.echo.Group("/api", s.requireAPIAuth, csrf)

	api.GET("/profile", s.handleGetProfile)
	api.PUT("/profile", s.handleUpdateProfile)
	api.GET("/business-profile", s.handleGetBusinessProfile)
	api.PUT("/business-profile", s.handleUpdateBusinessProfile, s.requireFeature(domain.FeatureBusinessInsights))

	api.GET("/conversations", s.handleListConversations)
	api.POST("/conversations", s.handleCreateConversation)
	api.GET("/conversations/:id/messages", s.handleListMessages)
	api.POST("/conversations/:id/messages", s.handleAppendMessage)
	api.POST("/chat", s.handleChat)

	voice := api.Group("/voice")
	voice.POST("/transcribe", s.handleTranscribe, s.requireFeature(domain.FeatureVoice))
	voice.POST("/speech", s.handleSpeech, s.requireFeature(domain.FeatureVoice))
	voice.POST("/realtime-session", s.handleRealtimeSession, s.requireFeature(domain.FeatureRealtimeVoice))
	voice.POST("/gemini-session", s.handleGeminiSession, s.requireFeature(domain.FeatureGeminiLive))
	voice.GET("/relay", s.handleVoiceRelay, s.requireFeature(domain.FeatureRealtimeVoice), limitConnections(s.relayLimits, relayMetrics))

	api.GET("/goals", s.handleListGoals)
	api.POST("/goals", s.handleCreateGoal)
	api.PATCH("/goals/:id", s.handleUpdateGoal)

	api.GET("/sessions", s.handleListSessions)
	api.POST("/sessions", s.handleScheduleSession)
	api.PATCH("/sessions/:id", s.handleUpdateSession)

	api.POST("/feedback", s.handleSubmitFeedback)

	api.GET("/summaries", s.handleListSummaries)

	api.POST("/billing/checkout", s.handleCheckout)
	api.GET("/billing/status", s.handleBillingStatus)
	api.POST("/billing/sync/:order_id", s.handleBillingSync)

	admin := api.Group("/admin", s.requireAdmin)
	admin.GET("/stats", s.handleAdminStats)
	admin.GET("/users", s.handleAdminUsers)
	admin.PATCH("/users/:id/role", s.handleAdminSetRole)
	admin.GET("/feedback", s.handleAdminFeedback)
	admin.POST("/summaries/run", s.handleAdminRunSummaries)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}

func (s *Server) setupCSRFMiddleware() echo.MiddlewareFunc {
	maxAge := int(s.config.SessionMaxAge.Seconds())

	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper:        skipCSRF,
		TokenLookup:    "form:csrf_token,header:X-CSRF-Token",
		CookieName:     "csrf_token",
		CookiePath:     "/",
		CookieMaxAge:   maxAge,
		CookieHTTPOnly: true,
		CookieSecure:   s.config.IsProduction(),
		CookieSameSite: http.SameSiteStrictMode,
	})
}

// skipCSRF exempts bearer-authenticated clients and JSON bodies. Browsers
// cannot send a cross-origin JSON body without a CORS preflight, which this
// server never grants.
func skipCSRF(c echo.Context) bool {
	if _, ok := bearerToken(c); ok {
		return true
	}
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}
