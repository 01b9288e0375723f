package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
	"github.com/yuin/goldmark"
)

const summariesPageLimit = 10

var templateFuncs = template.FuncMap{
	"markdown": renderMarkdown,
	"date": func(t time.Time) string {
		return t.UTC().Format("Jan 2, 2006")
	},
	"datetime": func(t time.Time) string {
		return t.UTC().Format("Jan 2, 2006 15:04 UTC")
	},
	"money": func(minor int64, currency string) string {
		return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, currency)
	},
}

// renderMarkdown converts stored summary markdown to HTML. Raw HTML in the
// source is dropped by goldmark's default renderer.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// pageData builds the template context shared by every page.
func (s *Server) pageData(c echo.Context, extra map[string]any) map[string]any {
	data := map[string]any{
		"CSRFToken": c.Get("csrf"),
		"BaseURL":   s.config.BaseURL,
	}
	if profile, ok := c.Get(ctxKeyProfile).(*domain.Profile); ok {
		data["Profile"] = profile
		data["IsAdmin"] = profile.Role == domain.RoleAdmin
		data["IsPro"] = profile.Entitlement().IsPro(time.Now())
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func currentProfile(c echo.Context) *domain.Profile {
	profile, _ := c.Get(ctxKeyProfile).(*domain.Profile)
	return profile
}

func (s *Server) handleLanding(c echo.Context) error {
	if _, ok := s.sessionUserID(c); ok {
		return c.Redirect(http.StatusFound, "/dashboard")
	}
	return s.renderTemplate(c, "landing.html", s.pageData(c, nil))
}

func (s *Server) handleOnboardingPage(c echo.Context) error {
	if currentProfile(c).OnboardingCompleted {
		return c.Redirect(http.StatusFound, "/dashboard")
	}
	return s.renderTemplate(c, "onboarding.html", s.pageData(c, nil))
}

type onboardingForm struct {
	FullName      string `form:"full_name" json:"full_name"`
	CoachingFocus string `form:"coaching_focus" json:"coaching_focus"`
	Timezone      string `form:"timezone" json:"timezone"`
}

func (s *Server) handleOnboardingSubmit(c echo.Context) error {
	var form onboardingForm
	if err := c.Bind(&form); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	userID := currentUserID(c)
	_, err := s.svc.Profiles.CompleteOnboarding(c.Request().Context(), userID, domain.ProfileUpdate{
		FullName:      form.FullName,
		CoachingFocus: form.CoachingFocus,
		Timezone:      form.Timezone,
	})
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Type == apperrors.TypeValidation {
		return s.renderTemplateStatus(c, http.StatusBadRequest, "onboarding.html", s.pageData(c, map[string]any{
			"Error": appErr.Message,
			"Form":  form,
		}))
	}
	if err != nil {
		return err
	}

	slog.InfoContext(c.Request().Context(), "Onboarding completed", "user_id", userID)
	return c.Redirect(http.StatusFound, "/dashboard")
}

func (s *Server) handleDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)

	goals, err := s.svc.Goals.List(ctx, userID)
	if err != nil {
		return err
	}
	sessions, err := s.svc.Sessions.List(ctx, userID)
	if err != nil {
		return err
	}
	conversations, err := s.svc.Coaching.ListConversations(ctx, userID)
	if err != nil {
		return err
	}

	return s.renderTemplate(c, "dashboard.html", s.pageData(c, map[string]any{
		"Goals":         goals,
		"Sessions":      sessions,
		"Conversations": conversations,
		"Checkout":      c.QueryParam("checkout"),
	}))
}

func (s *Server) handleChatPage(c echo.Context) error {
	conversations, err := s.svc.Coaching.ListConversations(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return s.renderTemplate(c, "chat.html", s.pageData(c, map[string]any{
		"Conversations": conversations,
	}))
}

func (s *Server) handleGoalsPage(c echo.Context) error {
	goals, err := s.svc.Goals.List(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return s.renderTemplate(c, "goals.html", s.pageData(c, map[string]any{
		"Goals": goals,
	}))
}

func (s *Server) handleSummariesPage(c echo.Context) error {
	period := domain.PeriodDaily
	if raw := c.QueryParam("period"); raw != "" {
		p, err := domain.ParsePeriod(raw)
		if err != nil {
			return apperrors.ValidationError("period must be daily, weekly or monthly").WithField("period", raw)
		}
		period = p
	}

	summaries, err := s.svc.Summaries.List(c.Request().Context(), currentUserID(c), period, summariesPageLimit)
	if err != nil {
		return err
	}
	return s.renderTemplate(c, "summaries.html", s.pageData(c, map[string]any{
		"Period":    period,
		"Periods":   []domain.Period{domain.PeriodDaily, domain.PeriodWeekly, domain.PeriodMonthly},
		"Summaries": summaries,
	}))
}

func (s *Server) handlePricing(c echo.Context) error {
	return s.renderTemplate(c, "pricing.html", s.pageData(c, map[string]any{
		"PriceMinor":     s.config.ProPriceMinor,
		"Currency":       s.config.ProCurrency,
		"PeriodDays":     int(s.config.ProPeriod.Hours() / 24),
		"BillingEnabled": s.svc.Billing.Enabled(),
	}))
}

func (s *Server) handleAdminPage(c echo.Context) error {
	stats, err := s.svc.Admin.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return s.renderTemplate(c, "admin.html", s.pageData(c, map[string]any{
		"Stats": stats,
	}))
}
