package httpserver

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

func parsePeriod(raw string) (domain.Period, error) {
	p, err := domain.ParsePeriod(raw)
	if err != nil {
		return "", apperrors.ValidationError("period must be daily, weekly or monthly").WithField("period", raw)
	}
	return p, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.ValidationError(name+" must be an integer").WithField(name, raw)
	}
	return n, nil
}

func (s *Server) handleListSummaries(c echo.Context) error {
	raw := c.QueryParam("period")
	if raw == "" {
		raw = string(domain.PeriodDaily)
	}
	period, err := parsePeriod(raw)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	summaries, err := s.svc.Summaries.List(c.Request().Context(), currentUserID(c), period, limit)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]any{"summaries": mapSlice(summaries, newSummaryResponse)})
}

// handleCronSummaries is called by an external scheduler as a fallback to the
// in-process cron.
func (s *Server) handleCronSummaries(c echo.Context) error {
	period, err := parsePeriod(c.QueryParam("period"))
	if err != nil {
		return err
	}

	if err := s.svc.Summaries.Trigger(c.Request().Context(), period, nil); err != nil {
		return err
	}
	slog.InfoContext(c.Request().Context(), "Summary generation triggered by cron", "period", period)
	return writeJSON(c, http.StatusAccepted, map[string]string{"status": "enqueued", "period": string(period)})
}
