package httpserver

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/adapter/metrics"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/pscheid92/coachpulse/internal/platform/correlation"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

// correlationMiddleware threads X-Request-ID through the request context and
// echoes it back on the response.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromHeader(c.Request().Header.Get(correlation.Header))
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.Header, id)
		return next(c)
	}
}

func ErrorHandlingMiddleware(m *metrics.ErrorMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			structuredErr := toAppError(err)
			logError(c, structuredErr)
			if m != nil {
				m.HTTPErrors.WithLabelValues(string(structuredErr.Type)).Inc()
			}

			if c.Response().Committed {
				return nil
			}
			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

// toAppError maps domain sentinels to their HTTP-facing structured errors.
// Anything unrecognised becomes an internal error.
func toAppError(err error) *apperrors.Error {
	var structured *apperrors.Error
	if errors.As(err, &structured) {
		return structured
	}

	switch {
	case errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrBusinessProfileNotFound),
		errors.Is(err, domain.ErrConversationNotFound),
		errors.Is(err, domain.ErrGoalNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrDemoSessionNotFound):
		return notFound(err)
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrInvalidSignature):
		return apperrors.UnauthorizedError(sentinelMessage(err))
	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrAlreadySubscribed),
		errors.Is(err, domain.ErrInvalidTransition):
		return apperrors.ConflictError(err.Error())
	case errors.Is(err, domain.ErrDemoLimitReached):
		return apperrors.RateLimitedError(domain.ErrDemoLimitReached.Error())
	case errors.Is(err, domain.ErrBillingDisabled),
		errors.Is(err, domain.ErrProviderDisabled):
		return apperrors.UnavailableError(sentinelMessage(err))
	}
	return apperrors.InternalError("internal server error", err)
}

func notFound(err error) *apperrors.Error {
	return apperrors.NotFoundError(sentinelMessage(err))
}

// sentinelMessage returns the message of the innermost wrapped error so
// wrapping context (which may name internals) stays out of responses.
func sentinelMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if userID := c.Get(ctxKeyUserID); userID != nil {
		attrs = append(attrs, "user_id", userID)
	}

	switch err.Type {
	case apperrors.TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeUnauthorized, apperrors.TypeForbidden, apperrors.TypeRateLimited:
		slog.InfoContext(ctx, "Request denied", attrs...)
	case apperrors.TypeConflict:
		slog.WarnContext(ctx, "Conflict", attrs...)
	case apperrors.TypeUnavailable:
		slog.WarnContext(ctx, "Integration unavailable", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}
