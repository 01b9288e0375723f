package httpserver

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

const maxWebhookBody = 1 << 20

type orderResponse struct {
	OrderID     string            `json:"order_id"`
	State       domain.OrderState `json:"state"`
	CheckoutURL string            `json:"checkout_url,omitempty"`
}

func newOrderResponse(o *domain.PaymentOrder) orderResponse {
	return orderResponse{OrderID: o.ProviderOrderID, State: o.State, CheckoutURL: o.CheckoutURL}
}

func (s *Server) handleCheckout(c echo.Context) error {
	order, err := s.svc.Billing.Checkout(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusCreated, newOrderResponse(order))
}

func (s *Server) handleBillingStatus(c echo.Context) error {
	status, err := s.svc.Billing.Status(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, status)
}

func (s *Server) handleBillingSync(c echo.Context) error {
	orderID := c.Param("order_id")
	if orderID == "" {
		return apperrors.ValidationError("order_id is required")
	}

	order, err := s.svc.Billing.Sync(c.Request().Context(), currentUserID(c), orderID)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newOrderResponse(order))
}

// handleRevolutWebhook authenticates the raw body before decoding it. Events
// for unknown orders are acknowledged so the provider stops retrying.
func (s *Server) handleRevolutWebhook(c echo.Context) error {
	if s.webhook == nil {
		return domain.ErrBillingDisabled
	}
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return apperrors.ValidationError("failed to read request body")
	}

	if err := s.webhook.Verify(c.Request().Header, body); err != nil {
		slog.WarnContext(ctx, "Rejected payment webhook", "error", err)
		return apperrors.UnauthorizedError("invalid webhook signature")
	}

	ev, err := s.webhook.Parse(body)
	if err != nil {
		return apperrors.ValidationError("invalid webhook payload")
	}

	if err := s.svc.Billing.HandleEvent(ctx, ev); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}
