package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type OrderState string

const (
	OrderPending   OrderState = "pending"
	OrderCompleted OrderState = "completed"
	OrderCancelled OrderState = "cancelled"
	OrderFailed    OrderState = "failed"
)

func (s OrderState) Final() bool {
	return s == OrderCompleted || s == OrderCancelled || s == OrderFailed
}

type PaymentOrder struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	ProviderOrderID string
	AmountMinor     int64
	Currency        string
	State           OrderState
	CheckoutURL     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type PaymentRepository interface {
	Create(ctx context.Context, o *PaymentOrder) (*PaymentOrder, error)
	GetByProviderID(ctx context.Context, providerOrderID string) (*PaymentOrder, error)
	// MarkState moves a pending order to a terminal non-completed state.
	MarkState(ctx context.Context, providerOrderID string, state OrderState) (*PaymentOrder, error)
	// Complete marks the order completed and extends the owner's pro plan by
	// period in one transaction. Completing an already completed order is a
	// no-op that reports applied=false.
	Complete(ctx context.Context, providerOrderID string, now time.Time, period time.Duration) (order *PaymentOrder, applied bool, err error)
}

// OrderRequest describes a one-off checkout for the pro plan.
type OrderRequest struct {
	AmountMinor   int64
	Currency      string
	Description   string
	CustomerEmail string
	RedirectURL   string
	Reference     string
}

// ProviderOrder is the payment provider's view of an order.
type ProviderOrder struct {
	ID          string
	State       OrderState
	CheckoutURL string
}

type PaymentProvider interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*ProviderOrder, error)
	GetOrder(ctx context.Context, orderID string) (*ProviderOrder, error)
}

// PaymentEvent is a verified webhook notification.
type PaymentEvent struct {
	Event   string
	OrderID string
}

// Payment webhook event names.
const (
	EventOrderCompleted     = "ORDER_COMPLETED"
	EventOrderAuthorised    = "ORDER_AUTHORISED"
	EventOrderCancelled     = "ORDER_CANCELLED"
	EventOrderPaymentFailed = "ORDER_PAYMENT_FAILED"
)
