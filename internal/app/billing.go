package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coachpulse/internal/domain"
)

type BillingDeps struct {
	Payments     domain.PaymentRepository
	Profiles     domain.ProfileRepository
	Provider     domain.PaymentProvider // nil disables checkout
	Entitlements domain.EntitlementSource
	Clock        clockwork.Clock
	PriceMinor   int64
	Currency     string
	Period       time.Duration
	BaseURL      string
}

// BillingService sells the pro plan as one-off orders that each extend the
// subscription by one period.
type BillingService struct {
	deps BillingDeps
}

func NewBillingService(deps BillingDeps) *BillingService {
	return &BillingService{deps: deps}
}

func (s *BillingService) Enabled() bool {
	return s.deps.Provider != nil
}

// Checkout creates a provider order for the pro plan and records it as pending.
func (s *BillingService) Checkout(ctx context.Context, userID uuid.UUID) (*domain.PaymentOrder, error) {
	if !s.Enabled() {
		return nil, domain.ErrBillingDisabled
	}

	profile, err := s.deps.Profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.Entitlement().IsPro(s.deps.Clock.Now()) {
		return nil, domain.ErrAlreadySubscribed
	}

	po, err := s.deps.Provider.CreateOrder(ctx, domain.OrderRequest{
		AmountMinor:   s.deps.PriceMinor,
		Currency:      s.deps.Currency,
		Description:   fmt.Sprintf("Coachpulse Pro (%d days)", int(s.deps.Period.Hours()/24)),
		CustomerEmail: profile.Email,
		RedirectURL:   strings.TrimSuffix(s.deps.BaseURL, "/") + "/dashboard?checkout=complete",
		Reference:     userID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}

	order, err := s.deps.Payments.Create(ctx, &domain.PaymentOrder{
		UserID:          userID,
		ProviderOrderID: po.ID,
		AmountMinor:     s.deps.PriceMinor,
		Currency:        s.deps.Currency,
		State:           domain.OrderPending,
		CheckoutURL:     po.CheckoutURL,
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Checkout created", "user_id", userID, "order_id", po.ID)
	return order, nil
}

// BillingStatus is the subscription view returned to the client.
type BillingStatus struct {
	Tier      domain.Tier               `json:"tier"`
	Status    domain.SubscriptionStatus `json:"status"`
	ExpiresAt *time.Time                `json:"expires_at"`
	IsPro     bool                      `json:"is_pro"`
	Enabled   bool                      `json:"billing_enabled"`
}

func (s *BillingService) Status(ctx context.Context, userID uuid.UUID) (*BillingStatus, error) {
	profile, err := s.deps.Profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	ent := profile.Entitlement()

	status := ent.Status
	if ent.Status == domain.SubscriptionActive && !ent.IsPro(s.deps.Clock.Now()) {
		status = domain.SubscriptionExpired
	}
	return &BillingStatus{
		Tier:      ent.Tier,
		Status:    status,
		ExpiresAt: ent.ExpiresAt,
		IsPro:     ent.IsPro(s.deps.Clock.Now()),
		Enabled:   s.Enabled(),
	}, nil
}

// HandleEvent applies a verified webhook event. Unknown orders and events
// are ignored so the provider stops redelivering.
func (s *BillingService) HandleEvent(ctx context.Context, ev domain.PaymentEvent) error {
	order, err := s.deps.Payments.GetByProviderID(ctx, ev.OrderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		slog.WarnContext(ctx, "Webhook for unknown order ignored", "order_id", ev.OrderID, "event", ev.Event)
		return nil
	}
	if err != nil {
		return err
	}

	switch ev.Event {
	case domain.EventOrderCompleted:
		_, err = s.applyState(ctx, order, domain.OrderCompleted)
	case domain.EventOrderCancelled:
		_, err = s.applyState(ctx, order, domain.OrderCancelled)
	case domain.EventOrderPaymentFailed:
		_, err = s.applyState(ctx, order, domain.OrderFailed)
	case domain.EventOrderAuthorised:
		slog.InfoContext(ctx, "Order authorised, awaiting capture", "order_id", ev.OrderID)
	default:
		slog.InfoContext(ctx, "Unhandled payment event", "order_id", ev.OrderID, "event", ev.Event)
	}
	return err
}

// Sync re-reads an order from the provider and applies its state. Used when
// a webhook was missed.
func (s *BillingService) Sync(ctx context.Context, userID uuid.UUID, providerOrderID string) (*domain.PaymentOrder, error) {
	if !s.Enabled() {
		return nil, domain.ErrBillingDisabled
	}

	order, err := s.deps.Payments.GetByProviderID(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}

	po, err := s.deps.Provider.GetOrder(ctx, providerOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment order: %w", err)
	}
	return s.applyState(ctx, order, po.State)
}

func (s *BillingService) applyState(ctx context.Context, order *domain.PaymentOrder, state domain.OrderState) (*domain.PaymentOrder, error) {
	switch state {
	case domain.OrderCompleted:
		updated, applied, err := s.deps.Payments.Complete(ctx, order.ProviderOrderID, s.deps.Clock.Now(), s.deps.Period)
		if err != nil {
			return nil, err
		}
		if applied {
			s.invalidate(ctx, order.UserID)
			slog.InfoContext(ctx, "Pro plan activated", "user_id", order.UserID, "order_id", order.ProviderOrderID)
		}
		return updated, nil
	case domain.OrderCancelled, domain.OrderFailed:
		return s.deps.Payments.MarkState(ctx, order.ProviderOrderID, state)
	default:
		return order, nil
	}
}

func (s *BillingService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.deps.Entitlements == nil {
		return
	}
	if err := s.deps.Entitlements.InvalidateEntitlement(ctx, userID); err != nil {
		slog.WarnContext(ctx, "Failed to invalidate entitlement", "user_id", userID, "error", err)
	}
}
