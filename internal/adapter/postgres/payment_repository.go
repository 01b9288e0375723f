package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/coachpulse/internal/domain"
)

const orderColumns = `id, user_id, provider_order_id, amount_minor, currency, state, checkout_url, created_at, updated_at`

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

func scanOrder(row scanner) (*domain.PaymentOrder, error) {
	var o domain.PaymentOrder
	if err := row.Scan(&o.ID, &o.UserID, &o.ProviderOrderID, &o.AmountMinor, &o.Currency, &o.State, &o.CheckoutURL, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PaymentRepo) Create(ctx context.Context, o *domain.PaymentOrder) (*domain.PaymentOrder, error) {
	saved, err := scanOrder(r.pool.QueryRow(ctx, `
		INSERT INTO payment_orders (user_id, provider_order_id, amount_minor, currency, state, checkout_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+orderColumns, o.UserID, o.ProviderOrderID, o.AmountMinor, o.Currency, o.State, o.CheckoutURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}
	return saved, nil
}

func (r *PaymentRepo) GetByProviderID(ctx context.Context, providerOrderID string) (*domain.PaymentOrder, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM payment_orders WHERE provider_order_id = $1`, providerOrderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment order: %w", err)
	}
	return o, nil
}

// MarkState only moves pending orders, so late failure events never
// overwrite a completed order.
func (r *PaymentRepo) MarkState(ctx context.Context, providerOrderID string, state domain.OrderState) (*domain.PaymentOrder, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		UPDATE payment_orders SET state = $2, updated_at = NOW()
		WHERE provider_order_id = $1 AND state = 'pending'
		RETURNING `+orderColumns, providerOrderID, state))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetByProviderID(ctx, providerOrderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark payment order: %w", err)
	}
	return o, nil
}

func (r *PaymentRepo) Complete(ctx context.Context, providerOrderID string, now time.Time, period time.Duration) (*domain.PaymentOrder, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM payment_orders WHERE provider_order_id = $1 FOR UPDATE`, providerOrderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock payment order: %w", err)
	}
	if order.State == domain.OrderCompleted {
		return order, false, nil
	}

	order, err = scanOrder(tx.QueryRow(ctx, `
		UPDATE payment_orders SET state = 'completed', updated_at = NOW()
		WHERE id = $1
		RETURNING `+orderColumns, order.ID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to complete payment order: %w", err)
	}

	// Extend from the current expiry while the plan is still running, else from now.
	_, err = tx.Exec(ctx, `
		UPDATE profiles
		SET subscription_expires_at = CASE
		        WHEN subscription_tier = 'pro' AND subscription_status = 'active'
		             AND subscription_expires_at IS NOT NULL AND subscription_expires_at > $2
		        THEN subscription_expires_at + $3::interval
		        ELSE $2::timestamptz + $3::interval
		    END,
		    subscription_tier = 'pro',
		    subscription_status = 'active',
		    updated_at = NOW()
		WHERE id = $1`, order.UserID, now, period)
	if err != nil {
		return nil, false, fmt.Errorf("failed to activate subscription: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return order, true, nil
}
