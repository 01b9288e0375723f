// Package revolut creates and looks up payment orders through the Revolut
// Merchant API and verifies its webhook signatures.
package revolut

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pscheid92/coachpulse/internal/adapter/provider"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/pscheid92/coachpulse/internal/platform/retry"
)

const (
	providerName = "revolut"
	apiVersion   = "2024-09-01"

	ProductionURL = "https://merchant.revolut.com"
	SandboxURL    = "https://sandbox-merchant.revolut.com"
)

type Client struct {
	http  *provider.Client
	retry retry.Policy
}

var _ domain.PaymentProvider = (*Client)(nil)

// NewClient targets the sandbox or production merchant API.
func NewClient(secretKey string, sandbox bool, opts ...provider.Option) *Client {
	base := ProductionURL
	if sandbox {
		base = SandboxURL
	}
	return NewClientWithBaseURL(base, secretKey, opts...)
}

func NewClientWithBaseURL(baseURL, secretKey string, opts ...provider.Option) *Client {
	opts = append([]provider.Option{
		provider.WithBearer(secretKey),
		provider.WithHeader("Revolut-Api-Version", apiVersion),
	}, opts...)
	return &Client{
		http:  provider.New(providerName, baseURL, opts...),
		retry: retry.DefaultPolicy,
	}
}

type createOrderRequest struct {
	Amount            int64              `json:"amount"`
	Currency          string             `json:"currency"`
	Description       string             `json:"description,omitempty"`
	Customer          *customer          `json:"customer,omitempty"`
	RedirectURL       string             `json:"redirect_url,omitempty"`
	MerchantOrderData *merchantOrderData `json:"merchant_order_data,omitempty"`
}

type customer struct {
	Email string `json:"email"`
}

type merchantOrderData struct {
	Reference string `json:"reference"`
}

type orderResponse struct {
	ID          string `json:"id"`
	Token       string `json:"token"`
	State       string `json:"state"`
	CheckoutURL string `json:"checkout_url"`
}

func (c *Client) CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.ProviderOrder, error) {
	body := createOrderRequest{
		Amount:      req.AmountMinor,
		Currency:    req.Currency,
		Description: req.Description,
		RedirectURL: req.RedirectURL,
	}
	if req.CustomerEmail != "" {
		body.Customer = &customer{Email: req.CustomerEmail}
	}
	if req.Reference != "" {
		body.MerchantOrderData = &merchantOrderData{Reference: req.Reference}
	}

	var resp orderResponse
	if err := c.http.JSON(ctx, "create_order", http.MethodPost, "/api/orders", body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, errors.New("revolut create order: response carries no order id")
	}
	return toProviderOrder(resp), nil
}

// GetOrder fetches the current order state. Retried on transient failures.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.ProviderOrder, error) {
	return retry.Do(ctx, c.retry, retry.ClassifyHTTP, func(ctx context.Context) (*domain.ProviderOrder, error) {
		var resp orderResponse
		err := c.http.JSON(ctx, "get_order", http.MethodGet, "/api/orders/"+url.PathEscape(orderID), nil, &resp)
		var se *retry.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, &retry.PermanentError{Err: fmt.Errorf("revolut order %s: %w", orderID, domain.ErrOrderNotFound)}
		}
		if err != nil {
			return nil, err
		}
		return toProviderOrder(resp), nil
	})
}

func toProviderOrder(resp orderResponse) *domain.ProviderOrder {
	return &domain.ProviderOrder{
		ID:          resp.ID,
		State:       MapState(resp.State),
		CheckoutURL: resp.CheckoutURL,
	}
}

// MapState folds Revolut's order lifecycle onto ours. Authorised and
// processing orders stay pending until the capture completes.
func MapState(state string) domain.OrderState {
	switch strings.ToLower(state) {
	case "completed":
		return domain.OrderCompleted
	case "cancelled":
		return domain.OrderCancelled
	case "failed":
		return domain.OrderFailed
	default:
		return domain.OrderPending
	}
}
