package revolut

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/pscheid92/coachpulse/internal/platform/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "Bearer sk_rev", r.Header.Get("Authorization"))
		assert.Equal(t, apiVersion, r.Header.Get("Revolut-Api-Version"))

		var req createOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(2900), req.Amount)
		assert.Equal(t, "EUR", req.Currency)
		require.NotNil(t, req.Customer)
		assert.Equal(t, "ada@example.com", req.Customer.Email)
		require.NotNil(t, req.MerchantOrderData)
		assert.Equal(t, "user-1", req.MerchantOrderData.Reference)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ord_1","token":"tok","state":"PENDING","checkout_url":"https://checkout.revolut.com/pay/tok"}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, "sk_rev")
	order, err := c.CreateOrder(context.Background(), domain.OrderRequest{
		AmountMinor:   2900,
		Currency:      "EUR",
		Description:   "Pro plan",
		CustomerEmail: "ada@example.com",
		Reference:     "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "ord_1", order.ID)
	assert.Equal(t, domain.OrderPending, order.State)
	assert.Equal(t, "https://checkout.revolut.com/pay/tok", order.CheckoutURL)
}

func TestGetOrder_NotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, "sk_rev")
	_, err := c.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrder_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "/api/orders/ord_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"ord_1","state":"completed"}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, "sk_rev")
	c.retry = retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, RateLimitBackoff: time.Millisecond}

	order, err := c.GetOrder(context.Background(), "ord_1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, order.State)
}

func TestMapState(t *testing.T) {
	tests := map[string]domain.OrderState{
		"PENDING":    domain.OrderPending,
		"processing": domain.OrderPending,
		"authorised": domain.OrderPending,
		"COMPLETED":  domain.OrderCompleted,
		"cancelled":  domain.OrderCancelled,
		"FAILED":     domain.OrderFailed,
	}
	for in, want := range tests {
		assert.Equal(t, want, MapState(in), in)
	}
}

func signedHeaders(v *WebhookVerifier, sent time.Time, body []byte) http.Header {
	ts := strconv.FormatInt(sent.UnixMilli(), 10)
	h := http.Header{}
	h.Set(TimestampHeader, ts)
	h.Set(SignatureHeader, v.Sign(ts, body))
	return h
}

func TestVerify(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	v := NewWebhookVerifier("whsec_test", clock)
	body := []byte(`{"event":"ORDER_COMPLETED","order_id":"ord_1"}`)

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, v.Verify(signedHeaders(v, now.Add(-time.Minute), body), body))
	})

	t.Run("rotated secrets", func(t *testing.T) {
		h := signedHeaders(v, now, body)
		h.Set(SignatureHeader, "v1=deadbeef,"+h.Get(SignatureHeader))
		assert.NoError(t, v.Verify(h, body))
	})

	t.Run("tampered body", func(t *testing.T) {
		h := signedHeaders(v, now, body)
		err := v.Verify(h, []byte(`{"event":"ORDER_COMPLETED","order_id":"ord_2"}`))
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		err := v.Verify(signedHeaders(v, now.Add(-6*time.Minute), body), body)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("future timestamp", func(t *testing.T) {
		err := v.Verify(signedHeaders(v, now.Add(6*time.Minute), body), body)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewWebhookVerifier("other", clock)
		err := v.Verify(signedHeaders(other, now, body), body)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("missing headers", func(t *testing.T) {
		assert.ErrorIs(t, v.Verify(http.Header{}, body), domain.ErrInvalidSignature)
	})
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"event":"ORDER_CANCELLED","order_id":"ord_9","merchant_order_ext_ref":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventOrderCancelled, ev.Event)
	assert.Equal(t, "ord_9", ev.OrderID)

	_, err = ParseEvent([]byte(`{"event":"ORDER_COMPLETED"}`))
	assert.Error(t, err)

	_, err = ParseEvent([]byte(`not json`))
	assert.Error(t, err)
}
