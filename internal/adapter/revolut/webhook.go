package revolut

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/tidwall/gjson"
)

const (
	SignatureHeader = "Revolut-Signature"
	TimestampHeader = "Revolut-Request-Timestamp"

	signatureVersion = "v1"
	maxClockSkew     = 5 * time.Minute
)

// WebhookVerifier checks Revolut-Signature headers against the signing secret.
type WebhookVerifier struct {
	secret []byte
	clock  clockwork.Clock
}

func NewWebhookVerifier(secret string, clock clockwork.Clock) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret), clock: clock}
}

// Verify validates the signature and timestamp headers for body. The
// signature header may carry several comma-separated values during secret
// rotation; one match is enough.
func (v *WebhookVerifier) Verify(h http.Header, body []byte) error {
	ts := h.Get(TimestampHeader)
	sigs := h.Get(SignatureHeader)
	if ts == "" || sigs == "" {
		return fmt.Errorf("missing signature headers: %w", domain.ErrInvalidSignature)
	}

	millis, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed timestamp %q: %w", ts, domain.ErrInvalidSignature)
	}
	sent := time.UnixMilli(millis)
	if skew := v.clock.Since(sent); skew > maxClockSkew || skew < -maxClockSkew {
		return fmt.Errorf("timestamp outside tolerance: %w", domain.ErrInvalidSignature)
	}

	expected := v.Sign(ts, body)
	for _, sig := range strings.Split(sigs, ",") {
		if hmac.Equal([]byte(strings.TrimSpace(sig)), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("signature mismatch: %w", domain.ErrInvalidSignature)
}

// Sign returns the "v1=<hex>" signature for a timestamp and raw body.
func (v *WebhookVerifier) Sign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(signatureVersion + "." + timestamp + "."))
	mac.Write(body)
	return signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}

// Parse decodes a verified payload.
func (v *WebhookVerifier) Parse(body []byte) (domain.PaymentEvent, error) {
	return ParseEvent(body)
}

// ParseEvent extracts the event name and order id from a webhook payload.
func ParseEvent(body []byte) (domain.PaymentEvent, error) {
	if !gjson.ValidBytes(body) {
		return domain.PaymentEvent{}, errors.New("webhook payload is not valid JSON")
	}
	parsed := gjson.ParseBytes(body)
	event := domain.PaymentEvent{
		Event:   parsed.Get("event").String(),
		OrderID: parsed.Get("order_id").String(),
	}
	if event.Event == "" || event.OrderID == "" {
		return domain.PaymentEvent{}, errors.New("webhook payload missing event or order_id")
	}
	return event, nil
}
