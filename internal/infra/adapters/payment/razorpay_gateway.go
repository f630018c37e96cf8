// File: internal/infra/adapters/payment/razorpay_gateway.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"video-gate-platform/internal/domain"
	"video-gate-platform/internal/domain/ports/adapter"
	"video-gate-platform/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*RazorpayGateway)(nil)

const defaultRazorpayBaseURL = "https://api.razorpay.com/v1"

// RazorpayGateway implements adapter.PaymentGateway against the Razorpay
// Orders REST API. Confirmation signatures are verified locally: the provider
// signs "orderRef|paymentRef" with the key secret (HMAC-SHA256, hex).
type RazorpayGateway struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

func NewRazorpayGateway(keyID, keySecret, baseURL string, timeout time.Duration) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, errors.New("razorpay key id/secret empty")
	}
	if baseURL == "" {
		baseURL = defaultRazorpayBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

// CreateOrder registers a payment intent. Amount is in minor currency units,
// which is also what the provider expects.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency string, notes map[string]interface{}) (*adapter.Order, error) {
	start := time.Now()
	payload := map[string]any{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  "rcpt_" + uuid.NewString(),
	}
	if notes != nil {
		payload["notes"] = notes
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.ObserveGatewayCall("create_order", int(time.Since(start).Milliseconds()), false)
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ObserveGatewayCall("create_order", int(time.Since(start).Milliseconds()), false)
		return nil, fmt.Errorf("%w: order create http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	var out struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Status   string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.ObserveGatewayCall("create_order", int(time.Since(start).Milliseconds()), false)
		return nil, fmt.Errorf("%w: decode order response: %v", domain.ErrGatewayUnavailable, err)
	}
	if out.ID == "" {
		metrics.ObserveGatewayCall("create_order", int(time.Since(start).Milliseconds()), false)
		return nil, fmt.Errorf("%w: order response missing id", domain.ErrGatewayUnavailable)
	}
	metrics.ObserveGatewayCall("create_order", int(time.Since(start).Milliseconds()), true)
	return &adapter.Order{
		Ref:      out.ID,
		Amount:   out.Amount,
		Currency: out.Currency,
		Raw: map[string]interface{}{
			"order_id": out.ID,
			"key_id":   g.keyID,
			"amount":   out.Amount,
			"currency": out.Currency,
		},
	}, nil
}

// VerifyPayment recomputes the confirmation signature and compares it in
// constant time. A mismatch is a forged or corrupt confirmation, not a
// transport failure, so it returns (false, nil).
func (g *RazorpayGateway) VerifyPayment(ctx context.Context, orderRef, paymentRef, signature string) (bool, error) {
	start := time.Now()
	if orderRef == "" || paymentRef == "" || signature == "" {
		metrics.ObserveGatewayCall("verify", int(time.Since(start).Milliseconds()), false)
		return false, nil
	}
	expected := signConfirmation(g.keySecret, orderRef, paymentRef)
	ok := hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
	metrics.ObserveGatewayCall("verify", int(time.Since(start).Milliseconds()), ok)
	return ok, nil
}

// signConfirmation is HMAC-SHA256 over "orderRef|paymentRef", hex encoded.
func signConfirmation(secret, orderRef, paymentRef string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(h.Sum(nil))
}
