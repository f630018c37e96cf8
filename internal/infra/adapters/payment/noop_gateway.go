// File: internal/infra/adapters/payment/noop_gateway.go
package payment

import (
	"context"
	"fmt"
	"sync"

	"video-gate-platform/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

const noopSecret = "noop-secret"

// NoopGateway is a simple in-memory gateway for tests and dev mode.
type NoopGateway struct {
	mu     sync.Mutex
	seq    int64
	orders map[string]int64 // orderRef -> amount in minor units
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{orders: make(map[string]int64)}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) CreateOrder(ctx context.Context, amountMinor int64, currency string, notes map[string]interface{}) (*adapter.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	ref := fmt.Sprintf("order_noop%d", g.seq)
	g.orders[ref] = amountMinor
	return &adapter.Order{
		Ref:      ref,
		Amount:   amountMinor,
		Currency: currency,
		Raw:      map[string]interface{}{"order_id": ref, "amount": amountMinor, "currency": currency},
	}, nil
}

func (g *NoopGateway) VerifyPayment(ctx context.Context, orderRef, paymentRef, signature string) (bool, error) {
	g.mu.Lock()
	_, known := g.orders[orderRef]
	g.mu.Unlock()
	if !known || paymentRef == "" {
		return false, nil
	}
	return signature == g.Sign(orderRef, paymentRef), nil
}

// Sign produces a confirmation signature this gateway will accept. Dev-mode
// checkout pages and tests use it to play the provider's part.
func (g *NoopGateway) Sign(orderRef, paymentRef string) string {
	return signConfirmation(noopSecret, orderRef, paymentRef)
}
