package adapter

import "context"

// Order is the provider-side payment intent returned by CreateOrder. Raw is
// the opaque payload the client needs to complete payment (checkout options,
// redirect URL and the like), passed through untouched.
type Order struct {
	Ref      string
	Amount   int64 // minor currency units
	Currency string
	Raw      map[string]interface{}
}

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string

	// CreateOrder registers a payment intent for the given amount in minor
	// currency units and returns the provider order reference.
	CreateOrder(ctx context.Context, amountMinor int64, currency string, notes map[string]interface{}) (*Order, error)

	// VerifyPayment checks the provider's confirmation signature for the
	// (orderRef, paymentRef) pair. False means the confirmation is forged or
	// corrupt; an error means the gateway could not be consulted at all.
	VerifyPayment(ctx context.Context, orderRef, paymentRef, signature string) (bool, error)
}
