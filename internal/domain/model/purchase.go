package model

import (
	"time"

	"video-gate-platform/internal/domain"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"   // order created on provider side; awaiting confirmation
	PurchaseStatusCompleted PurchaseStatus = "completed" // verified OK at provider, access window running
	PurchaseStatusFailed    PurchaseStatus = "failed"    // verification failed; kept for audit
	PurchaseStatusRefunded  PurchaseStatus = "refunded"  // admin reversal, access revoked
	PurchaseStatusExpired   PurchaseStatus = "expired"   // reporting-only relabel of an old completed row
)

type PaymentMethod string

const (
	PaymentMethodGateway      PaymentMethod = "gateway"
	PaymentMethodSubscription PaymentMethod = "subscription-entitlement"
)

// Purchase records one access-grant attempt for a gated image, whether paid
// through the gateway or derived from a subscription entitlement.
type Purchase struct {
	ID      string // ULID
	UserID  string
	VideoID string
	ImageID string

	Amount   int64 // minor currency units; 0 for subscription-derived grants
	Currency string
	Method   PaymentMethod

	// Gateway identifiers, set once per completed payment.
	OrderRef   string
	PaymentRef *string
	Signature  *string

	Status    PurchaseStatus
	ExpiresAt *time.Time // set at completion for gateway purchases; nil for subscription grants

	RefundAmount *int64
	RefundReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccessGranted reports whether this record grants access at the given
// instant. Expiry is a pure function of time; no write ever flips it.
func (p *Purchase) AccessGranted(now time.Time) bool {
	if p.Status != PurchaseStatusCompleted {
		return false
	}
	if p.Method == PaymentMethodSubscription {
		return true
	}
	return p.ExpiresAt != nil && now.Before(*p.ExpiresAt)
}

// Complete transitions the record to completed, stamping the payment
// identifiers and the access window. Only valid from pending.
func (p *Purchase) Complete(paymentRef, signature string, now time.Time, window time.Duration) error {
	if p.Status != PurchaseStatusPending {
		return domain.ErrInvalidState
	}
	exp := now.Add(window)
	p.Status = PurchaseStatusCompleted
	p.PaymentRef = &paymentRef
	p.Signature = &signature
	p.ExpiresAt = &exp
	p.UpdatedAt = now
	return nil
}

func (p *Purchase) IsZero() bool { return p == nil || p.ID == "" }
