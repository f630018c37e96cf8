package repository

import (
	"context"
	"time"

	"video-gate-platform/internal/domain/model"
)

// PurchaseRepository is the port for the purchase ledger's storage.
//
// The read-then-write transitions (complete, refund, sweep) are expressed as
// conditional updates so two concurrent delivery attempts cannot both
// transition the same record.
type PurchaseRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Purchase) error

	// LockPair serializes concurrent ledger writes for one (user, image)
	// pair within the supplied transaction. No-op outside a transaction.
	LockPair(ctx context.Context, tx Tx, userID, imageID string) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Purchase, error)
	FindByOrderRef(ctx context.Context, tx Tx, orderRef string) (*model.Purchase, error)

	// FindLatestGrant returns the most recent settled gateway record for the
	// (user, image) pair, regardless of expiry. Rows the sweeper has
	// relabelled to expired, and refunded rows, are included so the decision
	// layer can tell "expired"/"refunded" apart from "never purchased".
	// Subscription grant records are audit entries and never shape the
	// one-time decision. ErrNotFound when none exists.
	FindLatestGrant(ctx context.Context, tx Tx, userID, imageID string) (*model.Purchase, error)
	// FindSubscriptionGrant returns the entitlement record minted for a
	// subscriber view of the pair, if one exists.
	FindSubscriptionGrant(ctx context.Context, tx Tx, userID, imageID string) (*model.Purchase, error)
	// FindPending returns the open pending record for the pair, if any.
	FindPending(ctx context.Context, tx Tx, userID, imageID string) (*model.Purchase, error)

	// ListPendingOlderThan returns pending records created before cutoff,
	// oldest first. Used by the abandoned-purchase reaper.
	ListPendingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Purchase, error)
	// FindByPaymentRef looks up any record already bound to the gateway
	// payment reference; used for replay protection.
	FindByPaymentRef(ctx context.Context, tx Tx, paymentRef string) (*model.Purchase, error)

	// CompleteIfPending atomically transitions orderRef's record from pending
	// to completed, stamping refs and expiry. Returns false when the record
	// was not pending (lost race or already transitioned), and
	// ErrDuplicatePayment when the payment reference is already bound to
	// another record.
	CompleteIfPending(ctx context.Context, tx Tx, id, paymentRef, signature string, expiresAt time.Time) (bool, error)
	// FailIfPending atomically transitions the record to failed.
	FailIfPending(ctx context.Context, tx Tx, id string) (bool, error)
	// RefundIfCompleted atomically transitions the record to refunded.
	RefundIfCompleted(ctx context.Context, tx Tx, id string, amount int64, reason string) (bool, error)
	// MarkExpired relabels completed gateway rows whose window has passed.
	// Reporting-only; access decisions never depend on it.
	MarkExpired(ctx context.Context, tx Tx, before time.Time, limit int) (int, error)

	ListByUser(ctx context.Context, tx Tx, userID string, offset, limit int) ([]*model.Purchase, error)
	CountByStatus(ctx context.Context, tx Tx) (map[string]int, error)
	SumRevenueByPeriod(ctx context.Context, tx Tx, period string) (int64, error)
}
