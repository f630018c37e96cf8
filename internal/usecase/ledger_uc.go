// File: internal/usecase/ledger_uc.go
package usecase

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"video-gate-platform/internal/domain"
	"video-gate-platform/internal/domain/model"
	"video-gate-platform/internal/domain/ports/adapter"
	"video-gate-platform/internal/domain/ports/repository"
	"video-gate-platform/internal/infra/metrics"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// LedgerUseCase owns every access-grant record and its lifecycle.
type LedgerUseCase interface {
	// Initiate opens a purchase for a gated image: creates a provider order
	// and a pending ledger record. Fails when the user already holds valid
	// access or an open pending purchase for the image.
	Initiate(ctx context.Context, userID, imageID string) (*model.Purchase, *adapter.Order, error)
	// Complete finalizes a purchase from a gateway confirmation. Repeating
	// the same (orderRef, paymentRef) confirmation is a no-op returning the
	// already-settled record, even after the sweeper has relabelled it.
	Complete(ctx context.Context, orderRef, paymentRef, signature string) (*model.Purchase, error)
	// GrantViaSubscription records a zero-amount entitlement grant so the
	// ledger stays a uniform audit trail for subscription viewers. One record
	// per (user, image) pair; repeated calls return the existing grant.
	GrantViaSubscription(ctx context.Context, userID, videoID, imageID string) (*model.Purchase, error)
	// Refund reverses a completed purchase and revokes access immediately.
	Refund(ctx context.Context, purchaseID string, amount int64, reason string) (*model.Purchase, error)
	// SweepExpired relabels old completed rows whose window has passed.
	// Reporting only; access decisions never wait for it.
	SweepExpired(ctx context.Context, limit int) (int, error)
	// AbandonStalePending fails pending records whose checkout was never
	// confirmed, so a fresh initiate for the pair becomes possible again.
	AbandonStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
	// FindByID reads one ledger record.
	FindByID(ctx context.Context, purchaseID string) (*model.Purchase, error)
}

// accessDecider is the slice of the access service the ledger needs for its
// initiate precondition, evaluated inside the same transaction as the insert.
type accessDecider interface {
	Decide(ctx context.Context, tx repository.Tx, userID, imageID string) (model.AccessDecision, error)
}

// Locker is an optional cross-instance guard for purchase initiation. The
// storage transaction remains the source of truth; the lock only turns a
// doomed concurrent initiate into a fast conflict.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// LedgerConfig carries the tunables of the purchase ledger.
type LedgerConfig struct {
	AccessWindow       time.Duration // how long one completed purchase grants visibility
	FallbackPriceMinor int64         // charged when the catalog has no price set
	Currency           string
}

type ledgerUC struct {
	purchases repository.PurchaseRepository
	assets    repository.AssetRepository
	gateway   adapter.PaymentGateway
	tm        repository.TransactionManager
	access    accessDecider
	audit     adapter.AuditSink
	locker    Locker
	cfg       LedgerConfig
	log       *zerolog.Logger

	now     func() time.Time
	entropy *ulid.MonotonicEntropy
}

func NewLedgerUseCase(
	purchases repository.PurchaseRepository,
	assets repository.AssetRepository,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	access accessDecider,
	audit adapter.AuditSink,
	locker Locker,
	cfg LedgerConfig,
	logger *zerolog.Logger,
) *ledgerUC {
	if cfg.AccessWindow <= 0 {
		cfg.AccessWindow = 5 * time.Minute
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	l := logger.With().Str("component", "LedgerUC").Logger()
	return &ledgerUC{
		purchases: purchases,
		assets:    assets,
		gateway:   gateway,
		tm:        tm,
		access:    access,
		audit:     audit,
		locker:    locker,
		cfg:       cfg,
		log:       &l,
		now:       time.Now,
		entropy:   ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (u *ledgerUC) newID() string {
	return ulid.MustNew(ulid.Timestamp(u.now()), u.entropy).String()
}

func (u *ledgerUC) Initiate(ctx context.Context, userID, imageID string) (*model.Purchase, *adapter.Order, error) {
	if userID == "" || imageID == "" {
		return nil, nil, domain.ErrInvalidArgument
	}

	img, err := u.assets.FindImageByID(ctx, repository.NoTX, imageID)
	if err != nil {
		return nil, nil, err
	}

	amount := img.PriceMinor
	if amount <= 0 {
		amount = u.cfg.FallbackPriceMinor
	}
	currency := img.Currency
	if currency == "" {
		currency = u.cfg.Currency
	}

	if u.locker != nil {
		key := "initiate:" + userID + ":" + imageID
		token, lerr := u.locker.TryLock(ctx, key, 30*time.Second)
		switch {
		case lerr == nil:
			defer func() { _ = u.locker.Unlock(ctx, key, token) }()
		case errors.Is(lerr, domain.ErrAlreadyInitiated):
			return nil, nil, lerr
		default:
			// Lock service outage. The advisory lock inside the transaction is
			// the real serializer, so continue on storage alone.
			u.log.Warn().Err(lerr).Str("user_id", userID).Str("image_id", imageID).
				Msg("initiate lock unavailable, relying on storage serialization")
		}
	}

	var (
		rec   *model.Purchase
		order *adapter.Order
	)
	// The no-valid-grant check and the insert run inside one transaction,
	// serialized per (user, image) by an advisory lock, so two concurrent
	// initiations cannot both create a pending record.
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.purchases.LockPair(ctx, tx, userID, imageID); err != nil {
			return err
		}

		decision, err := u.access.Decide(ctx, tx, userID, imageID)
		if err != nil {
			return err
		}
		if decision.Granted {
			existing, ferr := u.purchases.FindLatestGrant(ctx, tx, userID, imageID)
			if ferr == nil {
				return domain.Conflict(domain.ErrAlreadyGranted, existing.ID)
			}
			return domain.ErrAlreadyGranted
		}

		if open, ferr := u.purchases.FindPending(ctx, tx, userID, imageID); ferr == nil {
			return domain.Conflict(domain.ErrAlreadyInitiated, open.ID)
		} else if !errors.Is(ferr, domain.ErrNotFound) {
			return ferr
		}

		order, err = u.gateway.CreateOrder(ctx, amount, currency, map[string]interface{}{
			"user_id":  userID,
			"image_id": imageID,
		})
		if err != nil {
			return err
		}

		now := u.now()
		rec = &model.Purchase{
			ID:        u.newID(),
			UserID:    userID,
			VideoID:   img.VideoID,
			ImageID:   imageID,
			Amount:    amount,
			Currency:  currency,
			Method:    model.PaymentMethodGateway,
			OrderRef:  order.Ref,
			Status:    model.PurchaseStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return u.purchases.Save(ctx, tx, rec)
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.IncPurchase(string(model.PurchaseStatusPending))
	u.emit("purchase.initiated", rec, "")
	u.log.Info().Str("purchase_id", rec.ID).Str("user_id", userID).Str("image_id", imageID).
		Int64("amount", amount).Msg("purchase initiated")
	return rec, order, nil
}

func (u *ledgerUC) Complete(ctx context.Context, orderRef, paymentRef, signature string) (*model.Purchase, error) {
	if orderRef == "" || paymentRef == "" || signature == "" {
		return nil, domain.ErrInvalidArgument
	}

	var (
		rec       *model.Purchase
		replayed  bool
		failedRec *model.Purchase
		verifyErr error
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.purchases.FindByOrderRef(ctx, tx, orderRef)
		if err != nil {
			return err
		}

		if p.Status == model.PurchaseStatusCompleted || p.Status == model.PurchaseStatusExpired {
			// Gateways retry webhook delivery, and the sweeper may have
			// relabelled the row in the meantime; the same confirmation is a
			// no-op either way, while a different paymentRef against a settled
			// order is a hard conflict.
			if p.PaymentRef != nil && *p.PaymentRef == paymentRef {
				rec, replayed = p, true
				return nil
			}
			return domain.Conflict(domain.ErrInvalidState, p.ID)
		}
		if p.Status != model.PurchaseStatusPending {
			return domain.Conflict(domain.ErrInvalidState, p.ID)
		}

		if other, ferr := u.purchases.FindByPaymentRef(ctx, tx, paymentRef); ferr == nil && other.ID != p.ID {
			return domain.Conflict(domain.ErrDuplicatePayment, other.ID)
		} else if ferr != nil && !errors.Is(ferr, domain.ErrNotFound) {
			return ferr
		}

		ok, gwErr := u.gateway.VerifyPayment(ctx, orderRef, paymentRef, signature)
		if gwErr != nil || !ok {
			// Terminal for this attempt: the record is kept for audit and the
			// caller must re-initiate.
			if _, ferr := u.purchases.FailIfPending(ctx, tx, p.ID); ferr != nil {
				return ferr
			}
			p.Status = model.PurchaseStatusFailed
			failedRec = p
			if gwErr != nil {
				verifyErr = domain.ErrGatewayUnavailable
			} else {
				verifyErr = domain.ErrVerificationFailed
			}
			return nil
		}

		expiresAt := u.now().Add(u.cfg.AccessWindow)
		done, err := u.purchases.CompleteIfPending(ctx, tx, p.ID, paymentRef, signature, expiresAt)
		if err != nil {
			return err
		}
		if !done {
			// Lost the race to a concurrent delivery of the same confirmation.
			cur, ferr := u.purchases.FindByID(ctx, tx, p.ID)
			if ferr != nil {
				return ferr
			}
			if cur.Status == model.PurchaseStatusCompleted && cur.PaymentRef != nil && *cur.PaymentRef == paymentRef {
				rec, replayed = cur, true
				return nil
			}
			return domain.Conflict(domain.ErrInvalidState, cur.ID)
		}

		p.Status = model.PurchaseStatusCompleted
		p.PaymentRef = &paymentRef
		p.Signature = &signature
		p.ExpiresAt = &expiresAt
		p.UpdatedAt = u.now()
		rec = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if verifyErr != nil {
		metrics.IncPurchase(string(model.PurchaseStatusFailed))
		u.emit("purchase.failed", failedRec, verifyErr.Error())
		u.log.Warn().Str("purchase_id", failedRec.ID).Str("order_ref", orderRef).Err(verifyErr).
			Msg("purchase verification failed")
		return nil, verifyErr
	}
	if replayed {
		u.log.Debug().Str("purchase_id", rec.ID).Str("order_ref", orderRef).Msg("duplicate confirmation ignored")
		return rec, nil
	}

	metrics.IncPurchase(string(model.PurchaseStatusCompleted))
	metrics.AddPurchaseRevenue(rec.Currency, rec.Amount)
	u.emit("purchase.completed", rec, "")
	u.log.Info().Str("purchase_id", rec.ID).Str("order_ref", orderRef).
		Time("expires_at", *rec.ExpiresAt).Msg("purchase completed")
	return rec, nil
}

func (u *ledgerUC) GrantViaSubscription(ctx context.Context, userID, videoID, imageID string) (*model.Purchase, error) {
	if userID == "" || imageID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := u.assets.FindImageByID(ctx, repository.NoTX, imageID); err != nil {
		return nil, err
	}

	if existing, err := u.purchases.FindSubscriptionGrant(ctx, repository.NoTX, userID, imageID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := u.now()
	rec := &model.Purchase{
		ID:        u.newID(),
		UserID:    userID,
		VideoID:   videoID,
		ImageID:   imageID,
		Amount:    0,
		Currency:  u.cfg.Currency,
		Method:    model.PaymentMethodSubscription,
		Status:    model.PurchaseStatusCompleted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.purchases.Save(ctx, repository.NoTX, rec); err != nil {
		return nil, err
	}
	u.emit("purchase.completed", rec, "subscription-entitlement")
	return rec, nil
}

func (u *ledgerUC) Refund(ctx context.Context, purchaseID string, amount int64, reason string) (*model.Purchase, error) {
	if purchaseID == "" {
		return nil, domain.ErrInvalidArgument
	}

	var rec *model.Purchase
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.purchases.FindByID(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if p.Status != model.PurchaseStatusCompleted {
			return domain.ErrNotCompleted
		}
		if amount < 0 || amount > p.Amount {
			return domain.ErrInvalidAmount
		}
		ok, err := u.purchases.RefundIfCompleted(ctx, tx, p.ID, amount, reason)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotCompleted
		}
		p.Status = model.PurchaseStatusRefunded
		p.RefundAmount = &amount
		p.RefundReason = reason
		p.UpdatedAt = u.now()
		rec = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncPurchase(string(model.PurchaseStatusRefunded))
	u.emit("purchase.refunded", rec, reason)
	u.log.Info().Str("purchase_id", rec.ID).Int64("amount", amount).Str("reason", reason).Msg("purchase refunded")
	return rec, nil
}

func (u *ledgerUC) SweepExpired(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 500
	}
	n, err := u.purchases.MarkExpired(ctx, repository.NoTX, u.now(), limit)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddPurchasesSwept(n)
	}
	return n, nil
}

func (u *ledgerUC) AbandonStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if olderThan <= 0 {
		olderThan = 30 * time.Minute
	}
	if limit <= 0 {
		limit = 200
	}
	cutoff := u.now().Add(-olderThan)
	stale, err := u.purchases.ListPendingOlderThan(ctx, repository.NoTX, cutoff, limit)
	if err != nil {
		return 0, err
	}
	abandoned := 0
	for _, p := range stale {
		ok, err := u.purchases.FailIfPending(ctx, repository.NoTX, p.ID)
		if err != nil {
			u.log.Error().Err(err).Str("purchase_id", p.ID).Msg("abandon stale pending failed")
			continue
		}
		if !ok {
			continue // confirmed or failed in the meantime
		}
		abandoned++
		metrics.IncPurchase(string(model.PurchaseStatusFailed))
		u.emit("purchase.failed", p, "abandoned: no confirmation before cutoff")
	}
	return abandoned, nil
}

func (u *ledgerUC) FindByID(ctx context.Context, purchaseID string) (*model.Purchase, error) {
	if purchaseID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.purchases.FindByID(ctx, repository.NoTX, purchaseID)
}

func (u *ledgerUC) emit(evType string, p *model.Purchase, detail string) {
	if u.audit == nil || p == nil {
		return
	}
	u.audit.Emit(adapter.AuditEvent{
		Type:       evType,
		UserID:     p.UserID,
		PurchaseID: p.ID,
		ImageID:    p.ImageID,
		Amount:     p.Amount,
		Detail:     detail,
		At:         u.now(),
	})
}
