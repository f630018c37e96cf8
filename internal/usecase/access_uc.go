// File: internal/usecase/access_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"video-gate-platform/internal/domain"
	"video-gate-platform/internal/domain/model"
	"video-gate-platform/internal/domain/ports/repository"
	"video-gate-platform/internal/infra/metrics"
)

// Compile-time check
var _ AccessUseCase = (*accessUC)(nil)

// AccessUseCase answers "can user U see image A right now". It is
// side-effect free and safe to call on every page render; all mutation goes
// through the ledger.
type AccessUseCase interface {
	HasAccess(ctx context.Context, userID, imageID string) (model.AccessDecision, error)
	// SignedAccessURL resolves the gated image and returns a signed URL the
	// client can fetch it from, failing with ErrAccessDenied otherwise.
	SignedAccessURL(ctx context.Context, userID, imageID string) (string, *time.Time, error)
}

// URLSigner mints expiring fetch URLs for gated assets. Signing itself is a
// storage concern; the access service only gates the decision.
type URLSigner interface {
	Sign(rawURL string, expiresAt time.Time) (string, error)
}

// GrantRecorder appends the zero-amount ledger record for a subscriber view.
type GrantRecorder interface {
	GrantViaSubscription(ctx context.Context, userID, videoID, imageID string) (*model.Purchase, error)
}

type accessUC struct {
	subs      repository.SubscriptionRepository
	purchases repository.PurchaseRepository
	assets    repository.AssetRepository
	signer    URLSigner
	grants    GrantRecorder
	urlTTL    time.Duration
	log       *zerolog.Logger

	now func() time.Time
}

func NewAccessUseCase(
	subs repository.SubscriptionRepository,
	purchases repository.PurchaseRepository,
	assets repository.AssetRepository,
	signer URLSigner,
	urlTTL time.Duration,
	logger *zerolog.Logger,
) *accessUC {
	if urlTTL <= 0 {
		urlTTL = 5 * time.Minute
	}
	l := logger.With().Str("component", "AccessUC").Logger()
	return &accessUC{
		subs:      subs,
		purchases: purchases,
		assets:    assets,
		signer:    signer,
		urlTTL:    urlTTL,
		log:       &l,
		now:       time.Now,
	}
}

// RecordSubscriptionGrants wires the ledger in after construction; the ledger
// itself evaluates Decide inside its initiate transaction, so the hook cannot
// be a constructor argument.
func (u *accessUC) RecordSubscriptionGrants(rec GrantRecorder) { u.grants = rec }

func (u *accessUC) HasAccess(ctx context.Context, userID, imageID string) (model.AccessDecision, error) {
	d, err := u.Decide(ctx, repository.NoTX, userID, imageID)
	if err != nil {
		return d, err
	}
	metrics.IncAccessCheck(d.Granted, string(d.Reason))
	return d, nil
}

// Decide runs the layered authorization rule: subscription first, then the
// most recent completed purchase with expiry recomputed at read time.
// Exported so the ledger can evaluate the same rule inside its initiate
// transaction.
func (u *accessUC) Decide(ctx context.Context, tx repository.Tx, userID, imageID string) (model.AccessDecision, error) {
	if userID == "" || imageID == "" {
		return model.AccessDecision{}, domain.ErrInvalidArgument
	}
	now := u.now()

	sub, err := u.subs.FindByUser(ctx, tx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return model.AccessDecision{}, err
	}
	if err == nil && sub.Satisfies(now) {
		return model.AccessDecision{Granted: true, Reason: model.AccessReasonSubscription}, nil
	}

	p, err := u.purchases.FindLatestGrant(ctx, tx, userID, imageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.AccessDecision{Granted: false, Reason: model.AccessReasonNoActiveGrant}, nil
		}
		return model.AccessDecision{}, err
	}
	if p.AccessGranted(now) {
		return model.AccessDecision{Granted: true, Reason: model.AccessReasonOneTime, ExpiresAt: p.ExpiresAt}, nil
	}
	if p.Status == model.PurchaseStatusRefunded {
		return model.AccessDecision{Granted: false, Reason: model.AccessReasonRefunded}, nil
	}
	// A completed-but-expired record exists: "expired", not "never purchased".
	return model.AccessDecision{Granted: false, Reason: model.AccessReasonExpired}, nil
}

func (u *accessUC) SignedAccessURL(ctx context.Context, userID, imageID string) (string, *time.Time, error) {
	d, err := u.HasAccess(ctx, userID, imageID)
	if err != nil {
		return "", nil, err
	}
	if !d.Granted {
		return "", nil, &domain.AccessDeniedError{Reason: string(d.Reason)}
	}

	img, err := u.assets.FindImageByID(ctx, repository.NoTX, imageID)
	if err != nil {
		return "", nil, err
	}

	// A subscriber view is served from the live subscription, but the ledger
	// keeps a zero-amount record of it so the audit trail stays uniform.
	if d.Reason == model.AccessReasonSubscription && u.grants != nil {
		if _, gerr := u.grants.GrantViaSubscription(ctx, userID, img.VideoID, imageID); gerr != nil {
			u.log.Warn().Err(gerr).Str("user_id", userID).Str("image_id", imageID).
				Msg("subscription grant record failed")
		}
	}

	expiresAt := u.now().Add(u.urlTTL)
	if d.ExpiresAt != nil && d.ExpiresAt.Before(expiresAt) {
		expiresAt = *d.ExpiresAt
	}
	signed, err := u.signer.Sign(img.URL, expiresAt)
	if err != nil {
		return "", nil, err
	}
	return signed, &expiresAt, nil
}
