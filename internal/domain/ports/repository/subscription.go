package repository

import (
	"context"

	"video-gate-platform/internal/domain/model"
)

// SubscriptionRepository reads the externally-owned entitlement records.
// Upsert exists for admin tooling and seeding only.
type SubscriptionRepository interface {
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	Upsert(ctx context.Context, tx Tx, sub *model.Subscription) error
	CountActive(ctx context.Context, tx Tx) (int, error)
	FindExpiring(ctx context.Context, tx Tx, withinDays int) ([]*model.Subscription, error)
}
