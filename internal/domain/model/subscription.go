package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
)

// Subscription is the standing entitlement record consumed by the access
// engine. It is owned by the account system; this engine only reads it.
type Subscription struct {
	ID        string
	UserID    string
	Plan      string
	Status    SubscriptionStatus
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Satisfies reports whether the subscription grants access at the given
// instant. An active subscription overrides any one-time purchase state.
func (s *Subscription) Satisfies(now time.Time) bool {
	return s != nil && s.Status == SubscriptionStatusActive && now.Before(s.EndDate)
}

func (s *Subscription) IsZero() bool { return s == nil || s.ID == "" }
