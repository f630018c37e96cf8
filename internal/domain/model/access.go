package model

import "time"

// AccessReason explains the outcome of an access check.
type AccessReason string

const (
	AccessReasonSubscription  AccessReason = "subscription"
	AccessReasonOneTime       AccessReason = "one-time-purchase"
	AccessReasonNoActiveGrant AccessReason = "no-active-grant"
	AccessReasonExpired       AccessReason = "expired"
	AccessReasonRefunded      AccessReason = "refunded"
)

// AccessDecision is the answer to "can this user see this image right now".
// ExpiresAt is set only for time-boxed one-time purchases.
type AccessDecision struct {
	Granted   bool
	Reason    AccessReason
	ExpiresAt *time.Time
}
