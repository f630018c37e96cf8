package adapter

import "time"

// AuditEvent describes one ledger state transition.
type AuditEvent struct {
	Type       string // purchase.initiated | purchase.completed | purchase.failed | purchase.refunded | purchase.expired
	UserID     string
	PurchaseID string
	ImageID    string
	Amount     int64
	Detail     string
	At         time.Time
}

// AuditSink is the fire-and-forget side channel for ledger transitions.
// Emit must never block and its failure must never affect ledger state.
type AuditSink interface {
	Emit(ev AuditEvent)
}
