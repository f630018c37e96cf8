//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"video-gate-platform/internal/domain"
)

// --- Purchase Model Tests ---

func TestPurchaseAccessGranted(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(5 * time.Minute)

	t.Run("completed gateway purchase inside window", func(t *testing.T) {
		p := &Purchase{Status: PurchaseStatusCompleted, Method: PaymentMethodGateway, ExpiresAt: &exp}
		if !p.AccessGranted(now) {
			t.Error("expected access inside window")
		}
		if !p.AccessGranted(exp.Add(-time.Nanosecond)) {
			t.Error("expected access right up to the expiry instant")
		}
	})

	t.Run("window boundary is exclusive", func(t *testing.T) {
		p := &Purchase{Status: PurchaseStatusCompleted, Method: PaymentMethodGateway, ExpiresAt: &exp}
		if p.AccessGranted(exp) {
			t.Error("expected no access exactly at expiry")
		}
		if p.AccessGranted(exp.Add(time.Second)) {
			t.Error("expected no access past expiry")
		}
	})

	t.Run("subscription grant never expires", func(t *testing.T) {
		p := &Purchase{Status: PurchaseStatusCompleted, Method: PaymentMethodSubscription}
		if !p.AccessGranted(now.AddDate(1, 0, 0)) {
			t.Error("expected subscription grant to hold indefinitely")
		}
	})

	t.Run("non-completed statuses never grant", func(t *testing.T) {
		for _, status := range []PurchaseStatus{
			PurchaseStatusPending, PurchaseStatusFailed, PurchaseStatusRefunded, PurchaseStatusExpired,
		} {
			p := &Purchase{Status: status, Method: PaymentMethodGateway, ExpiresAt: &exp}
			if p.AccessGranted(now) {
				t.Errorf("status %s must not grant access", status)
			}
		}
	})

	t.Run("completed without expiry does not grant", func(t *testing.T) {
		p := &Purchase{Status: PurchaseStatusCompleted, Method: PaymentMethodGateway}
		if p.AccessGranted(now) {
			t.Error("gateway purchase without a window must not grant access")
		}
	})
}

func TestPurchaseComplete(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("should transition pending to completed", func(t *testing.T) {
		p := &Purchase{Status: PurchaseStatusPending, Method: PaymentMethodGateway}
		if err := p.Complete("pay-1", "sig-1", now, 5*time.Minute); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if p.Status != PurchaseStatusCompleted {
			t.Errorf("expected status completed, got %s", p.Status)
		}
		if p.PaymentRef == nil || *p.PaymentRef != "pay-1" {
			t.Errorf("expected payment ref to be stamped, got %v", p.PaymentRef)
		}
		want := now.Add(5 * time.Minute)
		if p.ExpiresAt == nil || !p.ExpiresAt.Equal(want) {
			t.Errorf("expected expiry %v, got %v", want, p.ExpiresAt)
		}
		if !p.UpdatedAt.Equal(now) {
			t.Errorf("expected updated_at %v, got %v", now, p.UpdatedAt)
		}
	})

	t.Run("should reject completion from any other status", func(t *testing.T) {
		for _, status := range []PurchaseStatus{
			PurchaseStatusCompleted, PurchaseStatusFailed, PurchaseStatusRefunded, PurchaseStatusExpired,
		} {
			p := &Purchase{Status: status}
			if err := p.Complete("pay-1", "sig-1", now, 5*time.Minute); !errors.Is(err, domain.ErrInvalidState) {
				t.Errorf("status %s: expected ErrInvalidState, got %v", status, err)
			}
		}
	})
}

// --- Subscription Model Tests ---

func TestSubscriptionSatisfies(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("active and not yet ended", func(t *testing.T) {
		s := &Subscription{Status: SubscriptionStatusActive, EndDate: now.Add(time.Hour)}
		if !s.Satisfies(now) {
			t.Error("expected active subscription to satisfy")
		}
	})

	t.Run("end date is exclusive", func(t *testing.T) {
		s := &Subscription{Status: SubscriptionStatusActive, EndDate: now}
		if s.Satisfies(now) {
			t.Error("expected no access exactly at end date")
		}
	})

	t.Run("inactive statuses never satisfy", func(t *testing.T) {
		for _, status := range []SubscriptionStatus{
			SubscriptionStatusCancelled, SubscriptionStatusExpired, SubscriptionStatusPaused,
		} {
			s := &Subscription{Status: status, EndDate: now.Add(time.Hour)}
			if s.Satisfies(now) {
				t.Errorf("status %s must not satisfy", status)
			}
		}
	})

	t.Run("nil subscription does not satisfy", func(t *testing.T) {
		var s *Subscription
		if s.Satisfies(now) {
			t.Error("expected nil subscription to not satisfy")
		}
	})
}

// --- Zero-value helpers ---

func TestIsZero(t *testing.T) {
	if !(&Purchase{}).IsZero() || !(&Subscription{}).IsZero() || !(&GatedImage{}).IsZero() {
		t.Error("expected empty records to be zero")
	}
	var p *Purchase
	if !p.IsZero() {
		t.Error("expected nil purchase to be zero")
	}
	if (&Purchase{ID: "p-1"}).IsZero() {
		t.Error("expected identified purchase to be non-zero")
	}
}
