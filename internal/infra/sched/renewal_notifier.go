// File: internal/infra/sched/renewal_notifier.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"video-gate-platform/internal/domain/ports/adapter"
	"video-gate-platform/internal/domain/ports/repository"
)

// RenewalNotifier emits an audit event for every subscription approaching its
// end date. Downstream messaging consumes the audit stream; the engine itself
// never contacts users.
type RenewalNotifier struct {
	interval   time.Duration
	withinDays int
	subs       repository.SubscriptionRepository
	audit      adapter.AuditSink
	log        *zerolog.Logger

	notified map[string]time.Time // userID -> EndDate already announced
}

func NewRenewalNotifier(interval time.Duration, withinDays int, subs repository.SubscriptionRepository, audit adapter.AuditSink, logger *zerolog.Logger) *RenewalNotifier {
	if interval <= 0 {
		interval = time.Hour
	}
	if withinDays <= 0 {
		withinDays = 3
	}
	compLog := logger.With().Str("component", "RenewalNotifier").Logger()
	return &RenewalNotifier{
		interval:   interval,
		withinDays: withinDays,
		subs:       subs,
		audit:      audit,
		log:        &compLog,
		notified:   make(map[string]time.Time),
	}
}

func (w *RenewalNotifier) Run(ctx context.Context) error {
	w.log.Info().Int("within_days", w.withinDays).Msg("starting renewal notifier")
	// Run once on startup, then on every tick.
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping renewal notifier")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *RenewalNotifier) tick(ctx context.Context) {
	expiring, err := w.subs.FindExpiring(ctx, repository.NoTX, w.withinDays)
	if err != nil {
		w.log.Error().Err(err).Msg("renewal scan failed")
		return
	}
	announced := 0
	for _, sub := range expiring {
		if prev, ok := w.notified[sub.UserID]; ok && prev.Equal(sub.EndDate) {
			continue
		}
		w.notified[sub.UserID] = sub.EndDate
		w.audit.Emit(adapter.AuditEvent{
			Type:   "subscription.expiring",
			UserID: sub.UserID,
			Detail: "ends " + sub.EndDate.Format(time.RFC3339),
			At:     time.Now(),
		})
		announced++
	}
	if announced > 0 {
		w.log.Info().Int("count", announced).Msg("expiring subscriptions announced")
	}
}
