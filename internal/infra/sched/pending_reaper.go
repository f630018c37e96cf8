// File: internal/infra/sched/pending_reaper.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"video-gate-platform/internal/usecase"
)

// PendingReaper periodically fails pending purchases whose checkout was
// abandoned, covering the cases where the confirmation callback was never
// delivered or the process crashed mid-checkout. Failing the stale record
// lets the user initiate the pair again.
type PendingReaper struct {
	interval   time.Duration
	staleAfter time.Duration
	ledger     usecase.LedgerUseCase
	log        *zerolog.Logger
}

func NewPendingReaper(interval, staleAfter time.Duration, ledger usecase.LedgerUseCase, logger *zerolog.Logger) *PendingReaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	compLog := logger.With().Str("component", "PendingReaper").Logger()
	return &PendingReaper{
		interval:   interval,
		staleAfter: staleAfter,
		ledger:     ledger,
		log:        &compLog,
	}
}

func (w *PendingReaper) Run(ctx context.Context) error {
	w.log.Info().Dur("stale_after", w.staleAfter).Msg("starting pending reaper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping pending reaper")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.ledger.AbandonStalePending(ctx, w.staleAfter, 200)
			if err != nil {
				w.log.Error().Err(err).Msg("pending reaper error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("abandoned pending purchases failed")
			}
		}
	}
}
