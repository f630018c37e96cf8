// File: internal/infra/sched/expiry_worker.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"video-gate-platform/internal/usecase"
)

// ExpiryWorker periodically relabels purchases whose access window has
// passed. Access decisions never depend on it; it only keeps the ledger's
// reporting columns honest.
type ExpiryWorker struct {
	interval time.Duration
	batch    int
	ledger   usecase.LedgerUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, batch int, ledger usecase.LedgerUseCase, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	compLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		batch:    batch,
		ledger:   ledger,
		log:      &compLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.ledger.SweepExpired(ctx, w.batch)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry sweep error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("purchases relabeled as expired")
			}
		}
	}
}
