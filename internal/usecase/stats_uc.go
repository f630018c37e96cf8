// File: internal/usecase/stats_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"video-gate-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// StatsUseCase aggregates the counters the admin dashboard reads.
type StatsUseCase interface {
	Totals(ctx context.Context) (byStatus map[string]int, activeSubs int, err error)
	Revenue(ctx context.Context) (week int64, month int64, year int64, err error)
}

type statsUC struct {
	purchases repository.PurchaseRepository
	subs      repository.SubscriptionRepository

	log *zerolog.Logger
}

func NewStatsUseCase(purchases repository.PurchaseRepository, subs repository.SubscriptionRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{purchases: purchases, subs: subs, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (map[string]int, int, error) {
	byStatus, err := s.purchases.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, 0, err
	}
	active, err := s.subs.CountActive(ctx, repository.NoTX)
	if err != nil {
		return nil, 0, err
	}
	return byStatus, active, nil
}

func (s *statsUC) Revenue(ctx context.Context) (int64, int64, int64, error) {
	w, err := s.purchases.SumRevenueByPeriod(ctx, repository.NoTX, "week")
	if err != nil {
		return 0, 0, 0, err
	}
	m, err := s.purchases.SumRevenueByPeriod(ctx, repository.NoTX, "month")
	if err != nil {
		return 0, 0, 0, err
	}
	y, err := s.purchases.SumRevenueByPeriod(ctx, repository.NoTX, "year")
	if err != nil {
		return 0, 0, 0, err
	}
	return w, m, y, nil
}
