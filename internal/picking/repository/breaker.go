package repository

import (
	"context"
	"errors"

	"github.com/medflow/picking-service/internal/picking/domain"
	"github.com/medflow/picking-service/internal/picking/service"
	apperrors "github.com/medflow/picking-service/pkg/errors"
	"github.com/medflow/picking-service/pkg/logger"
	"github.com/medflow/picking-service/pkg/resilience"
)

// BreakerName names the breaker guarding the stock store
const BreakerName = "stock-lookup"

// BreakerLotFinder sends lookups through a circuit breaker so a failing
// store is answered fast instead of being hit once per item
type BreakerLotFinder struct {
	next service.LotFinder
	cb   *resilience.CircuitBreaker
}

// NewBreakerLotFinder wraps next. Caller mistakes and cancelled requests do
// not count against the breaker.
func NewBreakerLotFinder(next service.LotFinder, cfg resilience.Config, log *logger.Logger) *BreakerLotFinder {
	if cfg.Name == "" {
		cfg.Name = BreakerName
	}
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || apperrors.IsClientError(err) || errors.Is(err, context.Canceled)
	}

	return &BreakerLotFinder{
		next: next,
		cb:   resilience.NewCircuitBreaker(cfg, log),
	}
}

// FindLots implements service.LotFinder
func (f *BreakerLotFinder) FindLots(ctx context.Context, branchID, productID string) ([]domain.StockLot, error) {
	lots, err := resilience.Execute(ctx, f.cb, func(ctx context.Context) ([]domain.StockLot, error) {
		return f.next.FindLots(ctx, branchID, productID)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, apperrors.Unavailable("stock lookup unavailable", err)
	}
	return lots, err
}

// Breaker exposes the breaker for health reporting
func (f *BreakerLotFinder) Breaker() *resilience.CircuitBreaker {
	return f.cb
}
