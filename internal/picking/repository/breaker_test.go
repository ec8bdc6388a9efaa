package repository

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/medflow/picking-service/internal/picking/domain"
	"github.com/medflow/picking-service/pkg/errors"
	"github.com/medflow/picking-service/pkg/logger"
	"github.com/medflow/picking-service/pkg/resilience"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFinder struct {
	err   error
	calls atomic.Int32
}

func (s *stubFinder) FindLots(ctx context.Context, branchID, productID string) ([]domain.StockLot, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return []domain.StockLot{{BatchID: "b1", Quantity: 1, ExpiryDate: domain.MustParseDate("2025-01-01")}}, nil
}

func breakerConfig() resilience.Config {
	cfg := resilience.DefaultConfig("")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	return cfg
}

func TestBreakerLotFinder_PassesThrough(t *testing.T) {
	next := &stubFinder{}
	f := NewBreakerLotFinder(next, breakerConfig(), logger.Nop())

	lots, err := f.FindLots(context.Background(), "branch", "product")

	require.NoError(t, err)
	assert.Len(t, lots, 1)
	assert.Equal(t, BreakerName, f.Breaker().Name())
}

func TestBreakerLotFinder_OpensAfterStoreFailures(t *testing.T) {
	next := &stubFinder{err: fmt.Errorf("connection refused")}
	f := NewBreakerLotFinder(next, breakerConfig(), logger.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.FindLots(ctx, "branch", "product")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, f.Breaker().State())

	_, err := f.FindLots(ctx, "branch", "product")

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusServiceUnavailable, appErr.StatusCode)
	assert.Equal(t, "stock lookup unavailable", appErr.Message)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestBreakerLotFinder_IgnoresCallerErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "bad request", err: errors.BadRequest("malformed identifier")},
		{name: "cancelled", err: fmt.Errorf("query: %w", context.Canceled)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &stubFinder{err: tt.err}
			f := NewBreakerLotFinder(next, breakerConfig(), logger.Nop())

			for i := 0; i < 5; i++ {
				_, err := f.FindLots(context.Background(), "branch", "product")
				assert.ErrorIs(t, err, tt.err)
			}
			assert.Equal(t, gobreaker.StateClosed, f.Breaker().State())
			assert.Equal(t, int32(5), next.calls.Load())
		})
	}
}
