package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/medflow/picking-service/internal/picking/domain"
	"github.com/medflow/picking-service/internal/picking/events"
	"github.com/medflow/picking-service/pkg/errors"
	"github.com/medflow/picking-service/pkg/httputil"
	"github.com/medflow/picking-service/pkg/logger"
	"github.com/medflow/picking-service/pkg/metrics"
	"github.com/medflow/picking-service/pkg/tenant"
	"golang.org/x/sync/errgroup"
)

// DefaultLookupConcurrency bounds concurrent lot lookups when none is configured
const DefaultLookupConcurrency = 8

// LotFinder returns candidate lots for a product at a branch, sorted by
// expiry ascending, then zone name, then bin code. An empty result is not an error.
type LotFinder interface {
	FindLots(ctx context.Context, branchID, productID string) ([]domain.StockLot, error)
}

// Config tunes the plan service
type Config struct {
	PerPickSeconds    int
	LookupConcurrency int
}

// PlanService builds picking plans. Planning only reads stock: two plans
// built at the same time may allocate the same units.
type PlanService struct {
	finder    LotFinder
	cfg       Config
	publisher *events.PickingEventPublisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewPlanService creates a new plan service. publisher and m may be nil.
func NewPlanService(
	finder LotFinder,
	cfg Config,
	publisher *events.PickingEventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *PlanService {
	if cfg.PerPickSeconds <= 0 {
		cfg.PerPickSeconds = DefaultPerPickSeconds
	}
	if cfg.LookupConcurrency <= 0 {
		cfg.LookupConcurrency = DefaultLookupConcurrency
	}

	return &PlanService{
		finder:    finder,
		cfg:       cfg,
		publisher: publisher,
		metrics:   m,
		logger:    log.WithComponent("planner"),
	}
}

// PerPickSeconds returns the time charged per route stop
func (s *PlanService) PerPickSeconds() int {
	return s.cfg.PerPickSeconds
}

// BuildPlan allocates every requested item FEFO and merges the allocations
// into one walking route. Lines come back in request order. Shortage is
// reported per line; any lookup failure fails the whole plan.
func (s *PlanService) BuildPlan(ctx context.Context, source string, req domain.PickingRequest) (*domain.PickingPlan, error) {
	log := s.requestLogger(ctx)

	if err := checkRequest(req); err != nil {
		s.recordFailure(source, metrics.OutcomeInvalid)
		return nil, err
	}

	lots, err := s.lookup(ctx, log, req)
	if err != nil {
		if errors.IsClientError(err) {
			s.recordFailure(source, metrics.OutcomeInvalid)
		} else {
			s.recordFailure(source, metrics.OutcomeUnavailable)
		}
		return nil, err
	}

	plan := &domain.PickingPlan{
		BranchID: req.BranchID,
		Lines:    make([]domain.PickingLine, 0, len(req.Items)),
	}
	var tagged []domain.TaggedAllocation

	for i, item := range req.Items {
		line, err := Allocate(item.ProductID, item.Quantity, lots[i])
		if err != nil {
			log.Error().Err(err).Str("product_id", item.ProductID).Msg("stock lookup broke lot ordering contract")
			s.recordFailure(source, metrics.OutcomeError)
			return nil, errors.Wrap(err, "INTERNAL_ERROR", "an unexpected error occurred", http.StatusInternalServerError)
		}

		if line.Short() {
			log.Debug().
				Str("product_id", item.ProductID).
				Int("requested", item.Quantity).
				Int("picked", line.TotalPicked).
				Msg("insufficient stock")
		}

		for _, a := range line.Allocations {
			tagged = append(tagged, domain.TaggedAllocation{ProductID: item.ProductID, BinAllocation: a})
		}
		plan.Lines = append(plan.Lines, line)
	}

	plan.OptimizedRoute, plan.EstimatedTimeSeconds = Sequence(tagged, s.cfg.PerPickSeconds)

	shortages := len(plan.ShortProducts())
	log.Info().
		Str("branch_id", plan.BranchID).
		Str("source", source).
		Int("items", len(req.Items)).
		Int("stops", len(plan.OptimizedRoute)).
		Int("shortages", shortages).
		Int("estimated_time_seconds", plan.EstimatedTimeSeconds).
		Msg("picking plan built")

	if s.metrics != nil {
		s.metrics.RecordPlan(source, len(plan.OptimizedRoute), shortages)
	}

	tenantID, _ := tenant.TenantID(ctx)
	s.publisher.PublishPlanGenerated(ctx, tenantID, httputil.GetRequestID(ctx), plan)

	return plan, nil
}

// lookup fetches lots for every item concurrently; result i belongs to item i
func (s *PlanService) lookup(ctx context.Context, log *logger.Logger, req domain.PickingRequest) ([][]domain.StockLot, error) {
	results := make([][]domain.StockLot, len(req.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.LookupConcurrency)

	for i, item := range req.Items {
		i, item := i, item
		g.Go(func() error {
			start := time.Now()
			lots, err := s.finder.FindLots(gctx, req.BranchID, item.ProductID)
			s.recordLookup(err, time.Since(start))
			if err != nil {
				// Siblings cancelled after the first failure are not worth logging
				if gctx.Err() == nil || ctx.Err() != nil {
					log.Error().Err(err).Str("product_id", item.ProductID).Msg("stock lookup failed")
				}
				return lookupError(ctx, err)
			}
			results[i] = lots
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// lookupError maps a lookup failure onto the error taxonomy. Errors already
// classified by the store keep their classification.
func lookupError(ctx context.Context, err error) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch ctx.Err() {
	case context.DeadlineExceeded:
		return errors.Unavailable("stock lookup timed out", err)
	case context.Canceled:
		return errors.Unavailable("request cancelled", err)
	}
	return errors.Unavailable("stock lookup unavailable", err)
}

// checkRequest rejects requests the allocator cannot run on
func checkRequest(req domain.PickingRequest) error {
	details := map[string]string{}
	if req.BranchID == "" {
		details["branch_id"] = "this field is required"
	}
	if len(req.Items) == 0 {
		details["items"] = "must contain at least 1 item(s)"
	}
	for i, item := range req.Items {
		if item.ProductID == "" {
			details[itemField(i, "product_id")] = "this field is required"
		}
		if item.Quantity <= 0 {
			details[itemField(i, "quantity")] = "must be greater than 0"
		}
	}

	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

func itemField(i int, field string) string {
	return fmt.Sprintf("items[%d].%s", i, field)
}

func (s *PlanService) requestLogger(ctx context.Context) *logger.Logger {
	log := s.logger
	if id := httputil.GetRequestID(ctx); id != "" {
		log = log.WithRequestID(id)
	}
	if id, err := tenant.TenantID(ctx); err == nil {
		log = log.WithTenantID(id)
	}
	return log
}

func (s *PlanService) recordFailure(source, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordPlanFailure(source, outcome)
	}
}

func (s *PlanService) recordLookup(err error, d time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeUnavailable
	}
	s.metrics.RecordStockLookup(outcome, d)
}
