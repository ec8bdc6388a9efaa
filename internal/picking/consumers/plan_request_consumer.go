package consumers

import (
	"context"
	"time"

	"github.com/medflow/picking-service/internal/picking/events"
	"github.com/medflow/picking-service/internal/picking/service"
	"github.com/medflow/picking-service/pkg/errors"
	"github.com/medflow/picking-service/pkg/httputil"
	"github.com/medflow/picking-service/pkg/logger"
	"github.com/medflow/picking-service/pkg/messaging"
	"github.com/medflow/picking-service/pkg/metrics"
	"github.com/medflow/picking-service/pkg/tenant"
)

// PlanRequestQueue receives asynchronous plan requests
const PlanRequestQueue = "picking-service.plan-requests"

// PlanRequestConsumer builds plans for requests arriving on the WMS exchange.
// Generated plans go out through the plan service's publisher.
type PlanRequestConsumer struct {
	consumer  *messaging.Consumer
	planner   *service.PlanService
	publisher *events.PickingEventPublisher
	timeout   time.Duration
	logger    *logger.Logger
}

// NewPlanRequestConsumer declares the plan request queue and binds it.
// timeout bounds each plan; zero means no limit beyond the broker's.
func NewPlanRequestConsumer(
	rmq *messaging.RabbitMQ,
	planner *service.PlanService,
	publisher *events.PickingEventPublisher,
	timeout time.Duration,
	log *logger.Logger,
) (*PlanRequestConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, PlanRequestQueue, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeWMSEvents, messaging.EventPickingPlanRequested); err != nil {
		return nil, err
	}

	c := newPlanRequestConsumer(planner, publisher, timeout, log)
	c.consumer = consumer
	consumer.RegisterHandler(messaging.EventPickingPlanRequested, c.handlePlanRequested)

	return c, nil
}

func newPlanRequestConsumer(planner *service.PlanService, publisher *events.PickingEventPublisher, timeout time.Duration, log *logger.Logger) *PlanRequestConsumer {
	return &PlanRequestConsumer{
		planner:   planner,
		publisher: publisher,
		timeout:   timeout,
		logger:    log.WithComponent("plan-request-consumer"),
	}
}

// Start starts consuming messages. It is also the reconnect hook: a new
// broker channel needs a new consume call.
func (c *PlanRequestConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// handlePlanRequested returns an error only when a retry could succeed.
// Requests that can never be planned are answered with a rejected event and acked.
func (c *PlanRequestConsumer) handlePlanRequested(ctx context.Context, event *messaging.Event) error {
	var req events.PlanRequested
	if err := event.UnmarshalData(&req); err != nil {
		c.logger.Warn().Err(err).Str("event_id", event.ID).Msg("malformed plan request")
		c.publisher.PublishPlanRejected(ctx, events.PlanRejected{
			RequestID: event.ID,
			Reason:    "malformed plan request",
		})
		return nil
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = event.ID
	}
	ctx = httputil.ContextWithRequestID(ctx, requestID)
	if req.TenantID != "" {
		ctx = tenant.WithTenantContext(ctx, req.TenantID, req.TenantSlug)
	}

	log := c.logger.WithRequestID(requestID)
	if req.TenantID != "" {
		log = log.WithTenantID(req.TenantID)
	}

	if err := httputil.Validate(&req.PickingRequest); err != nil {
		c.reject(ctx, log, req, err)
		return nil
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	plan, err := c.planner.BuildPlan(ctx, metrics.SourceQueue, req.PickingRequest)
	if err != nil {
		if errors.IsClientError(err) {
			c.reject(ctx, log, req, err)
			return nil
		}
		return err
	}

	log.Info().
		Str("branch_id", plan.BranchID).
		Int("stops", len(plan.OptimizedRoute)).
		Msg("plan request completed")

	return nil
}

func (c *PlanRequestConsumer) reject(ctx context.Context, log *logger.Logger, req events.PlanRequested, err error) {
	rejected := events.PlanRejected{
		TenantID:  req.TenantID,
		RequestID: httputil.GetRequestID(ctx),
		BranchID:  req.BranchID,
		Reason:    err.Error(),
	}

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		rejected.Reason = appErr.Message
		rejected.Details = appErr.Details
	}

	log.Warn().Str("reason", rejected.Reason).Msg("plan request rejected")
	c.publisher.PublishPlanRejected(ctx, rejected)
}
