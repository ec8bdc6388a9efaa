package events

import (
	"context"

	"github.com/medflow/picking-service/internal/picking/domain"
	"github.com/medflow/picking-service/pkg/logger"
	"github.com/medflow/picking-service/pkg/messaging"
)

// ServiceName is the event source of everything this service publishes
const ServiceName = "picking-service"

// PickingEventPublisher publishes picking plan events.
// A nil publisher is valid and publishes nothing.
type PickingEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewPickingEventPublisher creates a publisher on the WMS events exchange
func NewPickingEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*PickingEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeWMSEvents, ServiceName, log)
	if err != nil {
		return nil, err
	}

	return NewPickingEventPublisherWith(publisher, log), nil
}

// NewPickingEventPublisherWith wraps an existing event publisher
func NewPickingEventPublisherWith(publisher messaging.EventPublisher, log *logger.Logger) *PickingEventPublisher {
	return &PickingEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishPlanGenerated publishes a plan generated event. Failures are logged only.
func (p *PickingEventPublisher) PublishPlanGenerated(ctx context.Context, tenantID, requestID string, plan *domain.PickingPlan) {
	if p == nil {
		return
	}

	data := PlanGenerated{
		TenantID:             tenantID,
		RequestID:            requestID,
		BranchID:             plan.BranchID,
		Stops:                len(plan.OptimizedRoute),
		EstimatedTimeSeconds: plan.EstimatedTimeSeconds,
		ShortProductIDs:      plan.ShortProducts(),
		Plan:                 plan,
	}
	if data.ShortProductIDs == nil {
		data.ShortProductIDs = []string{}
	}

	if err := p.publisher.Publish(ctx, messaging.EventPickingPlanGenerated, data); err != nil {
		p.logger.Error().Err(err).Str("branch_id", plan.BranchID).Msg("failed to publish plan generated event")
	}
}

// PublishPlanRejected publishes a plan rejected event. Failures are logged only.
func (p *PickingEventPublisher) PublishPlanRejected(ctx context.Context, rejected PlanRejected) {
	if p == nil {
		return
	}

	if err := p.publisher.Publish(ctx, messaging.EventPickingPlanRejected, rejected); err != nil {
		p.logger.Error().Err(err).Str("request_id", rejected.RequestID).Msg("failed to publish plan rejected event")
	}
}
