package events

import "github.com/medflow/picking-service/internal/picking/domain"

// PlanRequested is the payload of an asynchronous plan request
type PlanRequested struct {
	TenantID   string `json:"tenant_id,omitempty"`
	TenantSlug string `json:"tenant_slug,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	domain.PickingRequest
}

// PlanGenerated is published after every successful plan
type PlanGenerated struct {
	TenantID             string              `json:"tenant_id,omitempty"`
	RequestID            string              `json:"request_id,omitempty"`
	BranchID             string              `json:"branch_id"`
	Stops                int                 `json:"stops"`
	EstimatedTimeSeconds int                 `json:"estimated_time_seconds"`
	ShortProductIDs      []string            `json:"short_product_ids"`
	Plan                 *domain.PickingPlan `json:"plan"`
}

// PlanRejected is published when an asynchronous request is invalid
type PlanRejected struct {
	TenantID  string            `json:"tenant_id,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	BranchID  string            `json:"branch_id,omitempty"`
	Reason    string            `json:"reason"`
	Details   map[string]string `json:"details,omitempty"`
}
