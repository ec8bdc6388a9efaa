package handler

import (
	"net/http"

	"github.com/medflow/picking-service/internal/picking/domain"
	"github.com/medflow/picking-service/internal/picking/service"
	"github.com/medflow/picking-service/pkg/errors"
	"github.com/medflow/picking-service/pkg/httputil"
	"github.com/medflow/picking-service/pkg/logger"
	"github.com/medflow/picking-service/pkg/metrics"
)

// PickingHandler handles picking plan endpoints
type PickingHandler struct {
	svc    *service.PlanService
	logger *logger.Logger
}

// NewPickingHandler creates a new picking handler
func NewPickingHandler(svc *service.PlanService, log *logger.Logger) *PickingHandler {
	return &PickingHandler{
		svc:    svc,
		logger: log,
	}
}

// OptimizeRoute builds a FEFO picking plan and walking route for the requested items
func (h *PickingHandler) OptimizeRoute(w http.ResponseWriter, r *http.Request) {
	var req domain.PickingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	plan, err := h.svc.BuildPlan(r.Context(), metrics.SourceHTTP, req)
	if err != nil {
		if !errors.IsClientError(err) {
			h.logger.Error().
				Err(err).
				Str("request_id", httputil.GetRequestID(r.Context())).
				Str("branch_id", req.BranchID).
				Msg("failed to build picking plan")
		}
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, plan)
}
