package handler

import (
	"net/http"

	"github.com/medflow/picking-service/pkg/database"
	"github.com/medflow/picking-service/pkg/httputil"
	"github.com/medflow/picking-service/pkg/messaging"
	"github.com/medflow/picking-service/pkg/resilience"
	"github.com/sony/gobreaker"
)

// Version is reported on /health and overridden at build time
var Version = "dev"

// HealthHandler reports service health. Any dependency may be nil when it is
// not configured for this deployment.
type HealthHandler struct {
	service string
	db      *database.DB
	rmq     *messaging.RabbitMQ
	breaker *resilience.CircuitBreaker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service string, db *database.DB, rmq *messaging.RabbitMQ, breaker *resilience.CircuitBreaker) *HealthHandler {
	return &HealthHandler{
		service: service,
		db:      db,
		rmq:     rmq,
		breaker: breaker,
	}
}

// Health returns the status of the service and its dependencies. The
// status is "degraded" while the database is down or the breaker is open.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	dbStatus := map[string]string{"status": "disabled"}
	if h.db != nil {
		dbStatus = h.db.Health(r.Context())
		if dbStatus["status"] != "up" {
			status = "degraded"
		}
	}

	rmqStatus := map[string]string{"status": "disabled"}
	if h.rmq != nil {
		rmqStatus = h.rmq.Health()
	}

	var breakerStatus map[string]interface{}
	if h.breaker != nil {
		breakerStatus = h.breaker.Status()
		if h.breaker.State() == gobreaker.StateOpen {
			status = "degraded"
		}
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"status":   status,
		"service":  h.service,
		"version":  Version,
		"modules":  []string{"wms"},
		"database": dbStatus,
		"rabbitmq": rmqStatus,
		"breaker":  breakerStatus,
	})
}
