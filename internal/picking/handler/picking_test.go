package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/picking-service/internal/picking/domain"
	"github.com/medflow/picking-service/internal/picking/handler"
	"github.com/medflow/picking-service/internal/picking/repository"
	"github.com/medflow/picking-service/internal/picking/service"
	"github.com/medflow/picking-service/pkg/httputil"
	"github.com/medflow/picking-service/pkg/logger"
	"github.com/medflow/picking-service/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tenantID    = "4f1b2c3d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"
	branchID    = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	amoxicillin = "11111111-1111-4111-8111-111111111111"
	ibuprofen   = "22222222-2222-4222-8222-222222222222"
)

const seed = `
lots:
  - branch_id: 7c9e6679-7425-40de-944b-e07fc1f90ae7
    product_id: 11111111-1111-4111-8111-111111111111
    batch_id: amox-late
    bin_id: bin-b1
    bin_code: B1
    zone_name: Ambient
    quantity: 20
    expiry_date: 2025-06-01
  - branch_id: 7c9e6679-7425-40de-944b-e07fc1f90ae7
    product_id: 11111111-1111-4111-8111-111111111111
    batch_id: amox-early
    bin_id: bin-a1
    bin_code: A1
    zone_name: Ambient
    quantity: 5
    expiry_date: 2025-01-01
  - branch_id: 7c9e6679-7425-40de-944b-e07fc1f90ae7
    product_id: 22222222-2222-4222-8222-222222222222
    batch_id: ibu-bulk
    quantity: 3
    expiry_date: 2025-03-01
`

type envelope struct {
	Success bool                `json:"success"`
	Data    *domain.PickingPlan `json:"data"`
	Error   *httputil.ErrorBody `json:"error"`
}

func newRouter(t *testing.T, finder service.LotFinder) http.Handler {
	t.Helper()
	log := logger.Nop()
	svc := service.NewPlanService(finder, service.Config{PerPickSeconds: 15}, nil, nil, log)
	h := handler.NewPickingHandler(svc, log)

	r := chi.NewRouter()
	r.Use(httputil.RequestID)
	r.Use(httputil.TenantMiddleware)
	r.Post("/api/v1/wms/optimize-route", h.OptimizeRoute)
	return r
}

func seededRouter(t *testing.T) http.Handler {
	t.Helper()
	repo, err := repository.ParseSeed([]byte(seed))
	require.NoError(t, err)
	return newRouter(t, repo)
}

func optimize(t *testing.T, router http.Handler, body interface{}) (*envelope, int) {
	t.Helper()
	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/wms/optimize-route", body)
	req = testutil.WithTenantHeaders(req, tenantID, "pharmacy-one")
	rr := testutil.ExecuteRequest(router, req)

	var resp envelope
	testutil.ParseJSONBody(t, rr, &resp)
	return &resp, rr.Code
}

func TestOptimizeRoute_Success(t *testing.T) {
	resp, status := optimize(t, seededRouter(t), map[string]interface{}{
		"branch_id": branchID,
		"items": []map[string]interface{}{
			{"product_id": amoxicillin, "quantity": 8},
			{"product_id": ibuprofen, "quantity": 5},
		},
	})

	require.Equal(t, http.StatusOK, status)
	require.True(t, resp.Success)
	plan := resp.Data
	require.NotNil(t, plan)

	assert.Equal(t, branchID, plan.BranchID)
	require.Len(t, plan.Lines, 2)
	assert.Equal(t, amoxicillin, plan.Lines[0].ProductID)
	assert.Equal(t, 8, plan.Lines[0].TotalPicked)
	require.Len(t, plan.Lines[0].Allocations, 2)
	assert.Equal(t, "amox-early", plan.Lines[0].Allocations[0].BatchID)
	assert.Equal(t, 5, plan.Lines[0].Allocations[0].Quantity)
	assert.Equal(t, "2025-01-01", plan.Lines[0].Allocations[0].ExpiryDate.String())
	assert.Equal(t, 3, plan.Lines[0].Allocations[1].Quantity)

	assert.Equal(t, ibuprofen, plan.Lines[1].ProductID)
	assert.Equal(t, 3, plan.Lines[1].TotalPicked)
	assert.Nil(t, plan.Lines[1].Allocations[0].BinCode)

	require.Len(t, plan.OptimizedRoute, 3)
	var order []string
	for _, stop := range plan.OptimizedRoute {
		order = append(order, stop.ZoneName+"/"+stop.BinCode)
	}
	assert.Equal(t, []string{"Ambient/A1", "Ambient/B1", "DEFAULT/BULK"}, order)
	assert.Equal(t, 45, plan.EstimatedTimeSeconds)
}

func TestOptimizeRoute_WireFormat(t *testing.T) {
	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/wms/optimize-route", map[string]interface{}{
		"branch_id": branchID,
		"items":     []map[string]interface{}{{"product_id": ibuprofen, "quantity": 1}},
	})
	rr := testutil.ExecuteRequest(seededRouter(t), testutil.WithTenantHeaders(req, tenantID, ""))

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, `{
		"success": true,
		"data": {
			"branch_id": "7c9e6679-7425-40de-944b-e07fc1f90ae7",
			"lines": [{
				"product_id": "22222222-2222-4222-8222-222222222222",
				"requested_quantity": 1,
				"allocations": [{
					"batch_id": "ibu-bulk",
					"bin_id": null,
					"bin_code": null,
					"zone_name": null,
					"quantity": 1,
					"expiry_date": "2025-03-01"
				}],
				"total_picked": 1
			}],
			"optimized_route": [{
				"sequence": 1,
				"zone_name": "DEFAULT",
				"bin_code": "BULK",
				"batch_id": "ibu-bulk",
				"product_id": "22222222-2222-4222-8222-222222222222",
				"quantity": 1
			}],
			"estimated_time_seconds": 15
		}
	}`, rr.Body.String())
}

func TestOptimizeRoute_UnknownProductIsEmptyLine(t *testing.T) {
	resp, status := optimize(t, seededRouter(t), map[string]interface{}{
		"branch_id": branchID,
		"items":     []map[string]interface{}{{"product_id": "33333333-3333-4333-8333-333333333333", "quantity": 4}},
	})

	require.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Data.Lines, 1)
	assert.Empty(t, resp.Data.Lines[0].Allocations)
	assert.Zero(t, resp.Data.Lines[0].TotalPicked)
	assert.Empty(t, resp.Data.OptimizedRoute)
	assert.Zero(t, resp.Data.EstimatedTimeSeconds)
}

func TestOptimizeRoute_Validation(t *testing.T) {
	tests := []struct {
		name        string
		body        interface{}
		wantStatus  int
		wantCode    string
		wantDetails map[string]string
	}{
		{
			name:       "malformed json",
			body:       `{"branch_id":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name: "zero quantity",
			body: map[string]interface{}{
				"branch_id": branchID,
				"items":     []map[string]interface{}{{"product_id": amoxicillin, "quantity": 0}},
			},
			wantStatus:  http.StatusBadRequest,
			wantCode:    "VALIDATION_ERROR",
			wantDetails: map[string]string{"items[0].quantity": "must be greater than 0"},
		},
		{
			name: "negative quantity on second item",
			body: map[string]interface{}{
				"branch_id": branchID,
				"items": []map[string]interface{}{
					{"product_id": amoxicillin, "quantity": 1},
					{"product_id": ibuprofen, "quantity": -2},
				},
			},
			wantStatus:  http.StatusBadRequest,
			wantCode:    "VALIDATION_ERROR",
			wantDetails: map[string]string{"items[1].quantity": "must be greater than 0"},
		},
		{
			name:        "no items",
			body:        map[string]interface{}{"branch_id": branchID, "items": []interface{}{}},
			wantStatus:  http.StatusBadRequest,
			wantCode:    "VALIDATION_ERROR",
			wantDetails: map[string]string{"items": "must contain at least 1 item(s)"},
		},
		{
			name: "missing branch",
			body: map[string]interface{}{
				"items": []map[string]interface{}{{"product_id": amoxicillin, "quantity": 1}},
			},
			wantStatus:  http.StatusBadRequest,
			wantCode:    "VALIDATION_ERROR",
			wantDetails: map[string]string{"branch_id": "this field is required"},
		},
		{
			name: "malformed product id",
			body: map[string]interface{}{
				"branch_id": branchID,
				"items":     []map[string]interface{}{{"product_id": "amoxicillin", "quantity": 1}},
			},
			wantStatus:  http.StatusBadRequest,
			wantCode:    "VALIDATION_ERROR",
			wantDetails: map[string]string{"items[0].product_id": "must be a valid UUID"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, status := optimize(t, seededRouter(t), tt.body)

			assert.Equal(t, tt.wantStatus, status)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			for field, msg := range tt.wantDetails {
				assert.Equal(t, msg, resp.Error.Details[field], field)
			}
		})
	}
}

type failingFinder struct{}

func (failingFinder) FindLots(ctx context.Context, branchID, productID string) ([]domain.StockLot, error) {
	return nil, fmt.Errorf("dial tcp 10.0.0.5:5432: connection refused")
}

func TestOptimizeRoute_LookupFailureIsUnavailable(t *testing.T) {
	resp, status := optimize(t, newRouter(t, failingFinder{}), map[string]interface{}{
		"branch_id": branchID,
		"items":     []map[string]interface{}{{"product_id": amoxicillin, "quantity": 1}},
	})

	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "10.0.0.5")
}

func TestOptimizeRoute_RequiresTenant(t *testing.T) {
	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/wms/optimize-route", map[string]interface{}{
		"branch_id": branchID,
		"items":     []map[string]interface{}{{"product_id": amoxicillin, "quantity": 1}},
	})
	rr := testutil.ExecuteRequest(seededRouter(t), req)

	testutil.AssertStatus(t, rr, http.StatusForbidden)
}
