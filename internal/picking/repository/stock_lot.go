package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/medflow/picking-service/internal/picking/domain"
	"github.com/medflow/picking-service/pkg/database"
	"github.com/medflow/picking-service/pkg/tenant"
)

// findLotsQuery returns in-stock lots of a product at a branch in FEFO order.
// Names compare bytewise (COLLATE "C") and NULL zone or bin sort last, the
// same order domain.SortLots produces. s.id makes ties deterministic.
const findLotsQuery = `
	SELECT
		s.batch_id,
		s.bin_id,
		s.quantity,
		b.expiry_date,
		bl.code AS bin_code,
		wz.name AS zone_name
	FROM inventory_stock s
	JOIN batches b ON s.batch_id = b.id
	LEFT JOIN bin_locations bl ON s.bin_id = bl.id
	LEFT JOIN warehouse_zones wz ON bl.zone_id = wz.id
	WHERE s.branch_id = $1
	AND b.product_id = $2
	AND s.quantity > 0
	ORDER BY b.expiry_date ASC, wz.name COLLATE "C" ASC, bl.code COLLATE "C" ASC, s.id ASC
`

// StockLotRepository reads stock lots from PostgreSQL
type StockLotRepository struct {
	db *database.DB
}

// NewStockLotRepository creates a new stock lot repository
func NewStockLotRepository(db *database.DB) *StockLotRepository {
	return &StockLotRepository{db: db}
}

// FindLots returns the lots of productID available at branchID. When the
// context carries a tenant the query runs under that tenant's row level security.
func (r *StockLotRepository) FindLots(ctx context.Context, branchID, productID string) ([]domain.StockLot, error) {
	lots := []domain.StockLot{}

	query := func(ctx context.Context) error {
		return sqlx.SelectContext(ctx, r.db.Querier(ctx), &lots, findLotsQuery, branchID, productID)
	}

	var err error
	if tenantID, tErr := tenant.TenantID(ctx); tErr == nil {
		err = r.db.WithTenantRLS(ctx, tenantID, query)
	} else {
		err = query(ctx)
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, fmt.Errorf("failed to query stock lots: %w", err)
	}

	return lots, nil
}
