package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// StockFixture describes one stock row together with the batch, bin and
// zone it hangs off. Empty BinCode leaves the stock unbinned; empty
// ZoneName leaves the bin without a zone.
type StockFixture struct {
	BranchID  string
	ProductID string
	BatchID   string
	BinCode   string
	ZoneName  string
	Quantity  int
	Expiry    string
}

// InsertedStock holds the ids written by StockFactory.Insert
type InsertedStock struct {
	StockID string
	BatchID string
	BinID   *string
}

// StockFactory inserts stock fixtures for one tenant. Zones and bins are
// created once per name within the factory.
type StockFactory struct {
	db       *sqlx.DB
	tenantID string
	zones    map[string]string
	bins     map[string]string
	seq      int
}

// NewStockFactory creates a factory writing through db, which must bypass
// row level security (the container superuser does).
func NewStockFactory(db *sqlx.DB, tenantID string) *StockFactory {
	return &StockFactory{
		db:       db,
		tenantID: tenantID,
		zones:    make(map[string]string),
		bins:     make(map[string]string),
	}
}

// Insert writes the fixture and returns the generated ids
func (f *StockFactory) Insert(ctx context.Context, s StockFixture) (*InsertedStock, error) {
	f.seq++

	expiry, err := time.Parse("2006-01-02", s.Expiry)
	if err != nil {
		return nil, fmt.Errorf("invalid fixture expiry %q: %w", s.Expiry, err)
	}

	batchID := s.BatchID
	if batchID == "" {
		batchID = uuid.New().String()
	}
	if _, err := f.db.ExecContext(ctx,
		`INSERT INTO wms.batches (id, tenant_id, product_id, batch_number, expiry_date) VALUES ($1, $2, $3, $4, $5)`,
		batchID, f.tenantID, s.ProductID, fmt.Sprintf("LOT-%04d", f.seq), expiry,
	); err != nil {
		return nil, fmt.Errorf("failed to insert batch: %w", err)
	}

	binID, err := f.bin(ctx, s.BinCode, s.ZoneName)
	if err != nil {
		return nil, err
	}

	stockID := uuid.New().String()
	if _, err := f.db.ExecContext(ctx,
		`INSERT INTO wms.inventory_stock (id, tenant_id, branch_id, batch_id, bin_id, quantity) VALUES ($1, $2, $3, $4, $5, $6)`,
		stockID, f.tenantID, s.BranchID, batchID, binID, s.Quantity,
	); err != nil {
		return nil, fmt.Errorf("failed to insert stock: %w", err)
	}

	return &InsertedStock{StockID: stockID, BatchID: batchID, BinID: binID}, nil
}

// MustInsert is Insert that panics on failure
func (f *StockFactory) MustInsert(ctx context.Context, s StockFixture) *InsertedStock {
	out, err := f.Insert(ctx, s)
	if err != nil {
		panic(err)
	}
	return out
}

func (f *StockFactory) bin(ctx context.Context, code, zone string) (*string, error) {
	if code == "" {
		return nil, nil
	}
	key := zone + "/" + code
	if id, ok := f.bins[key]; ok {
		return &id, nil
	}

	var zoneID *string
	if zone != "" {
		id, ok := f.zones[zone]
		if !ok {
			id = uuid.New().String()
			if _, err := f.db.ExecContext(ctx,
				`INSERT INTO wms.warehouse_zones (id, tenant_id, name) VALUES ($1, $2, $3)`,
				id, f.tenantID, zone,
			); err != nil {
				return nil, fmt.Errorf("failed to insert zone: %w", err)
			}
			f.zones[zone] = id
		}
		zoneID = &id
	}

	id := uuid.New().String()
	if _, err := f.db.ExecContext(ctx,
		`INSERT INTO wms.bin_locations (id, tenant_id, zone_id, code) VALUES ($1, $2, $3, $4)`,
		id, f.tenantID, zoneID, code,
	); err != nil {
		return nil, fmt.Errorf("failed to insert bin: %w", err)
	}
	f.bins[key] = id
	return &id, nil
}
