package repository

import (
	"context"
	"fmt"
	"os"

	"github.com/medflow/picking-service/internal/picking/domain"
	"gopkg.in/yaml.v3"
)

// SeedLot is one stock lot in a seed file
type SeedLot struct {
	BranchID   string      `yaml:"branch_id"`
	ProductID  string      `yaml:"product_id"`
	BatchID    string      `yaml:"batch_id"`
	BinID      *string     `yaml:"bin_id"`
	BinCode    *string     `yaml:"bin_code"`
	ZoneName   *string     `yaml:"zone_name"`
	Quantity   int         `yaml:"quantity"`
	ExpiryDate domain.Date `yaml:"expiry_date"`
}

type seedFile struct {
	Lots []SeedLot `yaml:"lots"`
}

// MemoryStockLotRepository serves stock lots from memory. It is read-only
// after construction and safe for concurrent use.
type MemoryStockLotRepository struct {
	lots []SeedLot
}

// NewMemoryStockLotRepository creates a repository over the given lots
func NewMemoryStockLotRepository(lots []SeedLot) *MemoryStockLotRepository {
	return &MemoryStockLotRepository{lots: append([]SeedLot(nil), lots...)}
}

// LoadSeedFile reads lots from a YAML file of the form
//
//	lots:
//	  - branch_id: ...
//	    product_id: ...
//	    batch_id: ...
//	    bin_code: A1      # optional
//	    zone_name: Cold   # optional
//	    quantity: 10
//	    expiry_date: 2025-01-01
func LoadSeedFile(path string) (*MemoryStockLotRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed parses YAML seed data
func ParseSeed(data []byte) (*MemoryStockLotRepository, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, l := range seed.Lots {
		if l.BranchID == "" || l.ProductID == "" || l.BatchID == "" {
			return nil, fmt.Errorf("seed lot %d: branch_id, product_id and batch_id are required", i)
		}
		if l.ExpiryDate.IsZero() {
			return nil, fmt.Errorf("seed lot %d: expiry_date is required", i)
		}
		if l.Quantity < 0 {
			return nil, fmt.Errorf("seed lot %d: quantity must not be negative", i)
		}
	}

	return NewMemoryStockLotRepository(seed.Lots), nil
}

// FindLots returns in-stock lots of productID at branchID in FEFO order
func (r *MemoryStockLotRepository) FindLots(ctx context.Context, branchID, productID string) ([]domain.StockLot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lots := []domain.StockLot{}
	for _, l := range r.lots {
		if l.BranchID != branchID || l.ProductID != productID || l.Quantity <= 0 {
			continue
		}
		lots = append(lots, domain.StockLot{
			BatchID:    l.BatchID,
			BinID:      l.BinID,
			BinCode:    l.BinCode,
			ZoneName:   l.ZoneName,
			Quantity:   l.Quantity,
			ExpiryDate: l.ExpiryDate,
		})
	}

	domain.SortLots(lots)
	return lots, nil
}

// Len returns the number of seeded lots
func (r *MemoryStockLotRepository) Len() int {
	return len(r.lots)
}
