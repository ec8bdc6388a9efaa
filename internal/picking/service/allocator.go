package service

import (
	"errors"
	"fmt"

	"github.com/medflow/picking-service/internal/picking/domain"
)

// ErrUnsortedLots means the lookup returned lots out of expiry order.
// It is a broken contract with the store, not a runtime condition.
var ErrUnsortedLots = errors.New("stock lots are not in expiry order")

// Allocate fills requested units of productID from lots in the order given.
// Lots must be sorted by expiry ascending; lots with no stock are skipped.
// Running out of lots is not an error: the line comes back short.
func Allocate(productID string, requested int, lots []domain.StockLot) (domain.PickingLine, error) {
	line := domain.PickingLine{
		ProductID:   productID,
		Requested:   requested,
		Allocations: []domain.BinAllocation{},
	}

	remaining := requested
	for i, lot := range lots {
		if i > 0 && lot.ExpiryDate.Before(lots[i-1].ExpiryDate) {
			return domain.PickingLine{}, fmt.Errorf("%w: lot %s (%s) follows %s (%s)",
				ErrUnsortedLots, lot.BatchID, lot.ExpiryDate, lots[i-1].BatchID, lots[i-1].ExpiryDate)
		}
		if remaining <= 0 {
			break
		}
		if lot.Quantity <= 0 {
			continue
		}

		take := min(remaining, lot.Quantity)
		line.Allocations = append(line.Allocations, domain.BinAllocation{
			BatchID:    lot.BatchID,
			BinID:      lot.BinID,
			BinCode:    lot.BinCode,
			ZoneName:   lot.ZoneName,
			Quantity:   take,
			ExpiryDate: lot.ExpiryDate,
		})
		remaining -= take
	}

	line.TotalPicked = requested - remaining
	return line, nil
}
