package service

import (
	"sort"

	"github.com/medflow/picking-service/internal/picking/domain"
)

// DefaultPerPickSeconds is the time charged per route stop when none is configured
const DefaultPerPickSeconds = 15

// Sequence orders allocations into a walking route by zone then bin code,
// keeping encounter order for equal keys, and numbers the stops from 1.
// The estimate is stops * perPickSeconds, a linear approximation rather
// than a measured walking time.
func Sequence(allocations []domain.TaggedAllocation, perPickSeconds int) ([]domain.RouteStop, int) {
	route := make([]domain.RouteStop, len(allocations))
	for i, a := range allocations {
		route[i] = domain.RouteStop{
			ZoneName:  a.RouteZoneName(),
			BinCode:   a.RouteBinCode(),
			BatchID:   a.BatchID,
			ProductID: a.ProductID,
			Quantity:  a.Quantity,
		}
	}

	sort.SliceStable(route, func(i, j int) bool {
		if route[i].ZoneName != route[j].ZoneName {
			return route[i].ZoneName < route[j].ZoneName
		}
		return route[i].BinCode < route[j].BinCode
	})

	for i := range route {
		route[i].Sequence = i + 1
	}

	return route, len(route) * perPickSeconds
}
