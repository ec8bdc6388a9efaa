package domain

import "sort"

// SortLots orders lots the way the stock lookup must return them: expiry
// ascending, then zone name, then bin code, with missing zone or bin sorting
// after every named one. Names compare bytewise. The sort is stable.
func SortLots(lots []StockLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		return LotLess(lots[i], lots[j])
	})
}

// LotLess reports whether a sorts before b in FEFO order
func LotLess(a, b StockLot) bool {
	if !a.ExpiryDate.Equal(b.ExpiryDate) {
		return a.ExpiryDate.Before(b.ExpiryDate)
	}
	if c := compareNullsLast(a.ZoneName, b.ZoneName); c != 0 {
		return c < 0
	}
	return compareNullsLast(a.BinCode, b.BinCode) < 0
}

func compareNullsLast(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}
