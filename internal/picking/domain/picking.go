package domain

// Route defaults for lots stored outside any bin or zone
const (
	DefaultBinCode  = "BULK"
	DefaultZoneName = "DEFAULT"
)

// StockLot is one pickable quantity of a batch in a bin, as returned by the
// stock lot lookup. BinID, BinCode and ZoneName are nil for unbinned stock.
type StockLot struct {
	BatchID    string  `db:"batch_id" json:"batch_id"`
	BinID      *string `db:"bin_id" json:"bin_id"`
	BinCode    *string `db:"bin_code" json:"bin_code"`
	ZoneName   *string `db:"zone_name" json:"zone_name"`
	Quantity   int     `db:"quantity" json:"quantity"`
	ExpiryDate Date    `db:"expiry_date" json:"expiry_date"`
}

// PickItem requests a quantity of one product
type PickItem struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// PickingRequest asks for a plan covering Items at one branch
type PickingRequest struct {
	BranchID string     `json:"branch_id" validate:"required,uuid"`
	Items    []PickItem `json:"items" validate:"required,min=1,dive"`
}

// BinAllocation is the portion of a lot assigned to a picking line
type BinAllocation struct {
	BatchID    string  `json:"batch_id"`
	BinID      *string `json:"bin_id"`
	BinCode    *string `json:"bin_code"`
	ZoneName   *string `json:"zone_name"`
	Quantity   int     `json:"quantity"`
	ExpiryDate Date    `json:"expiry_date"`
}

// RouteBinCode is the bin code used for routing, BULK when unbinned
func (a BinAllocation) RouteBinCode() string {
	if a.BinCode == nil {
		return DefaultBinCode
	}
	return *a.BinCode
}

// RouteZoneName is the zone used for routing, DEFAULT when unzoned
func (a BinAllocation) RouteZoneName() string {
	if a.ZoneName == nil {
		return DefaultZoneName
	}
	return *a.ZoneName
}

// PickingLine holds the allocations for one requested item, in FEFO order.
// TotalPicked is below Requested when stock ran short.
type PickingLine struct {
	ProductID   string          `json:"product_id"`
	Requested   int             `json:"requested_quantity"`
	Allocations []BinAllocation `json:"allocations"`
	TotalPicked int             `json:"total_picked"`
}

// Short reports whether the line could not be fully allocated
func (l PickingLine) Short() bool {
	return l.TotalPicked < l.Requested
}

// TaggedAllocation is an allocation together with the product it was made for
type TaggedAllocation struct {
	ProductID string
	BinAllocation
}

// RouteStop is one step of the walking route
type RouteStop struct {
	Sequence  int    `json:"sequence"`
	ZoneName  string `json:"zone_name"`
	BinCode   string `json:"bin_code"`
	BatchID   string `json:"batch_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PickingPlan is the result of one planning call. It is never persisted.
type PickingPlan struct {
	BranchID             string        `json:"branch_id"`
	Lines                []PickingLine `json:"lines"`
	OptimizedRoute       []RouteStop   `json:"optimized_route"`
	EstimatedTimeSeconds int           `json:"estimated_time_seconds"`
}

// ShortProducts returns the product ids of lines that were not fully allocated
func (p *PickingPlan) ShortProducts() []string {
	var short []string
	for _, line := range p.Lines {
		if line.Short() {
			short = append(short, line.ProductID)
		}
	}
	return short
}
