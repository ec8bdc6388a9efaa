package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/medflow/picking-service/internal/picking/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func ptr(s string) *string { return &s }

func TestDate_JSON(t *testing.T) {
	d := domain.NewDate(2025, time.January, 1)

	b, err := json.Marshal(struct {
		Expiry domain.Date `json:"expiry_date"`
	}{d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"expiry_date":"2025-01-01"}`, string(b))

	var out struct {
		Expiry domain.Date `json:"expiry_date"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, d.Equal(out.Expiry))

	assert.Error(t, json.Unmarshal([]byte(`{"expiry_date":"01/01/2025"}`), &out))
}

func TestDate_YAML(t *testing.T) {
	var out struct {
		Expiry domain.Date `yaml:"expiry_date"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("expiry_date: 2025-06-01\n"), &out))
	assert.Equal(t, "2025-06-01", out.Expiry.String())

	err := yaml.Unmarshal([]byte("expiry_date: soon\n"), &out)
	assert.Error(t, err)
}

func TestDate_Scan(t *testing.T) {
	tests := []struct {
		name    string
		src     interface{}
		want    string
		wantErr bool
	}{
		{"time", time.Date(2025, 3, 4, 0, 0, 0, 0, time.FixedZone("x", 3600)), "2025-03-04", false},
		{"string", "2025-03-04", "2025-03-04", false},
		{"timestamp string", "2025-03-04T00:00:00Z", "2025-03-04", false},
		{"bytes", []byte("2025-03-04"), "2025-03-04", false},
		{"null", nil, "", true},
		{"int", 42, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d domain.Date
			err := d.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestBinAllocation_RouteDefaults(t *testing.T) {
	a := domain.BinAllocation{}
	assert.Equal(t, domain.DefaultBinCode, a.RouteBinCode())
	assert.Equal(t, domain.DefaultZoneName, a.RouteZoneName())

	a.BinCode, a.ZoneName = ptr("A1"), ptr("Cold")
	assert.Equal(t, "A1", a.RouteBinCode())
	assert.Equal(t, "Cold", a.RouteZoneName())
}

func TestSortLots_ExpiryThenZoneThenBinNullsLast(t *testing.T) {
	jan := domain.MustParseDate("2025-01-01")
	jun := domain.MustParseDate("2025-06-01")

	lots := []domain.StockLot{
		{BatchID: "jun-a-a1", ExpiryDate: jun, ZoneName: ptr("A"), BinCode: ptr("A1")},
		{BatchID: "jan-nozone", ExpiryDate: jan},
		{BatchID: "jan-b-b1", ExpiryDate: jan, ZoneName: ptr("B"), BinCode: ptr("B1")},
		{BatchID: "jan-a-nobin", ExpiryDate: jan, ZoneName: ptr("A")},
		{BatchID: "jan-a-a2", ExpiryDate: jan, ZoneName: ptr("A"), BinCode: ptr("A2")},
		{BatchID: "jan-a-a1", ExpiryDate: jan, ZoneName: ptr("A"), BinCode: ptr("A1")},
	}

	domain.SortLots(lots)

	var got []string
	for _, l := range lots {
		got = append(got, l.BatchID)
	}
	assert.Equal(t, []string{"jan-a-a1", "jan-a-a2", "jan-a-nobin", "jan-b-b1", "jan-nozone", "jun-a-a1"}, got)
}

func TestSortLots_StableForEqualKeys(t *testing.T) {
	jan := domain.MustParseDate("2025-01-01")
	lots := []domain.StockLot{
		{BatchID: "first", ExpiryDate: jan, ZoneName: ptr("A"), BinCode: ptr("A1")},
		{BatchID: "second", ExpiryDate: jan, ZoneName: ptr("A"), BinCode: ptr("A1")},
		{BatchID: "third", ExpiryDate: jan},
		{BatchID: "fourth", ExpiryDate: jan},
	}

	domain.SortLots(lots)

	assert.Equal(t, "first", lots[0].BatchID)
	assert.Equal(t, "second", lots[1].BatchID)
	assert.Equal(t, "third", lots[2].BatchID)
	assert.Equal(t, "fourth", lots[3].BatchID)
}

func TestSortLots_BytewiseNames(t *testing.T) {
	jan := domain.MustParseDate("2025-01-01")
	lots := []domain.StockLot{
		{BatchID: "lower", ExpiryDate: jan, ZoneName: ptr("a")},
		{BatchID: "upper", ExpiryDate: jan, ZoneName: ptr("Z")},
	}

	domain.SortLots(lots)

	assert.Equal(t, "upper", lots[0].BatchID)
}

func TestPickingPlan_ShortProducts(t *testing.T) {
	plan := domain.PickingPlan{Lines: []domain.PickingLine{
		{ProductID: "p1", Requested: 10, TotalPicked: 10},
		{ProductID: "p2", Requested: 10, TotalPicked: 4},
		{ProductID: "p3", Requested: 5, TotalPicked: 0},
	}}

	assert.Equal(t, []string{"p2", "p3"}, plan.ShortProducts())
}

func TestBinAllocation_JSONKeepsNullBin(t *testing.T) {
	b, err := json.Marshal(domain.BinAllocation{
		BatchID:    "b1",
		Quantity:   3,
		ExpiryDate: domain.MustParseDate("2025-01-01"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"batch_id":"b1","bin_id":null,"bin_code":null,"zone_name":null,"quantity":3,"expiry_date":"2025-01-01"}`, string(b))
}
