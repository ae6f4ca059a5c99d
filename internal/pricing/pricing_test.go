package pricing

import (
	"math"
	"reflect"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func ptr(v float64) *float64 { return &v }

func TestMaterialQuantity_ZeroWhenDimensionsMissing(t *testing.T) {
	for _, item := range []MaterialItem{
		{Unit: UnitMeter, Quantity: 5},
		{Unit: UnitSquareMeter, Quantity: 5},
		{Unit: UnitSquareMeter, Quantity: 5, Width: 2},
	} {
		nearlyEqual(t, "quantity "+string(item.Unit), MaterialQuantity(item), 0)
	}
}

func TestMaterialQuantity_LinearAndArea(t *testing.T) {
	nearlyEqual(t, "linear", MaterialQuantity(MaterialItem{Unit: UnitMeter, Quantity: 2, Meters: 3}), 6)
	nearlyEqual(t, "area", MaterialQuantity(MaterialItem{Unit: UnitSquareMeter, Quantity: 1, Width: 2, Height: 3}), 6)
}

func TestMaterialQuantity_DefaultsQuantityToOne(t *testing.T) {
	nearlyEqual(t, "linear", MaterialQuantity(MaterialItem{Unit: UnitMeter, Meters: 4}), 4)
}

func TestMaterialQuantity_UnknownUnit(t *testing.T) {
	nearlyEqual(t, "unknown", MaterialQuantity(MaterialItem{Unit: "kg", Quantity: 3, Meters: 3}), 0)
}

func TestMaterialCost_UsesSnapshot(t *testing.T) {
	item := MaterialItem{Unit: UnitMeter, Quantity: 1, Meters: 5, UnitCostSnapshot: 18.5}
	nearlyEqual(t, "cost", MaterialCost(item), 92.5)

	item.UnitCostSnapshot = 0
	nearlyEqual(t, "missing snapshot", MaterialCost(item), 0)
}

func TestInkCost(t *testing.T) {
	nearlyEqual(t, "ink", InkCost(InkUsage{MLUsed: 500, CostPerLiterSnapshot: 100}), 50)
}

func TestComputeTotals_EmptyDraft(t *testing.T) {
	result := ComputeTotals(Draft{MarkupPercent: ptr(40)})

	nearlyEqual(t, "totalCost", result.TotalCost, 0)
	nearlyEqual(t, "price", result.Price, 0)
	nearlyEqual(t, "profit", result.Profit, 0)
	nearlyEqual(t, "margin", result.Margin, 0)
}

func TestComputeTotals_Markup(t *testing.T) {
	draft := Draft{
		Labor:         []Labor{{Hours: 1, HourlyRate: 100}},
		MarkupPercent: ptr(40),
	}

	result := ComputeTotals(draft)

	nearlyEqual(t, "totalCost", result.TotalCost, 100)
	nearlyEqual(t, "price", result.Price, 140)
	nearlyEqual(t, "profit", result.Profit, 40)
	if math.Abs(result.Margin-0.2857) > 1e-4 {
		t.Fatalf("margin = %v, want ~0.2857", result.Margin)
	}
}

func TestComputeTotals_NilMarkupUsesDefault(t *testing.T) {
	result := ComputeTotals(Draft{Extras: []Adjustment{{Value: 100}}})
	nearlyEqual(t, "price", result.Price, 140)
}

func TestComputeTotals_ZeroMarkup(t *testing.T) {
	result := ComputeTotals(Draft{Extras: []Adjustment{{Value: 80}}, MarkupPercent: ptr(0)})

	nearlyEqual(t, "price", result.Price, 80)
	nearlyEqual(t, "profit", result.Profit, 0)
	nearlyEqual(t, "margin", result.Margin, 0)
}

func TestComputeTotals_ManualPriceOverridesMarkup(t *testing.T) {
	draft := Draft{
		Labor:         []Labor{{Hours: 2, HourlyRate: 50}},
		MarkupPercent: ptr(40),
		ManualPrice:   ptr(200),
	}

	result := ComputeTotals(draft)

	nearlyEqual(t, "price", result.Price, 200)
	nearlyEqual(t, "profit", result.Profit, 100)
	nearlyEqual(t, "margin", result.Margin, 0.5)
}

func TestComputeTotals_AllLineItemKinds(t *testing.T) {
	draft := Draft{
		Items: []MaterialItem{
			{Unit: UnitMeter, Quantity: 1, Meters: 5, UnitCostSnapshot: 18.5},
			{Unit: UnitSquareMeter, Quantity: 2, Width: 1, Height: 0.5, UnitCostSnapshot: 30},
		},
		Inks:          []InkUsage{{MLUsed: 120, CostPerLiterSnapshot: 120}},
		Labor:         []Labor{{Hours: 1.5, HourlyRate: 60}},
		Extras:        []Adjustment{{Description: "ilhós", Value: 10}},
		Discounts:     []Adjustment{{Description: "fidelidade", Value: 5}},
		MarkupPercent: ptr(50),
	}

	result := ComputeTotals(draft)

	// 92.5 + 30 + 14.4 + 90 + 10 - 5
	nearlyEqual(t, "totalCost", result.TotalCost, 231.9)
	nearlyEqual(t, "price", result.Price, 347.85)
	nearlyEqual(t, "profit", result.Profit, 115.95)
}

func TestComputeTotals_NegativeCostIsNotClamped(t *testing.T) {
	result := ComputeTotals(Draft{
		Extras:        []Adjustment{{Value: 10}},
		Discounts:     []Adjustment{{Value: 30}},
		MarkupPercent: ptr(0),
	})

	nearlyEqual(t, "totalCost", result.TotalCost, -20)
	nearlyEqual(t, "price", result.Price, -20)
	nearlyEqual(t, "margin", result.Margin, 0)
}

func TestComputeTotals_CoercesMalformedNumbers(t *testing.T) {
	result := ComputeTotals(Draft{
		Items:         []MaterialItem{{Unit: UnitMeter, Meters: math.NaN(), UnitCostSnapshot: 10}},
		Inks:          []InkUsage{{MLUsed: math.Inf(1), CostPerLiterSnapshot: 10}},
		MarkupPercent: ptr(math.NaN()),
	})

	nearlyEqual(t, "totalCost", result.TotalCost, 0)
	nearlyEqual(t, "price", result.Price, 0)
}

func TestComputeTotals_IsPureAndIdempotent(t *testing.T) {
	draft := Draft{
		Items:         []MaterialItem{{Unit: UnitMeter, Meters: 2, UnitCostSnapshot: 10}},
		Discounts:     []Adjustment{{Value: 1}},
		MarkupPercent: ptr(25),
	}
	before := Draft{
		Items:         []MaterialItem{{Unit: UnitMeter, Meters: 2, UnitCostSnapshot: 10}},
		Discounts:     []Adjustment{{Value: 1}},
		MarkupPercent: ptr(25),
	}

	first := ComputeTotals(draft)
	second := ComputeTotals(draft)

	if first != second {
		t.Fatalf("expected identical totals, got %+v and %+v", first, second)
	}
	if !reflect.DeepEqual(draft, before) {
		t.Fatalf("draft was modified: %+v", draft)
	}
}
