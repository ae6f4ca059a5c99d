package models

import (
	"math"
	"testing"

	"github.com/Simplici0/printdesk/internal/pricing"
)

func TestServiceOrderComputeTotals(t *testing.T) {
	markup := 40.0
	order := ServiceOrder{
		LaborHours: 1.5,
		LaborRate:  60,
		Markup:     &markup,
		Items: []ServiceItem{
			NewServiceItem(Material{ID: "m1", Unit: pricing.UnitMeter, CostPerUnit: 18.5}, 1, 5, 0, 0),
		},
		Inks: []ServiceInk{
			NewServiceInk(Ink{ID: "i1", CostPerLiter: 120}, 120),
		},
	}

	totals := order.ComputeTotals()

	// 92.5 + 14.4 + 90
	if math.Abs(totals.TotalCost-196.9) > 1e-9 {
		t.Fatalf("TotalCost = %v, want 196.9", totals.TotalCost)
	}
	if math.Abs(totals.Price-275.66) > 1e-9 {
		t.Fatalf("Price = %v, want 275.66", totals.Price)
	}
}

func TestNewServiceItemSnapshotsMaterialCost(t *testing.T) {
	material := Material{ID: "m1", Unit: pricing.UnitSquareMeter, CostPerUnit: 25}
	item := NewServiceItem(material, 2, 0, 1, 1)

	material.CostPerUnit = 99

	if item.UnitCostSnapshot != 25 {
		t.Fatalf("snapshot = %v, want 25", item.UnitCostSnapshot)
	}
	if item.Unit != pricing.UnitSquareMeter || item.MaterialID != "m1" {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestServiceOrderBalance(t *testing.T) {
	order := ServiceOrder{
		Totals:   pricing.Totals{Price: 300},
		Payments: []Payment{{Amount: 100}, {Amount: 50}},
	}

	if got := order.Balance(); got != 150 {
		t.Fatalf("Balance = %v, want 150", got)
	}
}
