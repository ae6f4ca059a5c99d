package pricing

import "math"

// DefaultMarkupPercent is applied when a draft carries no markup at all.
const DefaultMarkupPercent = 40.0

// Unit is the measuring unit of a material line item.
type Unit string

const (
	UnitMeter       Unit = "m"
	UnitSquareMeter Unit = "m2"
)

// Valid reports whether u is one of the known units.
func (u Unit) Valid() bool {
	return u == UnitMeter || u == UnitSquareMeter
}

// MaterialItem is one material usage on a service order.
type MaterialItem struct {
	Unit             Unit    `json:"unit"`
	Quantity         float64 `json:"quantity"`
	Meters           float64 `json:"meters,omitempty"`
	Width            float64 `json:"width,omitempty"`
	Height           float64 `json:"height,omitempty"`
	UnitCostSnapshot float64 `json:"unit_cost_snapshot"`
}

// InkUsage is the ink consumed by a service order, in millilitres.
type InkUsage struct {
	MLUsed               float64 `json:"ml"`
	CostPerLiterSnapshot float64 `json:"cost_per_liter_snapshot"`
}

// Labor is a block of billable hours.
type Labor struct {
	Hours      float64 `json:"hours"`
	HourlyRate float64 `json:"hourly_rate"`
}

// Adjustment is a flat amount added (extra) or subtracted (discount) from the cost.
type Adjustment struct {
	Description string  `json:"description"`
	Value       float64 `json:"value"`
}

// Draft groups every line item of a service order plus its price policy.
// A nil MarkupPercent means DefaultMarkupPercent; a non-nil ManualPrice
// overrides the markup-derived price.
type Draft struct {
	Items         []MaterialItem `json:"items"`
	Inks          []InkUsage     `json:"inks"`
	Labor         []Labor        `json:"labor"`
	Extras        []Adjustment   `json:"extras"`
	Discounts     []Adjustment   `json:"discounts"`
	MarkupPercent *float64       `json:"markup,omitempty"`
	ManualPrice   *float64       `json:"manual_price,omitempty"`
}

// Totals contains the roll-up values of a draft.
type Totals struct {
	TotalCost float64 `json:"total_cost"`
	Price     float64 `json:"price"`
	Profit    float64 `json:"profit"`
	Margin    float64 `json:"margin"`
}

// MaterialQuantity returns the effective quantity of material consumed by item.
// A zero quantity counts as one piece; unknown units consume nothing.
func MaterialQuantity(item MaterialItem) float64 {
	qty := num(item.Quantity)
	if qty == 0 {
		qty = 1
	}

	switch item.Unit {
	case UnitMeter:
		return qty * num(item.Meters)
	case UnitSquareMeter:
		return qty * num(item.Width) * num(item.Height)
	default:
		return 0
	}
}

// MaterialCost returns the cost of item at its snapshotted unit cost.
func MaterialCost(item MaterialItem) float64 {
	return MaterialQuantity(item) * num(item.UnitCostSnapshot)
}

// InkCost returns the cost of ink at its snapshotted price per litre.
func InkCost(ink InkUsage) float64 {
	return (num(ink.MLUsed) / 1000.0) * num(ink.CostPerLiterSnapshot)
}

// LaborCost returns hours times the hourly rate.
func LaborCost(labor Labor) float64 {
	return num(labor.Hours) * num(labor.HourlyRate)
}

// ComputeTotals computes cost, price, profit and margin for a draft.
// It never fails and never modifies the draft.
func ComputeTotals(draft Draft) Totals {
	materialsCost := 0.0
	for _, item := range draft.Items {
		materialsCost += MaterialCost(item)
	}

	inksCost := 0.0
	for _, ink := range draft.Inks {
		inksCost += InkCost(ink)
	}

	laborCost := 0.0
	for _, l := range draft.Labor {
		laborCost += LaborCost(l)
	}

	extras := sumAdjustments(draft.Extras)
	discounts := sumAdjustments(draft.Discounts)

	// Discounts larger than the cost yield a negative total; it is not clamped.
	totalCost := materialsCost + inksCost + laborCost + extras - discounts

	markup := DefaultMarkupPercent
	if draft.MarkupPercent != nil {
		markup = num(*draft.MarkupPercent)
	}

	price := totalCost * (1.0 + markup/100.0)
	if draft.ManualPrice != nil {
		price = num(*draft.ManualPrice)
	}

	profit := price - totalCost
	margin := 0.0
	if price > 0 {
		margin = profit / price
	}

	return Totals{
		TotalCost: totalCost,
		Price:     price,
		Profit:    profit,
		Margin:    margin,
	}
}

func sumAdjustments(adjustments []Adjustment) float64 {
	total := 0.0
	for _, a := range adjustments {
		total += num(a.Value)
	}
	return total
}

// num maps NaN and infinities to zero.
func num(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
