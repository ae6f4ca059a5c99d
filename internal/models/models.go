// Package models holds the catalog and service-order records shared by the
// store, the repository and the HTTP layer.
package models

import (
	"time"

	"github.com/Simplici0/printdesk/internal/pricing"
)

// Service order statuses used by the UI.
const (
	StatusQuote      = "Orçamento"
	StatusApproved   = "Aprovado"
	StatusProduction = "Em produção"
	StatusDone       = "Concluído"
)

// Client is a customer of the shop.
type Client struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Material is a catalog material priced per metre or per square metre.
type Material struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Name        string       `json:"name"`
	Unit        pricing.Unit `json:"unit"`
	CostPerUnit float64      `json:"cost_per_unit"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Ink is a catalog ink priced per litre.
type Ink struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	CostPerLiter float64   `json:"cost_per_liter"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ServiceItem is a material line of a service order.
type ServiceItem struct {
	ID         string `json:"id,omitempty"`
	MaterialID string `json:"material_id,omitempty"`
	pricing.MaterialItem
}

// ServiceInk is an ink line of a service order.
type ServiceInk struct {
	ID    string `json:"id,omitempty"`
	InkID string `json:"ink_id,omitempty"`
	pricing.InkUsage
}

// ServiceAdjustment is an extra or a discount line.
type ServiceAdjustment struct {
	ID string `json:"id,omitempty"`
	pricing.Adjustment
}

// Payment is an amount received for a service order.
type Payment struct {
	ID     string    `json:"id"`
	Amount float64   `json:"amount"`
	Method string    `json:"method,omitempty"`
	PaidAt time.Time `json:"paid_at"`
}

// Comment is a free-form note on a service order.
type Comment struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ServiceOrder is a print job with its line items and persisted totals.
type ServiceOrder struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	ClientID    string     `json:"client_id,omitempty"`
	Client      *Client    `json:"client,omitempty"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	LaborHours  float64    `json:"labor_hours"`
	LaborRate   float64    `json:"labor_rate"`
	Markup      *float64   `json:"markup,omitempty"`
	ManualPrice *float64   `json:"manual_price,omitempty"`

	Items     []ServiceItem       `json:"items"`
	Inks      []ServiceInk        `json:"inks"`
	Extras    []ServiceAdjustment `json:"extras"`
	Discounts []ServiceAdjustment `json:"discounts"`
	Payments  []Payment           `json:"payments"`
	Comments  []Comment           `json:"comments"`

	Totals    pricing.Totals `json:"totals"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Draft converts the order's line items into a pricing draft.
func (s *ServiceOrder) Draft() pricing.Draft {
	draft := pricing.Draft{
		Items:         make([]pricing.MaterialItem, 0, len(s.Items)),
		Inks:          make([]pricing.InkUsage, 0, len(s.Inks)),
		Labor:         []pricing.Labor{{Hours: s.LaborHours, HourlyRate: s.LaborRate}},
		Extras:        make([]pricing.Adjustment, 0, len(s.Extras)),
		Discounts:     make([]pricing.Adjustment, 0, len(s.Discounts)),
		MarkupPercent: s.Markup,
		ManualPrice:   s.ManualPrice,
	}
	for _, item := range s.Items {
		draft.Items = append(draft.Items, item.MaterialItem)
	}
	for _, ink := range s.Inks {
		draft.Inks = append(draft.Inks, ink.InkUsage)
	}
	for _, extra := range s.Extras {
		draft.Extras = append(draft.Extras, extra.Adjustment)
	}
	for _, discount := range s.Discounts {
		draft.Discounts = append(draft.Discounts, discount.Adjustment)
	}
	return draft
}

// ComputeTotals recomputes the order totals from its current line items.
func (s *ServiceOrder) ComputeTotals() pricing.Totals {
	return pricing.ComputeTotals(s.Draft())
}

// PaidAmount sums every payment received.
func (s *ServiceOrder) PaidAmount() float64 {
	total := 0.0
	for _, p := range s.Payments {
		total += p.Amount
	}
	return total
}

// Balance is the price still owed by the client.
func (s *ServiceOrder) Balance() float64 {
	return s.Totals.Price - s.PaidAmount()
}

// NewServiceItem creates a material line carrying a copy of the material's
// current unit and cost. Later edits to the material do not reach the line.
func NewServiceItem(m Material, quantity, meters, width, height float64) ServiceItem {
	return ServiceItem{
		MaterialID: m.ID,
		MaterialItem: pricing.MaterialItem{
			Unit:             m.Unit,
			Quantity:         quantity,
			Meters:           meters,
			Width:            width,
			Height:           height,
			UnitCostSnapshot: m.CostPerUnit,
		},
	}
}

// NewServiceInk creates an ink line carrying a copy of the ink's price per litre.
func NewServiceInk(ink Ink, ml float64) ServiceInk {
	return ServiceInk{
		InkID: ink.ID,
		InkUsage: pricing.InkUsage{
			MLUsed:               ml,
			CostPerLiterSnapshot: ink.CostPerLiter,
		},
	}
}

// Settings are the per-user business preferences.
type Settings struct {
	CompanyName    string       `json:"company_name"`
	CompanyLogo    string       `json:"company_logo,omitempty"`
	DefaultMarkup  float64      `json:"default_markup"`
	DefaultUnit    pricing.Unit `json:"default_unit"`
	TaxPercent     float64      `json:"tax_percent"`
	DashboardCards []string     `json:"dashboard_cards"`
}

// DefaultSettings returns the settings of a brand new installation.
func DefaultSettings() Settings {
	return Settings{
		CompanyName:    "Gráfica Digital Pro",
		DefaultMarkup:  30,
		DefaultUnit:    pricing.UnitSquareMeter,
		TaxPercent:     0,
		DashboardCards: []string{"revenue", "cost", "profit", "margin", "production", "quotes"},
	}
}
