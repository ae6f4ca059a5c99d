package repository

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Simplici0/printdesk/internal/models"
	"github.com/Simplici0/printdesk/internal/pricing"
)

// record is one row as returned by the driver or by a JSON sub-select. Every
// value leaving the database goes through the accessors below exactly once.
type record map[string]any

const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func (r record) str(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

func (r record) num(key string) float64 {
	var f float64
	switch v := r[key].(type) {
	case float64:
		f = v
	case int64:
		f = float64(v)
	case int:
		f = float64(v)
	case bool:
		if v {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case []byte:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func (r record) optNum(key string) *float64 {
	if v, ok := r[key]; !ok || v == nil {
		return nil
	}
	f := r.num(key)
	return &f
}

func (r record) time(key string) time.Time {
	t := r.optTime(key)
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (r record) optTime(key string) *time.Time {
	s := strings.TrimSpace(r.str(key))
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// records decodes a JSON array column produced by json_group_array.
func (r record) records(key string) []record {
	raw := r.str(key)
	if raw == "" {
		return nil
	}
	var rows []record
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil
	}
	return rows
}

// object decodes a JSON object column produced by json_object.
func (r record) object(key string) record {
	raw := r.str(key)
	if raw == "" {
		return nil
	}
	var row record
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		return nil
	}
	return row
}

func toClient(r record) models.Client {
	return models.Client{
		ID:        r.str("id"),
		UserID:    r.str("user_id"),
		Name:      r.str("name"),
		Email:     r.str("email"),
		Phone:     r.str("phone"),
		CreatedAt: r.time("created_at"),
		UpdatedAt: r.time("updated_at"),
	}
}

func toUnit(s string) pricing.Unit {
	u := pricing.Unit(strings.ToLower(strings.TrimSpace(s)))
	if u == "m²" {
		return pricing.UnitSquareMeter
	}
	return u
}

func toMaterial(r record) models.Material {
	return models.Material{
		ID:          r.str("id"),
		UserID:      r.str("user_id"),
		Name:        r.str("name"),
		Unit:        toUnit(r.str("unit")),
		CostPerUnit: r.num("cost_per_unit"),
		CreatedAt:   r.time("created_at"),
		UpdatedAt:   r.time("updated_at"),
	}
}

func toInk(r record) models.Ink {
	return models.Ink{
		ID:           r.str("id"),
		UserID:       r.str("user_id"),
		Name:         r.str("name"),
		CostPerLiter: r.num("cost_per_liter"),
		CreatedAt:    r.time("created_at"),
		UpdatedAt:    r.time("updated_at"),
	}
}

func toServiceItem(r record) models.ServiceItem {
	return models.ServiceItem{
		ID:         r.str("id"),
		MaterialID: r.str("material_id"),
		MaterialItem: pricing.MaterialItem{
			Unit:             toUnit(r.str("unit")),
			Quantity:         r.num("quantity"),
			Meters:           r.num("meters"),
			Width:            r.num("width"),
			Height:           r.num("height"),
			UnitCostSnapshot: r.num("unit_cost_snapshot"),
		},
	}
}

func toServiceInk(r record) models.ServiceInk {
	return models.ServiceInk{
		ID:    r.str("id"),
		InkID: r.str("ink_id"),
		InkUsage: pricing.InkUsage{
			MLUsed:               r.num("ml_used"),
			CostPerLiterSnapshot: r.num("cost_per_liter_snapshot"),
		},
	}
}

func toAdjustment(r record) models.ServiceAdjustment {
	return models.ServiceAdjustment{
		ID: r.str("id"),
		Adjustment: pricing.Adjustment{
			Description: r.str("description"),
			Value:       r.num("value"),
		},
	}
}

func toPayment(r record) models.Payment {
	return models.Payment{
		ID:     r.str("id"),
		Amount: r.num("amount"),
		Method: r.str("method"),
		PaidAt: r.time("paid_at"),
	}
}

func toComment(r record) models.Comment {
	return models.Comment{
		ID:        r.str("id"),
		Body:      r.str("body"),
		CreatedAt: r.time("created_at"),
	}
}

func toServiceOrder(r record) models.ServiceOrder {
	status := r.str("status")
	if status == "" {
		status = models.StatusQuote
	}
	return models.ServiceOrder{
		ID:          r.str("id"),
		UserID:      r.str("user_id"),
		ClientID:    r.str("client_id"),
		Name:        r.str("name"),
		Status:      status,
		DueDate:     r.optTime("due_date"),
		LaborHours:  r.num("labor_hours"),
		LaborRate:   r.num("labor_rate"),
		Markup:      r.optNum("markup"),
		ManualPrice: r.optNum("manual_price"),
		Items:       []models.ServiceItem{},
		Inks:        []models.ServiceInk{},
		Extras:      []models.ServiceAdjustment{},
		Discounts:   []models.ServiceAdjustment{},
		Payments:    []models.Payment{},
		Comments:    []models.Comment{},
		Totals: pricing.Totals{
			TotalCost: r.num("total_cost"),
			Price:     r.num("price"),
			Profit:    r.num("profit"),
			Margin:    r.num("margin"),
		},
		CreatedAt: r.time("created_at"),
		UpdatedAt: r.time("updated_at"),
	}
}

func toSettings(r record) models.Settings {
	settings := models.DefaultSettings()
	settings.CompanyName = r.str("company_name")
	settings.CompanyLogo = r.str("company_logo")
	settings.DefaultMarkup = r.num("default_markup")
	if unit := toUnit(r.str("default_unit")); unit.Valid() {
		settings.DefaultUnit = unit
	}
	settings.TaxPercent = r.num("tax_percent")

	var cards []string
	if err := json.Unmarshal([]byte(r.str("dashboard_cards")), &cards); err == nil && cards != nil {
		settings.DashboardCards = cards
	}
	return settings
}

func mapRecords[T any](rows []record, convert func(record) T) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, convert(row))
	}
	return out
}
