package repository

import (
	"context"
	"time"

	"github.com/Simplici0/printdesk/internal/models"
	"github.com/Simplici0/printdesk/internal/money"
)

const recentServicesLimit = 5

// StatusSummary aggregates the service orders sharing a status.
type StatusSummary struct {
	Status  string  `json:"status"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
	Profit  float64 `json:"profit"`
}

// RecentService is a row of the dashboard's latest services list.
type RecentService struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ClientName string    `json:"client_name"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Dashboard is the overview of a user's business. Money figures sum the
// totals saved with each service order.
type Dashboard struct {
	Clients    int             `json:"clients"`
	Materials  int             `json:"materials"`
	Inks       int             `json:"inks"`
	Services   int             `json:"services"`
	ByStatus   []StatusSummary `json:"by_status"`
	Revenue    float64         `json:"revenue"`
	Cost       float64         `json:"cost"`
	Profit     float64         `json:"profit"`
	Margin     float64         `json:"margin"`
	Production int             `json:"production"`
	Quotes     int             `json:"quotes"`
	Recent     []RecentService `json:"recent"`
}

// Dashboard computes the user's overview. A service without a status counts
// as a quote.
func (r *Repository) Dashboard(ctx context.Context) (Dashboard, error) {
	userID, err := r.base.owner(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	q := r.base.db

	var d Dashboard
	for table, dst := range map[string]*int{
		"clients":   &d.Clients,
		"materials": &d.Materials,
		"inks":      &d.Inks,
	} {
		row, err := queryRecord(ctx, q, `SELECT COUNT(*) AS n FROM `+table+` WHERE user_id = ?`, userID)
		if err != nil {
			return Dashboard{}, r.base.fail("dashboard."+table, err)
		}
		*dst = int(row.num("n"))
	}

	rows, err := queryRecords(ctx, q, `
		SELECT COALESCE(NULLIF(status, ''), ?) AS status,
			COUNT(*) AS n,
			COALESCE(SUM(price), 0) AS revenue,
			COALESCE(SUM(total_cost), 0) AS cost,
			COALESCE(SUM(profit), 0) AS profit
		FROM service_orders
		WHERE user_id = ?
		GROUP BY 1
		ORDER BY 1
	`, models.StatusQuote, userID)
	if err != nil {
		return Dashboard{}, r.base.fail("dashboard.by_status", err)
	}

	d.ByStatus = make([]StatusSummary, 0, len(rows))
	for _, row := range rows {
		s := StatusSummary{
			Status:  row.str("status"),
			Count:   int(row.num("n")),
			Revenue: money.Round(row.num("revenue")),
			Cost:    money.Round(row.num("cost")),
			Profit:  money.Round(row.num("profit")),
		}
		d.ByStatus = append(d.ByStatus, s)

		d.Services += s.Count
		d.Revenue += row.num("revenue")
		d.Cost += row.num("cost")
		d.Profit += row.num("profit")
		switch s.Status {
		case models.StatusProduction:
			d.Production = s.Count
		case models.StatusQuote:
			d.Quotes = s.Count
		}
	}
	if d.Revenue > 0 {
		d.Margin = d.Profit / d.Revenue
	}
	d.Revenue = money.Round(d.Revenue)
	d.Cost = money.Round(d.Cost)
	d.Profit = money.Round(d.Profit)

	rows, err = queryRecords(ctx, q, `
		SELECT so.id, so.name, so.status, so.created_at, c.name AS client_name
		FROM service_orders so
		LEFT JOIN clients c ON c.id = so.client_id
		WHERE so.user_id = ?
		ORDER BY so.created_at DESC, so.id
		LIMIT ?
	`, userID, recentServicesLimit)
	if err != nil {
		return Dashboard{}, r.base.fail("dashboard.recent", err)
	}
	d.Recent = make([]RecentService, 0, len(rows))
	for _, row := range rows {
		d.Recent = append(d.Recent, RecentService{
			ID:         row.str("id"),
			Name:       row.str("name"),
			ClientName: row.str("client_name"),
			Status:     row.str("status"),
			CreatedAt:  row.time("created_at"),
		})
	}
	return d, nil
}
