package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/printdesk/internal/models"
)

// Dataset is every row owned by one user.
type Dataset struct {
	Settings  *models.Settings      `json:"settings,omitempty"`
	Clients   []models.Client       `json:"clients"`
	Materials []models.Material     `json:"materials"`
	Inks      []models.Ink          `json:"inks"`
	Services  []models.ServiceOrder `json:"services"`
}

// ImportStats counts the rows written by an import.
type ImportStats struct {
	Clients   int `json:"clients"`
	Materials int `json:"materials"`
	Inks      int `json:"inks"`
	Services  int `json:"services"`
}

// Export reads every row owned by the current user.
func (r *Repository) Export(ctx context.Context) (Dataset, error) {
	var d Dataset

	settings, err := r.Settings.Get(ctx)
	switch {
	case err == nil:
		d.Settings = &settings
	case !errors.Is(err, ErrNotFound):
		return Dataset{}, err
	}

	if d.Clients, err = r.Clients.List(ctx); err != nil {
		return Dataset{}, err
	}
	if d.Materials, err = r.Materials.List(ctx); err != nil {
		return Dataset{}, err
	}
	if d.Inks, err = r.Inks.List(ctx); err != nil {
		return Dataset{}, err
	}
	if d.Services, err = r.Services.List(ctx); err != nil {
		return Dataset{}, err
	}
	return d, nil
}

// ReplaceAll deletes every row owned by the current user and writes d in
// its place, in one transaction.
func (r *Repository) ReplaceAll(ctx context.Context, d Dataset) (ImportStats, error) {
	return r.write(ctx, "dataset.replace", d, true)
}

// Append adds the rows of d to the current user's data with fresh ids.
func (r *Repository) Append(ctx context.Context, d Dataset) (ImportStats, error) {
	return r.write(ctx, "dataset.append", d, false)
}

func (r *Repository) write(ctx context.Context, op string, d Dataset, replace bool) (ImportStats, error) {
	userID, err := r.base.owner(ctx)
	if err != nil {
		return ImportStats{}, err
	}

	var stats ImportStats
	err = r.base.withTx(ctx, op, func(tx *sql.Tx) error {
		if replace {
			if err := deleteOwned(ctx, tx, userID); err != nil {
				return err
			}
		}
		var err error
		stats, err = insertDataset(ctx, tx, userID, d, r.base.now())
		return err
	})
	if err != nil {
		return ImportStats{}, err
	}
	return stats, nil
}

func deleteOwned(ctx context.Context, q querier, userID string) error {
	if err := deleteServices(ctx, q, `WHERE user_id = ?`, userID); err != nil {
		return err
	}
	for _, table := range []string{"clients", "materials", "inks", "settings"} {
		if _, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, userID); err != nil {
			return err
		}
	}
	return nil
}

// insertDataset writes d under fresh ids and rewires the references between
// services and the catalog rows imported alongside them.
func insertDataset(ctx context.Context, q querier, userID string, d Dataset, now time.Time) (ImportStats, error) {
	var stats ImportStats
	stamp := func(t time.Time) string {
		if t.IsZero() {
			return formatTime(now)
		}
		return formatTime(t)
	}

	if d.Settings != nil {
		if err := upsertSettings(ctx, q, userID, *d.Settings, formatTime(now)); err != nil {
			return stats, err
		}
	}

	clientIDs := make(map[string]string, len(d.Clients))
	for _, c := range d.Clients {
		id := uuid.NewString()
		if _, err := q.ExecContext(ctx, `
			INSERT INTO clients (id, user_id, name, email, phone, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, userID, c.Name, c.Email, c.Phone, stamp(c.CreatedAt), stamp(c.UpdatedAt)); err != nil {
			return stats, err
		}
		if c.ID != "" {
			clientIDs[c.ID] = id
		}
		stats.Clients++
	}

	materialIDs := make(map[string]string, len(d.Materials))
	for _, m := range d.Materials {
		id := uuid.NewString()
		if _, err := q.ExecContext(ctx, `
			INSERT INTO materials (id, user_id, name, unit, cost_per_unit, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, userID, m.Name, string(m.Unit), m.CostPerUnit, stamp(m.CreatedAt), stamp(m.UpdatedAt)); err != nil {
			return stats, err
		}
		if m.ID != "" {
			materialIDs[m.ID] = id
		}
		stats.Materials++
	}

	inkIDs := make(map[string]string, len(d.Inks))
	for _, ink := range d.Inks {
		id := uuid.NewString()
		if _, err := q.ExecContext(ctx, `
			INSERT INTO inks (id, user_id, name, cost_per_liter, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, userID, ink.Name, ink.CostPerLiter, stamp(ink.CreatedAt), stamp(ink.UpdatedAt)); err != nil {
			return stats, err
		}
		if ink.ID != "" {
			inkIDs[ink.ID] = id
		}
		stats.Inks++
	}

	for _, svc := range d.Services {
		order := svc
		order.ID = uuid.NewString()
		order.UserID = userID
		order.Client = nil
		order.ClientID = clientIDs[svc.ClientID]
		if order.Status == "" {
			order.Status = models.StatusQuote
		}

		order.Items = make([]models.ServiceItem, len(svc.Items))
		for i, item := range svc.Items {
			item.ID = ""
			// Unmapped ids name rows of the exporting account.
			item.MaterialID = materialIDs[item.MaterialID]
			order.Items[i] = item
		}
		order.Inks = make([]models.ServiceInk, len(svc.Inks))
		for i, ink := range svc.Inks {
			ink.ID = ""
			ink.InkID = inkIDs[ink.InkID]
			order.Inks[i] = ink
		}
		order.Extras = clearAdjustmentIDs(svc.Extras)
		order.Discounts = clearAdjustmentIDs(svc.Discounts)
		order.Payments = make([]models.Payment, len(svc.Payments))
		for i, p := range svc.Payments {
			p.ID = ""
			if p.PaidAt.IsZero() {
				p.PaidAt = now
			}
			order.Payments[i] = p
		}
		order.Comments = make([]models.Comment, len(svc.Comments))
		for i, c := range svc.Comments {
			c.ID = ""
			if c.CreatedAt.IsZero() {
				c.CreatedAt = now
			}
			order.Comments[i] = c
		}
		if order.CreatedAt.IsZero() {
			order.CreatedAt = now
		}
		if order.UpdatedAt.IsZero() {
			order.UpdatedAt = now
		}
		order.Totals = order.ComputeTotals()

		if err := insertService(ctx, q, order); err != nil {
			return stats, err
		}
		stats.Services++
	}
	return stats, nil
}

func clearAdjustmentIDs(in []models.ServiceAdjustment) []models.ServiceAdjustment {
	out := make([]models.ServiceAdjustment, len(in))
	for i, a := range in {
		a.ID = ""
		out[i] = a
	}
	return out
}
