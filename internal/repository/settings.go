package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Simplici0/printdesk/internal/models"
)

// Settings accesses the per-user settings row.
type Settings struct{ *base }

// Get returns the user's saved settings. It fails with ErrNotFound when
// nothing was saved yet.
func (s *Settings) Get(ctx context.Context) (models.Settings, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	row, err := queryRecord(ctx, s.db, `SELECT * FROM settings WHERE user_id = ?`, userID)
	if err != nil {
		return models.Settings{}, s.fail("settings.get", err)
	}
	return toSettings(row), nil
}

// Upsert saves the user's settings.
func (s *Settings) Upsert(ctx context.Context, settings models.Settings) (models.Settings, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	if err := upsertSettings(ctx, s.db, userID, settings, formatTime(s.now())); err != nil {
		return models.Settings{}, s.fail("settings.upsert", err)
	}
	return s.Get(ctx)
}

func upsertSettings(ctx context.Context, q querier, userID string, settings models.Settings, ts string) error {
	cards := settings.DashboardCards
	if cards == nil {
		cards = []string{}
	}
	encoded, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("encode dashboard cards: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO settings (
			user_id, company_name, company_logo, default_markup, default_unit,
			tax_percent, dashboard_cards, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			company_name = excluded.company_name,
			company_logo = excluded.company_logo,
			default_markup = excluded.default_markup,
			default_unit = excluded.default_unit,
			tax_percent = excluded.tax_percent,
			dashboard_cards = excluded.dashboard_cards,
			updated_at = excluded.updated_at
	`, userID, settings.CompanyName, settings.CompanyLogo, settings.DefaultMarkup,
		string(settings.DefaultUnit), settings.TaxPercent, string(encoded), ts)
	return err
}

// Counts reports how many rows the user owns per table. A table that cannot
// be counted reports its error text instead of a number.
func (r *Repository) Counts(ctx context.Context) (map[string]any, error) {
	userID, err := r.base.owner(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for _, table := range []string{"clients", "materials", "inks", "service_orders"} {
		row, err := queryRecord(ctx, r.base.db, `SELECT COUNT(*) AS n FROM `+table+` WHERE user_id = ?`, userID)
		if err != nil {
			out[table] = "erro: " + Message(backendError(table+".count", err))
			continue
		}
		out[table] = int(row.num("n"))
	}
	r.base.logger.Info("diagnostics counts", zap.Any("counts", out))
	return out, nil
}
