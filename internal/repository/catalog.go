package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Simplici0/printdesk/internal/models"
	"github.com/Simplici0/printdesk/internal/pricing"
)

// ClientInput holds the writable fields of a client.
type ClientInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// MaterialInput holds the writable fields of a material.
type MaterialInput struct {
	Name        string       `json:"name"`
	Unit        pricing.Unit `json:"unit"`
	CostPerUnit float64      `json:"cost_per_unit"`
}

// InkInput holds the writable fields of an ink.
type InkInput struct {
	Name         string  `json:"name"`
	CostPerLiter float64 `json:"cost_per_liter"`
}

// Clients accesses the clients table.
type Clients struct{ *base }

// List returns the user's clients, newest first.
func (c *Clients) List(ctx context.Context) ([]models.Client, error) {
	userID, err := c.owner(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := queryRecords(ctx, c.db, `
		SELECT * FROM clients WHERE user_id = ? ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, c.fail("clients.list", err)
	}
	return mapRecords(rows, toClient), nil
}

// Get returns one client.
func (c *Clients) Get(ctx context.Context, id string) (models.Client, error) {
	userID, err := c.owner(ctx)
	if err != nil {
		return models.Client{}, err
	}
	row, err := queryRecord(ctx, c.db, `SELECT * FROM clients WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return models.Client{}, c.fail("clients.get", err)
	}
	return toClient(row), nil
}

// Create inserts a client owned by the current user.
func (c *Clients) Create(ctx context.Context, in ClientInput) (models.Client, error) {
	userID, err := c.owner(ctx)
	if err != nil {
		return models.Client{}, err
	}
	id := uuid.NewString()
	if err := insertClient(ctx, c.db, id, userID, in, formatTime(c.now())); err != nil {
		return models.Client{}, c.fail("clients.create", err)
	}
	return c.Get(ctx, id)
}

func insertClient(ctx context.Context, q querier, id, userID string, in ClientInput, ts string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO clients (id, user_id, name, email, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, userID, in.Name, in.Email, in.Phone, ts, ts)
	return err
}

// Update overwrites a client.
func (c *Clients) Update(ctx context.Context, id string, in ClientInput) (models.Client, error) {
	userID, err := c.owner(ctx)
	if err != nil {
		return models.Client{}, err
	}
	res, err := c.db.ExecContext(ctx, `
		UPDATE clients SET name = ?, email = ?, phone = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, in.Name, in.Email, in.Phone, formatTime(c.now()), id, userID)
	if err == nil {
		err = expectAffected(res)
	}
	if err != nil {
		return models.Client{}, c.fail("clients.update", err)
	}
	return c.Get(ctx, id)
}

// Remove deletes a client. Service orders keep their data and lose the link.
func (c *Clients) Remove(ctx context.Context, id string) error {
	userID, err := c.owner(ctx)
	if err != nil {
		return err
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ? AND user_id = ?`, id, userID)
	if err == nil {
		err = expectAffected(res)
	}
	if err != nil {
		return c.fail("clients.remove", err)
	}
	return nil
}

// Materials accesses the materials table.
type Materials struct{ *base }

func (m *Materials) List(ctx context.Context) ([]models.Material, error) {
	userID, err := m.owner(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := queryRecords(ctx, m.db, `
		SELECT * FROM materials WHERE user_id = ? ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, m.fail("materials.list", err)
	}
	return mapRecords(rows, toMaterial), nil
}

func (m *Materials) Get(ctx context.Context, id string) (models.Material, error) {
	userID, err := m.owner(ctx)
	if err != nil {
		return models.Material{}, err
	}
	row, err := queryRecord(ctx, m.db, `SELECT * FROM materials WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return models.Material{}, m.fail("materials.get", err)
	}
	return toMaterial(row), nil
}

func (m *Materials) Create(ctx context.Context, in MaterialInput) (models.Material, error) {
	userID, err := m.owner(ctx)
	if err != nil {
		return models.Material{}, err
	}
	id := uuid.NewString()
	if err := insertMaterial(ctx, m.db, id, userID, in, formatTime(m.now())); err != nil {
		return models.Material{}, m.fail("materials.create", err)
	}
	return m.Get(ctx, id)
}

func insertMaterial(ctx context.Context, q querier, id, userID string, in MaterialInput, ts string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO materials (id, user_id, name, unit, cost_per_unit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, userID, in.Name, string(in.Unit), in.CostPerUnit, ts, ts)
	return err
}

// Update overwrites a material. Line items already priced keep their snapshot.
func (m *Materials) Update(ctx context.Context, id string, in MaterialInput) (models.Material, error) {
	userID, err := m.owner(ctx)
	if err != nil {
		return models.Material{}, err
	}
	res, err := m.db.ExecContext(ctx, `
		UPDATE materials SET name = ?, unit = ?, cost_per_unit = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, in.Name, string(in.Unit), in.CostPerUnit, formatTime(m.now()), id, userID)
	if err == nil {
		err = expectAffected(res)
	}
	if err != nil {
		return models.Material{}, m.fail("materials.update", err)
	}
	return m.Get(ctx, id)
}

func (m *Materials) Remove(ctx context.Context, id string) error {
	userID, err := m.owner(ctx)
	if err != nil {
		return err
	}
	res, err := m.db.ExecContext(ctx, `DELETE FROM materials WHERE id = ? AND user_id = ?`, id, userID)
	if err == nil {
		err = expectAffected(res)
	}
	if err != nil {
		return m.fail("materials.remove", err)
	}
	return nil
}

// Inks accesses the inks table.
type Inks struct{ *base }

func (i *Inks) List(ctx context.Context) ([]models.Ink, error) {
	userID, err := i.owner(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := queryRecords(ctx, i.db, `
		SELECT * FROM inks WHERE user_id = ? ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, i.fail("inks.list", err)
	}
	return mapRecords(rows, toInk), nil
}

func (i *Inks) Get(ctx context.Context, id string) (models.Ink, error) {
	userID, err := i.owner(ctx)
	if err != nil {
		return models.Ink{}, err
	}
	row, err := queryRecord(ctx, i.db, `SELECT * FROM inks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return models.Ink{}, i.fail("inks.get", err)
	}
	return toInk(row), nil
}

func (i *Inks) Create(ctx context.Context, in InkInput) (models.Ink, error) {
	userID, err := i.owner(ctx)
	if err != nil {
		return models.Ink{}, err
	}
	id := uuid.NewString()
	if err := insertInk(ctx, i.db, id, userID, in, formatTime(i.now())); err != nil {
		return models.Ink{}, i.fail("inks.create", err)
	}
	return i.Get(ctx, id)
}

func insertInk(ctx context.Context, q querier, id, userID string, in InkInput, ts string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO inks (id, user_id, name, cost_per_liter, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, userID, in.Name, in.CostPerLiter, ts, ts)
	return err
}

// Update overwrites an ink. Line items already priced keep their snapshot.
func (i *Inks) Update(ctx context.Context, id string, in InkInput) (models.Ink, error) {
	userID, err := i.owner(ctx)
	if err != nil {
		return models.Ink{}, err
	}
	res, err := i.db.ExecContext(ctx, `
		UPDATE inks SET name = ?, cost_per_liter = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, in.Name, in.CostPerLiter, formatTime(i.now()), id, userID)
	if err == nil {
		err = expectAffected(res)
	}
	if err != nil {
		return models.Ink{}, i.fail("inks.update", err)
	}
	return i.Get(ctx, id)
}

func (i *Inks) Remove(ctx context.Context, id string) error {
	userID, err := i.owner(ctx)
	if err != nil {
		return err
	}
	res, err := i.db.ExecContext(ctx, `DELETE FROM inks WHERE id = ? AND user_id = ?`, id, userID)
	if err == nil {
		err = expectAffected(res)
	}
	if err != nil {
		return i.fail("inks.remove", err)
	}
	return nil
}
