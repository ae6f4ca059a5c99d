package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Simplici0/printdesk/internal/models"
)

// ServiceInput holds the writable fields of a service order. Totals are
// always recomputed from the line items.
type ServiceInput struct {
	ClientID    string                     `json:"client_id"`
	Name        string                     `json:"name"`
	Status      string                     `json:"status"`
	DueDate     *time.Time                 `json:"due_date"`
	LaborHours  float64                    `json:"labor_hours"`
	LaborRate   float64                    `json:"labor_rate"`
	Markup      *float64                   `json:"markup"`
	ManualPrice *float64                   `json:"manual_price"`
	Items       []models.ServiceItem       `json:"items"`
	Inks        []models.ServiceInk        `json:"inks"`
	Extras      []models.ServiceAdjustment `json:"extras"`
	Discounts   []models.ServiceAdjustment `json:"discounts"`
}

// Order builds an unsaved service order from the input with its totals computed.
func (in ServiceInput) Order() models.ServiceOrder {
	status := in.Status
	if status == "" {
		status = models.StatusQuote
	}
	order := models.ServiceOrder{
		ClientID:    in.ClientID,
		Name:        in.Name,
		Status:      status,
		DueDate:     in.DueDate,
		LaborHours:  in.LaborHours,
		LaborRate:   in.LaborRate,
		Markup:      in.Markup,
		ManualPrice: in.ManualPrice,
		Items:       append([]models.ServiceItem{}, in.Items...),
		Inks:        append([]models.ServiceInk{}, in.Inks...),
		Extras:      append([]models.ServiceAdjustment{}, in.Extras...),
		Discounts:   append([]models.ServiceAdjustment{}, in.Discounts...),
		Payments:    []models.Payment{},
		Comments:    []models.Comment{},
	}
	order.Totals = order.ComputeTotals()
	return order
}

// PaymentInput is a payment received for a service order.
type PaymentInput struct {
	Amount float64    `json:"amount"`
	Method string     `json:"method"`
	PaidAt *time.Time `json:"paid_at"`
}

// Services accesses service orders and their line items.
type Services struct{ *base }

const joinedServiceSelect = `
	SELECT so.*,
		(SELECT json_object(
			'id', c.id, 'user_id', c.user_id, 'name', c.name, 'email', c.email,
			'phone', c.phone, 'created_at', c.created_at, 'updated_at', c.updated_at)
		FROM clients c WHERE c.id = so.client_id) AS client_json,
		(SELECT json_group_array(json_object(
			'id', i.id, 'material_id', i.material_id, 'unit', i.unit, 'quantity', i.quantity,
			'meters', i.meters, 'width', i.width, 'height', i.height,
			'unit_cost_snapshot', i.unit_cost_snapshot))
		FROM (SELECT * FROM service_items WHERE service_id = so.id ORDER BY position) i) AS items_json,
		(SELECT json_group_array(json_object(
			'id', k.id, 'ink_id', k.ink_id, 'ml_used', k.ml_used,
			'cost_per_liter_snapshot', k.cost_per_liter_snapshot))
		FROM (SELECT * FROM service_inks WHERE service_id = so.id ORDER BY position) k) AS inks_json,
		(SELECT json_group_array(json_object('id', e.id, 'description', e.description, 'value', e.value))
		FROM (SELECT * FROM service_extras WHERE service_id = so.id ORDER BY position) e) AS extras_json,
		(SELECT json_group_array(json_object('id', d.id, 'description', d.description, 'value', d.value))
		FROM (SELECT * FROM service_discounts WHERE service_id = so.id ORDER BY position) d) AS discounts_json,
		(SELECT json_group_array(json_object(
			'id', p.id, 'amount', p.amount, 'method', p.method, 'paid_at', p.paid_at))
		FROM (SELECT * FROM service_payments WHERE service_id = so.id ORDER BY paid_at) p) AS payments_json,
		(SELECT json_group_array(json_object('id', m.id, 'body', m.body, 'created_at', m.created_at))
		FROM (SELECT * FROM service_comments WHERE service_id = so.id ORDER BY created_at) m) AS comments_json
	FROM service_orders so
`

func toJoinedServiceOrder(r record) models.ServiceOrder {
	svc := toServiceOrder(r)
	if c := r.object("client_json"); c != nil {
		client := toClient(c)
		svc.Client = &client
	}
	svc.Items = mapRecords(r.records("items_json"), toServiceItem)
	svc.Inks = mapRecords(r.records("inks_json"), toServiceInk)
	svc.Extras = mapRecords(r.records("extras_json"), toAdjustment)
	svc.Discounts = mapRecords(r.records("discounts_json"), toAdjustment)
	svc.Payments = mapRecords(r.records("payments_json"), toPayment)
	svc.Comments = mapRecords(r.records("comments_json"), toComment)
	return svc
}

// List returns the user's service orders with client and line items, newest
// first. When the joined query fails on a missing relation the orders are
// loaded with separate queries instead.
func (s *Services) List(ctx context.Context) ([]models.ServiceOrder, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := queryRecords(ctx, s.db, joinedServiceSelect+`
		WHERE so.user_id = ? ORDER BY so.created_at DESC, so.rowid DESC
	`, userID)
	if err == nil {
		return mapRecords(rows, toJoinedServiceOrder), nil
	}
	if !isRelationshipError(err) {
		return nil, s.fail("service_orders.list", err)
	}
	s.logger.Warn("joined service fetch failed, loading separately",
		zap.String("op", "service_orders.list"), zap.Error(err))

	rows, err = queryRecords(ctx, s.db, `
		SELECT * FROM service_orders WHERE user_id = ? ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, s.fail("service_orders.list.base", err)
	}
	services := mapRecords(rows, toServiceOrder)
	clients := s.clientsByID(ctx, s.db, services)
	for i := range services {
		if c, ok := clients[services[i].ClientID]; ok {
			services[i].Client = &c
		}
		s.logChildErrors("service_orders.list", loadChildren(ctx, s.db, &services[i]))
	}
	return services, nil
}

// Get returns one service order with client and line items.
func (s *Services) Get(ctx context.Context, id string) (models.ServiceOrder, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return models.ServiceOrder{}, err
	}

	rows, err := queryRecords(ctx, s.db, joinedServiceSelect+`
		WHERE so.id = ? AND so.user_id = ?
	`, id, userID)
	if err == nil {
		if len(rows) == 0 {
			return models.ServiceOrder{}, s.fail("service_orders.get", notFound("service_orders.get"))
		}
		return toJoinedServiceOrder(rows[0]), nil
	}
	if !isRelationshipError(err) {
		return models.ServiceOrder{}, s.fail("service_orders.get", err)
	}
	s.logger.Warn("joined service fetch failed, loading separately",
		zap.String("op", "service_orders.get"), zap.Error(err))

	svc, err := loadService(ctx, s.db, userID, id)
	if err != nil {
		return models.ServiceOrder{}, s.fail("service_orders.get.base", err)
	}
	if svc.ClientID != "" {
		if c, ok := s.clientsByID(ctx, s.db, []models.ServiceOrder{svc})[svc.ClientID]; ok {
			svc.Client = &c
		}
	}
	s.logChildErrors("service_orders.get", loadChildren(ctx, s.db, &svc))
	return svc, nil
}

func (s *Services) logChildErrors(op string, errs []error) {
	for _, err := range errs {
		s.logger.Warn("service child fetch failed", zap.String("op", op), zap.Error(err))
	}
}

func (s *Services) clientsByID(ctx context.Context, q querier, services []models.ServiceOrder) map[string]models.Client {
	out := make(map[string]models.Client)
	for _, svc := range services {
		if svc.ClientID == "" {
			continue
		}
		if _, seen := out[svc.ClientID]; seen {
			continue
		}
		row, err := queryRecord(ctx, q, `SELECT * FROM clients WHERE id = ?`, svc.ClientID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("service client fetch failed", zap.String("client_id", svc.ClientID), zap.Error(err))
			}
			continue
		}
		out[svc.ClientID] = toClient(row)
	}
	return out
}

func loadService(ctx context.Context, q querier, userID, id string) (models.ServiceOrder, error) {
	row, err := queryRecord(ctx, q, `SELECT * FROM service_orders WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return models.ServiceOrder{}, err
	}
	return toServiceOrder(row), nil
}

// loadChildren fills the line items of svc with one query per table. Each
// table that fails is skipped and its error returned.
func loadChildren(ctx context.Context, q querier, svc *models.ServiceOrder) []error {
	var errs []error
	load := func(table, order string, fill func([]record)) {
		rows, err := queryRecords(ctx, q, `SELECT * FROM `+table+` WHERE service_id = ? ORDER BY `+order, svc.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", table, err))
			return
		}
		fill(rows)
	}

	load("service_items", "position", func(rows []record) { svc.Items = mapRecords(rows, toServiceItem) })
	load("service_inks", "position", func(rows []record) { svc.Inks = mapRecords(rows, toServiceInk) })
	load("service_extras", "position", func(rows []record) { svc.Extras = mapRecords(rows, toAdjustment) })
	load("service_discounts", "position", func(rows []record) { svc.Discounts = mapRecords(rows, toAdjustment) })
	load("service_payments", "paid_at", func(rows []record) { svc.Payments = mapRecords(rows, toPayment) })
	load("service_comments", "created_at", func(rows []record) { svc.Comments = mapRecords(rows, toComment) })
	return errs
}

// Create inserts a service order with its line items and computed totals.
func (s *Services) Create(ctx context.Context, in ServiceInput) (models.ServiceOrder, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return models.ServiceOrder{}, err
	}

	id := uuid.NewString()
	err = s.withTx(ctx, "service_orders.create", func(tx *sql.Tx) error {
		if err := checkClient(ctx, tx, userID, in.ClientID); err != nil {
			return err
		}
		order := in.Order()
		if err := snapshotLines(ctx, tx, userID, nil, &order); err != nil {
			return err
		}
		now := s.now()
		order.ID = id
		order.UserID = userID
		order.CreatedAt = now
		order.UpdatedAt = now
		return insertService(ctx, tx, order)
	})
	if err != nil {
		return models.ServiceOrder{}, err
	}
	return s.Get(ctx, id)
}

// Quote prices in the way Create would, snapshotting catalog costs into
// the lines, without writing anything.
func (s *Services) Quote(ctx context.Context, in ServiceInput) (models.ServiceOrder, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return models.ServiceOrder{}, err
	}
	if err := checkClient(ctx, s.db, userID, in.ClientID); err != nil {
		return models.ServiceOrder{}, s.fail("service_orders.quote", err)
	}

	order := in.Order()
	if err := snapshotLines(ctx, s.db, userID, nil, &order); err != nil {
		return models.ServiceOrder{}, s.fail("service_orders.quote", err)
	}
	order.UserID = userID
	return order, nil
}

// Update replaces the header and line items of a service order. Payments and
// comments are kept. Lines that already exist keep their snapshot costs.
func (s *Services) Update(ctx context.Context, id string, in ServiceInput) (models.ServiceOrder, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return models.ServiceOrder{}, err
	}

	err = s.withTx(ctx, "service_orders.update", func(tx *sql.Tx) error {
		existing, err := loadService(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if errs := loadChildren(ctx, tx, &existing); len(errs) > 0 {
			return errs[0]
		}
		if err := checkClient(ctx, tx, userID, in.ClientID); err != nil {
			return err
		}

		order := in.Order()
		if err := snapshotLines(ctx, tx, userID, &existing, &order); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE service_orders SET
				client_id = ?, name = ?, status = ?, due_date = ?, labor_hours = ?, labor_rate = ?,
				markup = ?, manual_price = ?, total_cost = ?, price = ?, profit = ?, margin = ?,
				updated_at = ?
			WHERE id = ? AND user_id = ?
		`,
			nullString(order.ClientID), order.Name, order.Status, formatOptionalTime(order.DueDate),
			order.LaborHours, order.LaborRate, nullFloat(order.Markup), nullFloat(order.ManualPrice),
			order.Totals.TotalCost, order.Totals.Price, order.Totals.Profit, order.Totals.Margin,
			formatTime(s.now()), id, userID,
		); err != nil {
			return err
		}

		for _, table := range []string{"service_items", "service_inks", "service_extras", "service_discounts"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE service_id = ?`, id); err != nil {
				return err
			}
		}
		order.ID = id
		return insertLines(ctx, tx, order)
	})
	if err != nil {
		return models.ServiceOrder{}, err
	}
	return s.Get(ctx, id)
}

// Remove deletes a service order and every row that belongs to it.
func (s *Services) Remove(ctx context.Context, id string) error {
	userID, err := s.owner(ctx)
	if err != nil {
		return err
	}

	return s.withTx(ctx, "service_orders.remove", func(tx *sql.Tx) error {
		if err := checkService(ctx, tx, userID, id); err != nil {
			return err
		}
		return deleteServices(ctx, tx, `WHERE id = ?`, id)
	})
}

func deleteServices(ctx context.Context, q querier, where string, args ...any) error {
	for _, table := range []string{
		"service_items", "service_inks", "service_extras",
		"service_discounts", "service_payments", "service_comments",
	} {
		if _, err := q.ExecContext(ctx, `
			DELETE FROM `+table+` WHERE service_id IN (SELECT id FROM service_orders `+where+`)
		`, args...); err != nil {
			return err
		}
	}
	_, err := q.ExecContext(ctx, `DELETE FROM service_orders `+where, args...)
	return err
}

// AddPayment records a payment for a service order.
func (s *Services) AddPayment(ctx context.Context, serviceID string, in PaymentInput) (models.Payment, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return models.Payment{}, err
	}

	payment := models.Payment{ID: uuid.NewString(), Amount: in.Amount, Method: in.Method, PaidAt: s.now()}
	if in.PaidAt != nil {
		payment.PaidAt = in.PaidAt.UTC()
	}
	err = s.withTx(ctx, "service_payments.create", func(tx *sql.Tx) error {
		if err := checkService(ctx, tx, userID, serviceID); err != nil {
			return err
		}
		return insertPayment(ctx, tx, serviceID, payment)
	})
	if err != nil {
		return models.Payment{}, err
	}
	return payment, nil
}

// AddComment appends a comment to a service order.
func (s *Services) AddComment(ctx context.Context, serviceID, body string) (models.Comment, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return models.Comment{}, err
	}

	comment := models.Comment{ID: uuid.NewString(), Body: body, CreatedAt: s.now()}
	err = s.withTx(ctx, "service_comments.create", func(tx *sql.Tx) error {
		if err := checkService(ctx, tx, userID, serviceID); err != nil {
			return err
		}
		return insertComment(ctx, tx, serviceID, comment)
	})
	if err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

func checkService(ctx context.Context, q querier, userID, id string) error {
	_, err := queryRecord(ctx, q, `SELECT id FROM service_orders WHERE id = ? AND user_id = ?`, id, userID)
	return err
}

func checkClient(ctx context.Context, q querier, userID, clientID string) error {
	if clientID == "" {
		return nil
	}
	_, err := queryRecord(ctx, q, `SELECT id FROM clients WHERE id = ? AND user_id = ?`, clientID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &BackendError{
			Message: "cliente não encontrado",
			Details: clientID,
			Err:     ErrNotFound,
		}
	}
	return err
}

// snapshotLines fixes the unit and cost snapshot of every line. Lines already
// saved on existing keep their snapshot; new lines copy the current catalog
// price when the referenced material or ink is found.
func snapshotLines(ctx context.Context, q querier, userID string, existing *models.ServiceOrder, order *models.ServiceOrder) error {
	savedItems := map[string]models.ServiceItem{}
	savedInks := map[string]models.ServiceInk{}
	if existing != nil {
		for _, item := range existing.Items {
			savedItems[item.ID] = item
		}
		for _, ink := range existing.Inks {
			savedInks[ink.ID] = ink
		}
	}

	for i, item := range order.Items {
		if saved, ok := savedItems[item.ID]; ok && item.ID != "" {
			order.Items[i].Unit = saved.Unit
			order.Items[i].UnitCostSnapshot = saved.UnitCostSnapshot
			continue
		}
		order.Items[i].ID = ""
		if item.MaterialID == "" {
			continue
		}
		row, err := queryRecord(ctx, q, `SELECT * FROM materials WHERE id = ? AND user_id = ?`, item.MaterialID, userID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		material := toMaterial(row)
		order.Items[i].Unit = material.Unit
		order.Items[i].UnitCostSnapshot = material.CostPerUnit
	}

	for i, ink := range order.Inks {
		if saved, ok := savedInks[ink.ID]; ok && ink.ID != "" {
			order.Inks[i].CostPerLiterSnapshot = saved.CostPerLiterSnapshot
			continue
		}
		order.Inks[i].ID = ""
		if ink.InkID == "" {
			continue
		}
		row, err := queryRecord(ctx, q, `SELECT * FROM inks WHERE id = ? AND user_id = ?`, ink.InkID, userID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		order.Inks[i].CostPerLiterSnapshot = toInk(row).CostPerLiter
	}

	order.Totals = order.ComputeTotals()
	return nil
}

// insertService writes a complete order: header, line items, payments and comments.
func insertService(ctx context.Context, q querier, order models.ServiceOrder) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO service_orders (
			id, user_id, client_id, name, status, due_date, labor_hours, labor_rate,
			markup, manual_price, total_cost, price, profit, margin, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		order.ID, order.UserID, nullString(order.ClientID), order.Name, order.Status,
		formatOptionalTime(order.DueDate), order.LaborHours, order.LaborRate,
		nullFloat(order.Markup), nullFloat(order.ManualPrice),
		order.Totals.TotalCost, order.Totals.Price, order.Totals.Profit, order.Totals.Margin,
		formatTime(order.CreatedAt), formatTime(order.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert service order: %w", err)
	}

	if err := insertLines(ctx, q, order); err != nil {
		return err
	}
	for _, p := range order.Payments {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if err := insertPayment(ctx, q, order.ID, p); err != nil {
			return err
		}
	}
	for _, c := range order.Comments {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if err := insertComment(ctx, q, order.ID, c); err != nil {
			return err
		}
	}
	return nil
}

func insertLines(ctx context.Context, q querier, order models.ServiceOrder) error {
	for pos, item := range order.Items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO service_items (
				id, service_id, material_id, unit, quantity, meters, width, height, unit_cost_snapshot, position
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, item.ID, order.ID, nullString(item.MaterialID), string(item.Unit), item.Quantity,
			item.Meters, item.Width, item.Height, item.UnitCostSnapshot, pos); err != nil {
			return fmt.Errorf("insert service item: %w", err)
		}
	}

	for pos, ink := range order.Inks {
		if ink.ID == "" {
			ink.ID = uuid.NewString()
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO service_inks (id, service_id, ink_id, ml_used, cost_per_liter_snapshot, position)
			VALUES (?, ?, ?, ?, ?, ?)
		`, ink.ID, order.ID, nullString(ink.InkID), ink.MLUsed, ink.CostPerLiterSnapshot, pos); err != nil {
			return fmt.Errorf("insert service ink: %w", err)
		}
	}

	adjustments := []struct {
		table string
		lines []models.ServiceAdjustment
	}{
		{"service_extras", order.Extras},
		{"service_discounts", order.Discounts},
	}
	for _, group := range adjustments {
		for pos, line := range group.lines {
			if line.ID == "" {
				line.ID = uuid.NewString()
			}
			if _, err := q.ExecContext(ctx, `
				INSERT INTO `+group.table+` (id, service_id, description, value, position)
				VALUES (?, ?, ?, ?, ?)
			`, line.ID, order.ID, line.Description, line.Value, pos); err != nil {
				return fmt.Errorf("insert %s: %w", group.table, err)
			}
		}
	}
	return nil
}

func insertPayment(ctx context.Context, q querier, serviceID string, p models.Payment) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO service_payments (id, service_id, amount, method, paid_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, serviceID, p.Amount, p.Method, formatTime(p.PaidAt)); err != nil {
		return fmt.Errorf("insert service payment: %w", err)
	}
	return nil
}

func insertComment(ctx context.Context, q querier, serviceID string, c models.Comment) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO service_comments (id, service_id, body, created_at)
		VALUES (?, ?, ?, ?)
	`, c.ID, serviceID, c.Body, formatTime(c.CreatedAt)); err != nil {
		return fmt.Errorf("insert service comment: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
