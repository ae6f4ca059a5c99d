// Package repository is the data access layer. Every call is scoped to the
// user returned by the owner function, and every row is coerced into the
// model types in one place.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// OwnerFunc returns the id of the user owning the rows accessed under ctx.
type OwnerFunc func(ctx context.Context) (string, error)

// ErrNoOwner is returned by ContextOwner when no user was attached to the
// context.
var ErrNoOwner = errors.New("não autenticado")

type ownerKey struct{}

// WithOwner attaches the id of the user owning the request's rows.
func WithOwner(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, userID)
}

// ContextOwner is the OwnerFunc of the HTTP server: the owner travels with
// each request instead of being read from shared state.
func ContextOwner(ctx context.Context) (string, error) {
	userID, _ := ctx.Value(ownerKey{}).(string)
	if userID == "" {
		return "", ErrNoOwner
	}
	return userID, nil
}

// FixedOwner scopes every call to userID.
func FixedOwner(userID string) OwnerFunc {
	return func(context.Context) (string, error) { return userID, nil }
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Repository groups the per-table accessors.
type Repository struct {
	Clients   *Clients
	Materials *Materials
	Inks      *Inks
	Services  *Services
	Settings  *Settings

	base *base
}

type base struct {
	db     *sql.DB
	owner  OwnerFunc
	logger *zap.Logger
	now    func() time.Time
}

// New builds a Repository over db.
func New(db *sql.DB, owner OwnerFunc, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &base{
		db:     db,
		owner:  owner,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	return &Repository{
		Clients:   &Clients{b},
		Materials: &Materials{b},
		Inks:      &Inks{b},
		Services:  &Services{b},
		Settings:  &Settings{b},
		base:      b,
	}
}

// Ping checks that the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.base.db.PingContext(ctx)
}

// fail logs and normalizes a backend error.
func (b *base) fail(op string, err error) error {
	err = backendError(op, err)
	if be, ok := err.(*BackendError); ok {
		b.logger.Error("backend call failed",
			zap.String("op", op),
			zap.String("code", be.Code),
			zap.String("message", be.Error()),
		)
	}
	return err
}

func (b *base) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return b.fail(op, fmt.Errorf("begin transaction: %w", err))
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return b.fail(op, err)
	}
	if err := tx.Commit(); err != nil {
		return b.fail(op, fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// queryRecords runs query and returns every row keyed by column name.
func queryRecords(ctx context.Context, q querier, query string, args ...any) ([]record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(record, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func queryRecord(ctx context.Context, q querier, query string, args ...any) (record, error) {
	rows, err := queryRecords(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, sql.ErrNoRows
	}
	return rows[0], nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
