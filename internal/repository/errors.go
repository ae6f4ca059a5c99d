package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is wrapped by BackendError when a row does not exist or is not
// owned by the current user.
var ErrNotFound = errors.New("registro não encontrado")

// BackendError describes a failed data access call.
type BackendError struct {
	Op      string
	Message string
	Details string
	Hint    string
	Code    string
	Err     error
}

// Error joins message, details and hint, skipping empty parts.
func (e *BackendError) Error() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Message, e.Details, e.Hint} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "erro desconhecido"
	}
	return strings.Join(parts, " - ")
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Message returns the user-facing text of err.
func Message(err error) string {
	if err == nil {
		return "erro desconhecido"
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Error()
	}
	return err.Error()
}

func backendError(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}

	out := &BackendError{Op: op, Message: err.Error(), Err: err}
	if errors.Is(err, sql.ErrNoRows) {
		out.Message = ErrNotFound.Error()
		out.Err = fmt.Errorf("%w: %w", ErrNotFound, err)
		return out
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		out.Code = fmt.Sprintf("SQLITE_%d", code)
		out.Details = fmt.Sprintf("código %d", code)
		switch code {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			out.Hint = "verifique se o registro relacionado existe"
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			out.Hint = "já existe um registro com este identificador"
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			out.Hint = "o banco está ocupado, tente novamente"
		}
	}
	return out
}

func notFound(op string) error {
	return &BackendError{Op: op, Message: ErrNotFound.Error(), Err: ErrNotFound}
}

// isRelationshipError reports whether a joined fetch failed because the
// schema lacks a relation, in which case separate queries are used instead.
func isRelationshipError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"no such table",
		"no such column",
		"could not find a relationship",
		"schema cache",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
