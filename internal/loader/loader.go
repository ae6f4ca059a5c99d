// Package loader runs loads whose result is applied only while the caller is
// still waiting for it.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/Simplici0/printdesk/internal/repository"
)

// ErrStale is returned when the caller's context ended before the result
// could be applied.
var ErrStale = errors.New("load result discarded")

// LoadError carries the user-facing message of a failed load.
type LoadError struct {
	Op      string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Run calls load and hands its result to apply unless ctx was cancelled in
// the meantime. Failures are returned as *LoadError.
func Run[T any](ctx context.Context, op string, load func(context.Context) (T, error), apply func(T)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%w: %w", ErrStale, err)
	}

	data, err := load(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, fmt.Errorf("%w: %w", ErrStale, ctxErr)
	}
	if err != nil {
		return zero, &LoadError{Op: op, Message: repository.Message(err), Err: err}
	}

	if apply != nil {
		apply(data)
	}
	return data, nil
}
