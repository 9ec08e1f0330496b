// Package scoped runs work against a borrowed resource and guarantees the
// resource is handed back.
//
// Run acquires a resource, passes it to a callback and releases it on every
// exit path: normal return, returned error, cancelled context and panic.
//
//	err := scoped.Run(ctx, acquireConn, func(ctx context.Context, c *pgxpool.Conn) error {
//	    _, err := c.Exec(ctx, "SELECT 1")
//	    return err
//	})
package scoped

import (
	"context"
	"errors"
	"fmt"
)

// ErrNilRelease indicates an acquire function returned no release func.
var ErrNilRelease = errors.New("scoped: acquire returned nil release")

// Run acquires a resource, runs fn with it and releases it afterwards.
// acquire returns the resource and the func that hands it back.
// A panic in fn is re-raised after the release has run.
func Run[T any](ctx context.Context, acquire func(context.Context) (T, func(), error), fn func(context.Context, T) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, release, err := acquire(ctx)
	if err != nil {
		return fmt.Errorf("scoped: acquire: %w", err)
	}
	if release == nil {
		return ErrNilRelease
	}
	defer release()

	return fn(ctx, res)
}

// Value is like Run but returns the value computed by fn.
func Value[T, V any](ctx context.Context, acquire func(context.Context) (T, func(), error), fn func(context.Context, T) (V, error)) (V, error) {
	var out V
	err := Run(ctx, acquire, func(ctx context.Context, res T) error {
		v, err := fn(ctx, res)
		out = v
		return err
	})
	return out, err
}
