// Package database manages the process-wide PostgreSQL connection pool and
// the probes run against it.
//
// A Manager owns at most one pgxpool.Pool. The pool is created lazily on the
// first call that needs it and disposed by Close; a later call creates a
// fresh one. Configuration errors surface from NewManager before any network
// activity.
//
// # Scoped access
//
// Acquire checks a connection out of the pool, runs a function with it and
// returns it on every exit path, including a panic in the function. WithTx
// adds a transaction: commit when the function succeeds, rollback otherwise.
//
//	err := mgr.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
//	    _, err := tx.Exec(ctx, "INSERT INTO readings(value) VALUES ($1)", 21.5)
//	    return err
//	})
//
// # Probes
//
// Probe runs SELECT 1 plus two cheap catalog queries and classifies the round
// trip with health.Classify. The Manager implements health.Checker under the
// name "postgres". The boolean helpers (Ping, TestConnection,
// ConnectWithRetry, ConnectWithTimeout) never return errors: failures are
// logged and reported as false.
package database
