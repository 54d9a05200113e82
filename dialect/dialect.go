// Package dialect provides the database abstraction lkey rides on.
//
// The interfaces here are intentionally small: lkey never opens its own
// transactions and never retries. A Driver (or a Tx obtained from one) is
// handed to a session, and every statement the session issues goes through
// the ExecQuerier surface.
package dialect

import "context"

// Dialect names lkey understands when rendering SQL.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// ExecQuerier wraps the Exec and Query operations of a database connection,
// a pool, or a transaction.
type ExecQuerier interface {
	// Exec executes a statement that does not return rows. The v argument
	// may be nil, or a *sql.Result to receive the execution result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a statement that returns rows. The v argument must be
	// a *sql.Rows-compatible destination (see dialect/sql.Rows).
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the minimal interface a database driver exposes to lkey.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps transactional operations on top of the ExecQuerier surface.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

type nopTx struct {
	Driver
}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

// NopTx returns a Tx with a no-op Commit and Rollback.
func NopTx(d Driver) Tx {
	return nopTx{d}
}

// DebugDriver is a driver that logs all driver operations through the
// given print function.
type DebugDriver struct {
	Driver
	log func(context.Context, ...any)
}

// Debug wraps the given driver and logs all of its operations.
func Debug(d Driver, logger ...func(context.Context, ...any)) Driver {
	logf := func(ctx context.Context, v ...any) {}
	if len(logger) == 1 {
		logf = logger[0]
	}
	return &DebugDriver{d, logf}
}

// Exec logs its params and calls the underlying driver Exec method.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.log(ctx, "driver.Exec", query, args)
	return d.Driver.Exec(ctx, query, args, v)
}

// Query logs its params and calls the underlying driver Query method.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.log(ctx, "driver.Query", query, args)
	return d.Driver.Query(ctx, query, args, v)
}

// Tx adds an identifier to the wrapped transaction and logs all transaction operations.
func (d *DebugDriver) Tx(ctx context.Context) (Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	d.log(ctx, "driver.Tx started")
	return &DebugTx{tx, d.log, ctx}, nil
}

// DebugTx is a transaction implementation that logs all transaction operations.
type DebugTx struct {
	Tx
	log func(context.Context, ...any)
	ctx context.Context
}

// Exec logs its params and calls the underlying transaction Exec method.
func (d *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	d.log(ctx, "tx.Exec", query, args)
	return d.Tx.Exec(ctx, query, args, v)
}

// Query logs its params and calls the underlying transaction Query method.
func (d *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	d.log(ctx, "tx.Query", query, args)
	return d.Tx.Query(ctx, query, args, v)
}

// Commit logs the commit and calls the underlying transaction Commit method.
func (d *DebugTx) Commit() error {
	d.log(d.ctx, "tx.Commit")
	return d.Tx.Commit()
}

// Rollback logs the rollback and calls the underlying transaction Rollback method.
func (d *DebugTx) Rollback() error {
	d.log(d.ctx, "tx.Rollback")
	return d.Tx.Rollback()
}
