package postgres

import (
	"context"
	"database/sql"

	"eventpulse/internal/metrics"
)

// DBTX abstracts *sqlx.DB and *sqlx.Tx so repositories run unchanged inside
// a transaction, which is how the tests get rollback isolation
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row

	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// Instrument wraps a DBTX so every call lands in the query counter. The
// production wiring instruments the pool once; tests pass the bare tx.
func Instrument(db DBTX) DBTX {
	return &instrumentedDB{inner: db}
}

type instrumentedDB struct {
	inner DBTX
}

var _ DBTX = (*instrumentedDB)(nil)

func countQuery(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueries.WithLabelValues("postgres", operation, status).Inc()
}

func (d *instrumentedDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	res, err := d.inner.ExecContext(ctx, query, args...)
	countQuery("exec", err)
	return res, err
}

func (d *instrumentedDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	rows, err := d.inner.QueryContext(ctx, query, args...)
	countQuery("query", err)
	return rows, err
}

func (d *instrumentedDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	countQuery("query_row", nil)
	return d.inner.QueryRowContext(ctx, query, args...)
}

func (d *instrumentedDB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	err := d.inner.GetContext(ctx, dest, query, args...)
	countQuery("get", err)
	return err
}

func (d *instrumentedDB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	err := d.inner.SelectContext(ctx, dest, query, args...)
	countQuery("select", err)
	return err
}

func (d *instrumentedDB) NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	res, err := d.inner.NamedExecContext(ctx, query, arg)
	countQuery("named_exec", err)
	return res, err
}
