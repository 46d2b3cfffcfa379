package store

import (
	"context"
	"errors"
	"time"

	"driftwatch/internal/platform/logger"
	"driftwatch/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgAdapter wraps pg.PG and implements RowQuerier + TxRunner
// it also emits slow-query log lines when logSQL is enabled
type pgAdapter struct {
	p      *pg.PG
	log    logger.Logger
	logSQL bool
	slowMs int
}

func newPGAdapter(p *pg.PG, log logger.Logger, logSQL bool, slowMs int) *pgAdapter {
	return &pgAdapter{p: p, log: log, logSQL: logSQL, slowMs: slowMs}
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil {
		return errors.New("pg: nil adapter")
	}
	var one int
	return a.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (a *pgAdapter) Close() error { a.p.Close(); return nil }

func (a *pgAdapter) emit(sql string, start time.Time, err error) {
	if !a.logSQL {
		return
	}
	elapsed := time.Since(start)
	evt := a.log.Debug()
	if a.slowMs > 0 && elapsed >= time.Duration(a.slowMs)*time.Millisecond {
		evt = a.log.Warn().Bool("slow", true)
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		evt = a.log.Error().Err(err)
	}
	evt.Str("sql", sql).Dur("elapsed", elapsed).Msg("pg query")
}

func (a *pgAdapter) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := a.p.Pool.Exec(ctx, sql, args...)
	a.emit(sql, start, err)
	return tag{ct}, err
}

func (a *pgAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := a.p.Pool.Query(ctx, sql, args...)
	a.emit(sql, start, err)
	if err != nil {
		return nil, err
	}
	return pgRows{r: rs}, nil
}

func (a *pgAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	r := a.p.Pool.QueryRow(ctx, sql, args...)
	return pgRow{r: r, after: func(scanErr error) { a.emit(sql, start, scanErr) }}
}

// Tx runs fn inside a transaction, committing on nil and rolling back otherwise
func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	q := txQuerier{tx: tx, a: a}
	if err := fn(q); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// txQuerier scopes the adapter surface to a single pgx.Tx
type txQuerier struct {
	tx pgx.Tx
	a  *pgAdapter
}

func (t txQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := t.tx.Exec(ctx, sql, args...)
	t.a.emit(sql, start, err)
	return tag{ct}, err
}

func (t txQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := t.tx.Query(ctx, sql, args...)
	t.a.emit(sql, start, err)
	if err != nil {
		return nil, err
	}
	return pgRows{r: rs}, nil
}

func (t txQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	r := t.tx.QueryRow(ctx, sql, args...)
	return pgRow{r: r, after: func(scanErr error) { t.a.emit(sql, start, scanErr) }}
}

// tag adapts pgconn.CommandTag
type tag struct{ ct pgconn.CommandTag }

func (t tag) String() string      { return t.ct.String() }
func (t tag) RowsAffected() int64 { return t.ct.RowsAffected() }

// pgRows adapts pgx.Rows
type pgRows struct{ r pgx.Rows }

func (r pgRows) Next() bool             { return r.r.Next() }
func (r pgRows) Scan(dest ...any) error { return r.r.Scan(dest...) }
func (r pgRows) Err() error             { return r.r.Err() }
func (r pgRows) Close()                 { r.r.Close() }

// pgRow adapts pgx.Row and emits the trace line after Scan completes
type pgRow struct {
	r     pgx.Row
	after func(error)
}

func (r pgRow) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if r.after != nil {
		r.after(err)
	}
	return err
}
