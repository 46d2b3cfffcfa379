package store

import (
	"context"

	"driftwatch/internal/platform/store/ch"
)

// chAdapter bridges *ch.CH to the store.Clickhouse seam
type chAdapter struct{ inner *ch.CH }

var _ Clickhouse = (*chAdapter)(nil)

func newCHAdapter(c *ch.CH) Clickhouse { return &chAdapter{inner: c} }

func (a *chAdapter) InsertBatch(ctx context.Context, query string, rows [][]any) error {
	return a.inner.InsertBatch(ctx, query, rows)
}

func (a *chAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := a.inner.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return chRowsAdapter{r: r}, nil
}

func (a *chAdapter) Ping(ctx context.Context) error { return a.inner.Ping(ctx) }

func (a *chAdapter) Close() error { return a.inner.Close() }

// chRowsAdapter wraps ch.Rows as store.Rows
type chRowsAdapter struct{ r ch.Rows }

func (r chRowsAdapter) Next() bool             { return r.r.Next() }
func (r chRowsAdapter) Scan(dest ...any) error { return r.r.Scan(dest...) }
func (r chRowsAdapter) Err() error             { return r.r.Err() }
func (r chRowsAdapter) Close()                 { r.r.Close() }
