// Package repo provides alert storage over ClickHouse
package repo

import (
	"context"
	"time"

	perr "driftwatch/internal/platform/errors"
	"driftwatch/internal/platform/store"
	"driftwatch/internal/services/detect/domain"
)

// CH persists alerts into a columnar table and serves the recent-alerts
// query for the ops API. It doubles as a sink so detection deployments with
// ClickHouse enabled get durable alert history for free
type CH struct {
	ch store.Clickhouse
}

// NewCH constructs the ClickHouse alert repo
func NewCH(ch store.Clickhouse) *CH { return &CH{ch: ch} }

// Name implements domain.SinkPort
func (*CH) Name() string { return "clickhouse" }

// Publish implements domain.SinkPort
func (r *CH) Publish(ctx context.Context, a domain.Alert) error {
	const q = `
		INSERT INTO driftwatch_alerts
			(id, entity_id, bucket_start, bucket_width_s, count, mean, std_dev,
			 z_score, threshold, baseline_built_at, emitted_at)
	`
	rows := [][]any{{
		a.ID, a.EntityID, a.BucketStart, int64(a.BucketWidth.Seconds()), a.Count,
		a.Mean, a.StdDev, a.ZScore, a.Threshold, a.BaselineBuiltAt, a.EmittedAt,
	}}
	if err := r.ch.InsertBatch(ctx, q, rows); err != nil {
		return perr.DBf("ch: insert alert: %v", err)
	}
	return nil
}

// Recent implements domain.ReaderPort, newest first
func (r *CH) Recent(ctx context.Context, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT id, entity_id, bucket_start, bucket_width_s, count, mean, std_dev,
		       z_score, threshold, baseline_built_at, emitted_at
		FROM driftwatch_alerts
		ORDER BY emitted_at DESC
		LIMIT ?
	`
	rows, err := r.ch.Query(ctx, q, limit)
	if err != nil {
		return nil, perr.DBf("ch: recent alerts: %v", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var widthS int64
		if err := rows.Scan(
			&a.ID, &a.EntityID, &a.BucketStart, &widthS, &a.Count, &a.Mean, &a.StdDev,
			&a.ZScore, &a.Threshold, &a.BaselineBuiltAt, &a.EmittedAt,
		); err != nil {
			return nil, perr.DBf("ch: scan alert: %v", err)
		}
		a.BucketWidth = time.Duration(widthS) * time.Second
		out = append(out, a)
	}
	return out, rows.Err()
}
