package repo

import (
	"context"
	"time"

	"driftwatch/internal/modkit/repokit"
	perr "driftwatch/internal/platform/errors"
	"driftwatch/internal/services/ingest/domain"
)

type queries struct{ q repokit.Queryer }

// NewPG returns a Postgres binder for domain.LedgerRepo
func NewPG() repokit.Binder[domain.LedgerRepo] {
	return repokit.BindFunc[domain.LedgerRepo](func(q repokit.Queryer) domain.LedgerRepo {
		return &queries{q: q}
	})
}

// StartBatch marks the start of an interval (idempotent)
func (r *queries) StartBatch(ctx context.Context, interval time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO ingest_batches (interval_utc, started_at, status)
		VALUES ($1, now(), 'running')
		ON CONFLICT (interval_utc) DO UPDATE
		SET started_at = now(), status = 'running', error = null, finished_at = null
	`, interval.UTC())
	return perr.FromPg(err, "ingest.StartBatch")
}

// FinishBatch records the outcome of an interval (idempotent)
func (r *queries) FinishBatch(ctx context.Context, interval time.Time, fin domain.BatchFinish) error {
	_, err := r.q.Exec(ctx, `
		UPDATE ingest_batches SET
			finished_at = now(),
			status = $2,
			records = $3,
			skipped = $4,
			fetch_ms = $5,
			elapsed_ms = $6,
			error = NULLIF($7,'')
		WHERE interval_utc = $1
	`, interval.UTC(), fin.Status, fin.Records, fin.Skipped, fin.FetchMS, fin.ElapsedMS, fin.ErrText)
	return perr.FromPg(err, "ingest.FinishBatch")
}

// PGCheckpoint implements domain.CheckpointStore over the singleton
// ingest_checkpoint row. Deployments that want progress visible in SQL use
// this instead of the file store
type PGCheckpoint struct {
	db repokit.TxRunner
}

// NewPGCheckpoint constructs the Postgres checkpoint store
func NewPGCheckpoint(db repokit.TxRunner) *PGCheckpoint { return &PGCheckpoint{db: db} }

// Load reads the checkpoint row; absence is a fresh start
func (p *PGCheckpoint) Load(ctx context.Context) (domain.Checkpoint, error) {
	var ck domain.Checkpoint
	err := repokit.WithTx(ctx, p.db, func(q repokit.Queryer) error {
		rows, err := q.Query(ctx, `SELECT last_interval FROM ingest_checkpoint WHERE id = 1`)
		if err != nil {
			return err
		}
		defer rows.Close()
		if rows.Next() {
			if err := rows.Scan(&ck.LastInterval); err != nil {
				return err
			}
			ck.LastInterval = ck.LastInterval.UTC()
		}
		return rows.Err()
	})
	return ck, perr.FromPg(err, "ingest.Checkpoint.Load")
}

// Save upserts the checkpoint row
func (p *PGCheckpoint) Save(ctx context.Context, ck domain.Checkpoint) error {
	err := repokit.WithTx(ctx, p.db, func(q repokit.Queryer) error {
		_, err := q.Exec(ctx, `
			INSERT INTO ingest_checkpoint (id, last_interval, updated_at)
			VALUES (1, $1, now())
			ON CONFLICT (id) DO UPDATE
			SET last_interval = EXCLUDED.last_interval, updated_at = now()
		`, ck.LastInterval.UTC())
		return err
	})
	return perr.FromPg(err, "ingest.Checkpoint.Save")
}
