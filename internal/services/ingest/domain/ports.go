package domain

import (
	"context"
	"time"

	perr "driftwatch/internal/platform/errors"
)

// ErrNotYetPublished marks the head interval whose archive the feed has not
// served yet. The run loop sleeps and retries instead of burning retry budget
var ErrNotYetPublished = perr.NotFoundf("ingest: interval not yet published")

// RunnerPort is the public port exposed by the ingest module
type RunnerPort interface {
	// Run polls the feed until ctx is cancelled
	Run(ctx context.Context) error

	// RunOnce attempts exactly one interval; advanced reports whether the
	// checkpoint moved
	RunOnce(ctx context.Context) (advanced bool, err error)
}

// FeedPort produces one canonical batch per interval.
// A historical gap (archive permanently absent) comes back as an empty batch;
// only the publication head returns ErrNotYetPublished
type FeedPort interface {
	Fetch(ctx context.Context, interval time.Time) (Batch, error)
}

// CheckpointStore persists ingestion progress
type CheckpointStore interface {
	Load(ctx context.Context) (Checkpoint, error)
	Save(ctx context.Context, ck Checkpoint) error
}

// LedgerRepo records per interval outcomes for operational visibility.
// Optional: the run loop works without one
type LedgerRepo interface {
	StartBatch(ctx context.Context, interval time.Time) error
	FinishBatch(ctx context.Context, interval time.Time, fin BatchFinish) error
}
