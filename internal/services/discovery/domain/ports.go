package domain

import "context"

// LogPort is the public port exposed by the discovery module.
// Append is idempotent per batch: republishing a batch id that is already
// durable is a no-op, and a batch never becomes visible partially written
type LogPort interface {
	// Append makes the batch durable under its id
	Append(ctx context.Context, batchID string, recs []Record) error

	// Scan streams every record in batch id order, file order within a batch
	Scan(ctx context.Context, fn func(Record) error) error

	// ScanSince streams records from batches strictly after the given id
	ScanSince(ctx context.Context, afterBatchID string, fn func(Record) error) error

	// LatestBatch returns the highest batch id present, ok=false when empty
	LatestBatch(ctx context.Context) (string, bool, error)
}
