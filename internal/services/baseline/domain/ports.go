package domain

import "context"

// BuilderPort is the public port exposed by the baseline module
type BuilderPort interface {
	// Build folds the whole discovery log into a fresh snapshot and
	// persists it as current
	Build(ctx context.Context) (*Snapshot, error)
}

// StorePort persists and serves baseline snapshots
type StorePort interface {
	// Save makes the snapshot durable and promotes it to current
	Save(ctx context.Context, snap *Snapshot) error

	// Current loads the promoted snapshot; ok=false when none exists yet
	Current(ctx context.Context) (*Snapshot, bool, error)
}
