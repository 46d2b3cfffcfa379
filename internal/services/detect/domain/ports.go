package domain

import "context"

// RunnerPort is the public port exposed by the detect module
type RunnerPort interface {
	// Run scores the discovery log until ctx is cancelled
	Run(ctx context.Context) error

	// RunOnce performs a single scoring pass; it reports how many
	// (entity, bucket) pairs were scored and how many alerts were emitted
	RunOnce(ctx context.Context) (scored, emitted int, err error)
}

// SinkPort receives emitted alerts. Sinks are best effort: a failing sink is
// logged and skipped, it never blocks scoring or the other sinks
type SinkPort interface {
	Publish(ctx context.Context, a Alert) error
	Name() string
}

// ReaderPort serves recent alerts for the ops API
type ReaderPort interface {
	Recent(ctx context.Context, limit int) ([]Alert, error)
}
