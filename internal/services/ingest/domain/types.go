// Package domain holds the core types and ports for feed ingestion
package domain

import (
	"time"

	discoverydom "driftwatch/internal/services/discovery/domain"
)

// Checkpoint records ingestion progress. LastInterval is the start of the
// newest interval whose batch is durable in the discovery log; the zero
// value means no interval has been ingested yet
type Checkpoint struct {
	LastInterval time.Time `json:"last_interval"`
}

// Defined reports whether the checkpoint points at a real interval
func (c Checkpoint) Defined() bool { return !c.LastInterval.IsZero() }

// Batch is one interval's worth of canonical records plus parse accounting
type Batch struct {
	ID       string    // interval stamp, doubles as the discovery segment id
	Interval time.Time // interval start UTC
	Records  []discoverydom.Record
	Skipped  int // malformed rows dropped during parse
}

// BatchFinish captures the outcome of one interval for the ledger
type BatchFinish struct {
	Status    string // ok | empty | failed | skipped
	Records   int
	Skipped   int
	FetchMS   int
	ElapsedMS int
	ErrText   string
}
