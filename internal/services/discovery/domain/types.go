// Package domain holds the core types for the discovery log
package domain

import "time"

// Record is one canonical entity observation extracted from a feed batch.
// It is the only row shape the log stores; downstream consumers fold these
// into per-bucket counts keyed by EntityID
type Record struct {
	EntityID  string    `json:"entity_id"`
	Timestamp time.Time `json:"ts"`
	Mentions  int64     `json:"mentions"`
	BatchID   string    `json:"batch_id"`
}

// Valid reports whether the record carries the minimum required fields
func (r Record) Valid() bool {
	return r.EntityID != "" && !r.Timestamp.IsZero() && r.Mentions > 0
}
