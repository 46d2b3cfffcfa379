// Package domain holds the core types and ports for baseline profiles
package domain

import (
	"time"

	ptime "driftwatch/internal/platform/time"
)

// Profile is the per entity statistical baseline over the bucket series.
// StdDev is the population standard deviation of per bucket mention counts,
// zero filled for buckets where the entity was absent
type Profile struct {
	EntityID      string  `json:"entity_id"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"std_dev"`
	SampleCount   int64   `json:"sample_count"`   // buckets folded, zero filled included
	TotalMentions int64   `json:"total_mentions"` // raw mention volume across the window
	Defined       bool    `json:"defined"`
}

// Snapshot is one immutable baseline build
type Snapshot struct {
	BuiltAt     time.Time          `json:"built_at"`
	FirstBucket time.Time          `json:"first_bucket"`
	LastBucket  time.Time          `json:"last_bucket"` // inclusive
	BucketWidth time.Duration      `json:"bucket_width"`
	SourceBatch string             `json:"source_batch"` // newest batch folded in
	Entities    map[string]Profile `json:"entities"`
}

// Lookup returns the profile for an entity; a miss comes back with
// Defined=false so callers can distinguish "never profiled" from a
// legitimately flat baseline
func (s *Snapshot) Lookup(entityID string) Profile {
	if s == nil {
		return Profile{}
	}
	p, ok := s.Entities[entityID]
	if !ok {
		return Profile{EntityID: entityID}
	}
	return p
}

// Buckets returns the number of buckets the snapshot spans
func (s *Snapshot) Buckets() int {
	if s == nil {
		return 0
	}
	return ptime.BucketsBetween(s.FirstBucket, s.LastBucket, s.BucketWidth)
}
