// Package service implements baseline building over the discovery log
package service

import (
	"context"
	"time"

	"driftwatch/internal/core/stats"
	perr "driftwatch/internal/platform/errors"
	"driftwatch/internal/platform/logger"
	"driftwatch/internal/platform/metrics"
	ptime "driftwatch/internal/platform/time"
	"driftwatch/internal/services/baseline/domain"
	discoverydom "driftwatch/internal/services/discovery/domain"
)

// feedInterval is the publication cadence of the upstream feed; buckets are
// only complete once every interval inside them is ingested
const feedInterval = 15 * time.Minute

// ErrNoData marks a log without a single complete bucket to build from
var ErrNoData = perr.NotFoundf("baseline: no complete buckets in discovery log")

// Config holds configuration options for the baseline builder
type Config struct {
	// BucketWidth is the aggregation window; <=0 -> 1h
	BucketWidth time.Duration

	// MinTotalMentions excludes entities below this raw volume from the
	// snapshot; they surface as undefined profiles downstream
	MinTotalMentions int64
}

// Service implements domain.BuilderPort
type Service struct {
	Log   discoverydom.LogPort
	Store domain.StorePort
	Cfg   Config
}

// New constructs the baseline service
func New(log discoverydom.LogPort, store domain.StorePort, cfg Config) *Service {
	if log == nil {
		panic("baseline.Service requires a non nil LogPort")
	}
	if store == nil {
		panic("baseline.Service requires a non nil StorePort")
	}
	if cfg.BucketWidth <= 0 {
		cfg.BucketWidth = time.Hour
	}
	return &Service{Log: log, Store: store, Cfg: cfg}
}

// Build folds the whole log into a snapshot and promotes it to current.
// The build is a full recompute: deterministic for a given log content
// regardless of how many partial builds ran before
func (s *Service) Build(ctx context.Context) (*domain.Snapshot, error) {
	start := time.Now()
	snap, excluded, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, snap); err != nil {
		return nil, err
	}
	metrics.BaselineBuildSeconds.Observe(time.Since(start).Seconds())
	metrics.BaselineEntities.WithLabelValues("defined").Set(float64(len(snap.Entities)))
	metrics.BaselineEntities.WithLabelValues("undefined").Set(float64(excluded))

	logger.C(ctx).Info().
		Time("first_bucket", snap.FirstBucket).
		Time("last_bucket", snap.LastBucket).
		Int("entities", len(snap.Entities)).
		Int("excluded", excluded).
		Dur("elapsed", time.Since(start)).
		Msg("baseline: snapshot built")
	return snap, nil
}

type entityAgg struct {
	buckets map[time.Time]int64
	total   int64
}

// compute folds the log into per entity per bucket counts, then derives
// moments over the zero filled bucket series
func (s *Service) compute(ctx context.Context) (*domain.Snapshot, int, error) {
	width := s.Cfg.BucketWidth
	aggs := map[string]*entityAgg{}
	var minIv, maxIv time.Time

	err := s.Log.Scan(ctx, func(r discoverydom.Record) error {
		// skip before range tracking: a zero timestamp must not widen the window
		if !r.Valid() {
			return nil
		}
		iv := r.Timestamp.UTC()
		if minIv.IsZero() || iv.Before(minIv) {
			minIv = iv
		}
		if iv.After(maxIv) {
			maxIv = iv
		}
		a := aggs[r.EntityID]
		if a == nil {
			a = &entityAgg{buckets: map[time.Time]int64{}}
			aggs[r.EntityID] = a
		}
		b := ptime.Bucket(iv, width)
		a.buckets[b] += r.Mentions
		a.total += r.Mentions
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if minIv.IsZero() {
		return nil, 0, ErrNoData
	}

	sourceBatch, _, err := s.Log.LatestBatch(ctx)
	if err != nil {
		return nil, 0, err
	}

	// the ingestion frontier is the latest batch interval, which can sit past
	// the last record when trailing intervals carried no mentions
	frontier := maxIv
	if iv, perr := ptime.ParseStamp(sourceBatch); perr == nil && iv.After(frontier) {
		frontier = iv
	}

	first := ptime.Bucket(minIv, width)
	last := ptime.Bucket(frontier, width)
	// drop the head bucket unless every interval inside it is ingested
	if last.Add(width).After(frontier.Add(feedInterval)) {
		last = last.Add(-width)
	}
	if last.Before(first) {
		return nil, 0, ErrNoData
	}

	snap := &domain.Snapshot{
		BuiltAt:     time.Now().UTC(),
		FirstBucket: first,
		LastBucket:  last,
		BucketWidth: width,
		SourceBatch: sourceBatch,
		Entities:    make(map[string]domain.Profile, len(aggs)),
	}

	excluded := 0
	for id, a := range aggs {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if a.total < s.Cfg.MinTotalMentions {
			excluded++
			continue
		}
		var w stats.Welford
		for b := first; !b.After(last); b = b.Add(width) {
			w.Add(float64(a.buckets[b]))
		}
		snap.Entities[id] = domain.Profile{
			EntityID:      id,
			Mean:          w.Mean(),
			StdDev:        w.StdDev(),
			SampleCount:   w.N(),
			TotalMentions: a.total,
			Defined:       true,
		}
	}
	return snap, excluded, nil
}
