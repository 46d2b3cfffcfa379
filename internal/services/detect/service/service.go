// Package service implements online anomaly scoring over the discovery log
package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"driftwatch/internal/core/stats"
	"driftwatch/internal/platform/logger"
	"driftwatch/internal/platform/metrics"
	ptime "driftwatch/internal/platform/time"
	baselinedom "driftwatch/internal/services/baseline/domain"
	"driftwatch/internal/services/detect/domain"
	discoverydom "driftwatch/internal/services/discovery/domain"
)

// feedInterval is the publication cadence of the upstream feed
const feedInterval = 15 * time.Minute

// Config holds configuration options for the detector
type Config struct {
	// BucketWidth must match the baseline builder's; <=0 -> 1h
	BucketWidth time.Duration

	// Threshold is the one sided z-score cut; <=0 -> 3
	Threshold float64

	// ColdStartMinSamples suppresses alerts for profiles built over fewer
	// buckets than this
	ColdStartMinSamples int64

	// MinTotalMentions suppresses alerts for profiles below this raw volume
	MinTotalMentions int64

	// PollInterval paces the scoring loop; <=0 -> 30s
	PollInterval time.Duration
}

// Service implements domain.RunnerPort
type Service struct {
	Log       discoverydom.LogPort
	Baselines baselinedom.StorePort
	Sinks     []domain.SinkPort
	Cfg       Config

	mu        sync.Mutex
	snap      *baselinedom.Snapshot
	lastBatch string
	open      map[time.Time]map[string]int64 // bucket -> entity -> count
	emitted   map[time.Time]map[string]struct{}
	degraded  bool
}

// New constructs the detector
func New(log discoverydom.LogPort, baselines baselinedom.StorePort, sinks []domain.SinkPort, cfg Config) *Service {
	if log == nil {
		panic("detect.Service requires a non nil LogPort")
	}
	if baselines == nil {
		panic("detect.Service requires a non nil baseline StorePort")
	}
	if cfg.BucketWidth <= 0 {
		cfg.BucketWidth = time.Hour
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	return &Service{
		Log:       log,
		Baselines: baselines,
		Sinks:     sinks,
		Cfg:       cfg,
		open:      map[time.Time]map[string]int64{},
		emitted:   map[time.Time]map[string]struct{}{},
	}
}

// Run scores the log until ctx is cancelled
func (s *Service) Run(ctx context.Context) error {
	poll := s.Cfg.PollInterval
	if poll <= 0 {
		poll = 30 * time.Second
	}
	for {
		if _, _, err := s.RunOnce(ctx); err != nil {
			return err
		}
		if err := ptime.Sleep(ctx, poll); err != nil {
			return err
		}
	}
}

// RunOnce performs one scoring pass: refresh the baseline, fold new batches
// into open buckets, then score and retire every bucket that has closed
func (s *Service) RunOnce(ctx context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := logger.C(ctx)

	if err := s.refreshBaseline(ctx, log); err != nil {
		return 0, 0, err
	}
	if s.snap == nil {
		// degraded: without a baseline nothing can be scored; leave the log
		// unconsumed so a later pass scores the full backlog
		return 0, 0, nil
	}

	if err := s.consume(ctx); err != nil {
		return 0, 0, err
	}
	return s.scoreClosed(ctx, log)
}

// refreshBaseline swaps in a newer snapshot when the store has one
func (s *Service) refreshBaseline(ctx context.Context, log *logger.Logger) error {
	cur, ok, err := s.Baselines.Current(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if !s.degraded {
			s.degraded = true
			log.Warn().Msg("detect: no baseline snapshot, running degraded until one is built")
		}
		return nil
	}
	if s.degraded {
		s.degraded = false
		log.Info().Msg("detect: baseline available, leaving degraded mode")
	}
	if s.snap == nil || cur.BuiltAt.After(s.snap.BuiltAt) {
		s.snap = cur
		log.Info().
			Time("built_at", cur.BuiltAt).
			Int("entities", len(cur.Entities)).
			Msg("detect: baseline snapshot loaded")
	}
	return nil
}

// consume folds records from batches after the cursor into open buckets
func (s *Service) consume(ctx context.Context) error {
	latest, ok, err := s.Log.LatestBatch(ctx)
	if err != nil {
		return err
	}
	if !ok || latest == s.lastBatch {
		return nil
	}
	err = s.Log.ScanSince(ctx, s.lastBatch, func(r discoverydom.Record) error {
		if !r.Valid() {
			return nil
		}
		b := ptime.Bucket(r.Timestamp, s.Cfg.BucketWidth)
		ents := s.open[b]
		if ents == nil {
			ents = map[string]int64{}
			s.open[b] = ents
		}
		ents[r.EntityID] += r.Mentions
		return nil
	})
	if err != nil {
		return err
	}
	s.lastBatch = latest
	return nil
}

// scoreClosed scores and retires every open bucket whose window is fully
// covered by ingested batches. The head bucket is never scored: a batch at or
// past the bucket end must exist first
func (s *Service) scoreClosed(ctx context.Context, log *logger.Logger) (int, int, error) {
	maxSeen, err := ptime.ParseStamp(s.lastBatch)
	if err != nil {
		// no batches consumed yet
		return 0, 0, nil
	}
	coveredThrough := maxSeen.Add(feedInterval)

	var closed []time.Time
	for b := range s.open {
		if !b.Add(s.Cfg.BucketWidth).After(coveredThrough) {
			closed = append(closed, b)
		}
	}
	sort.Slice(closed, func(i, j int) bool { return closed[i].Before(closed[j]) })

	scored, emitted := 0, 0
	for _, b := range closed {
		for entity, count := range s.open[b] {
			if err := ctx.Err(); err != nil {
				return scored, emitted, err
			}
			scored++
			p := s.snap.Lookup(entity)
			z := stats.ZScore(float64(count), p.Mean, p.StdDev)
			if z <= s.Cfg.Threshold {
				continue
			}
			if s.coldStart(p) {
				metrics.AlertsTotal.WithLabelValues("suppressed_cold_start").Inc()
				continue
			}
			if s.alreadyEmitted(b, entity) {
				continue
			}
			s.emit(ctx, log, domain.Alert{
				ID:              uuid.NewString(),
				EntityID:        entity,
				BucketStart:     b,
				BucketWidth:     s.Cfg.BucketWidth,
				Count:           count,
				Mean:            p.Mean,
				StdDev:          p.StdDev,
				ZScore:          z,
				Threshold:       s.Cfg.Threshold,
				BaselineBuiltAt: s.snap.BuiltAt,
				EmittedAt:       time.Now().UTC(),
			})
			emitted++
		}
		delete(s.open, b)
		metrics.BucketsScoredTotal.Inc()
	}
	s.pruneEmitted(coveredThrough)
	return scored, emitted, nil
}

// coldStart reports whether the profile is too thin to alert on
func (s *Service) coldStart(p baselinedom.Profile) bool {
	return !p.Defined ||
		p.SampleCount < s.Cfg.ColdStartMinSamples ||
		p.TotalMentions < s.Cfg.MinTotalMentions
}

func (s *Service) alreadyEmitted(b time.Time, entity string) bool {
	ents := s.emitted[b]
	if ents == nil {
		ents = map[string]struct{}{}
		s.emitted[b] = ents
	}
	if _, dup := ents[entity]; dup {
		return true
	}
	ents[entity] = struct{}{}
	return false
}

// emit fans the alert out to every sink; a failing sink is logged and
// skipped so one slow or dead sink cannot wedge scoring
func (s *Service) emit(ctx context.Context, log *logger.Logger, a domain.Alert) {
	metrics.AlertsTotal.WithLabelValues("emitted").Inc()
	for _, sink := range s.Sinks {
		if err := sink.Publish(ctx, a); err != nil {
			metrics.AlertsTotal.WithLabelValues("dropped_sink").Inc()
			log.Error().Err(err).
				Str("sink", sink.Name()).
				Str("entity", a.EntityID).
				Time("bucket", a.BucketStart).
				Msg("detect: sink publish failed")
		}
	}
}

// pruneEmitted drops dedup state for buckets far behind the cursor
func (s *Service) pruneEmitted(coveredThrough time.Time) {
	horizon := coveredThrough.Add(-24 * s.Cfg.BucketWidth)
	for b := range s.emitted {
		if b.Before(horizon) {
			delete(s.emitted, b)
		}
	}
}
