// Package service provides the ingest run loop
package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	perr "driftwatch/internal/platform/errors"
	"driftwatch/internal/platform/logger"
	"driftwatch/internal/platform/metrics"
	ptime "driftwatch/internal/platform/time"
	discoverydom "driftwatch/internal/services/discovery/domain"
	"driftwatch/internal/services/ingest/domain"
)

// Config holds configuration options for the ingest service
type Config struct {
	// PollInterval is how long to wait when the head interval is not
	// published yet; <=0 -> 30s
	PollInterval time.Duration

	// Interval-level retry for transient fetch failures
	RetryCeiling int           // attempts per interval; <=0 -> 3
	RetryBase    time.Duration // base backoff; <=0 -> 500ms

	// SkipOnFailure advances past an interval whose retries are exhausted,
	// recording it as an empty batch. Off means the loop halts with the error
	SkipOnFailure bool

	// Origin is the first interval to ingest when no checkpoint exists.
	// Zero means start at the current publication head
	Origin time.Time

	// MaxBatches stops the loop after that many advanced intervals; 0 = run
	// until cancelled
	MaxBatches int
}

// Service implements domain.RunnerPort
type Service struct {
	Feed   domain.FeedPort
	Log    discoverydom.LogPort
	CK     domain.CheckpointStore
	Ledger domain.LedgerRepo // optional; nil disables the SQL ledger
	Cfg    Config

	// Now is a clock seam for tests; nil -> time.Now
	Now func() time.Time
}

// New constructs the ingest service
func New(feed domain.FeedPort, log discoverydom.LogPort, ck domain.CheckpointStore, ledger domain.LedgerRepo, cfg Config) *Service {
	if feed == nil {
		panic("ingest.Service requires a non nil FeedPort")
	}
	if log == nil {
		panic("ingest.Service requires a non nil LogPort")
	}
	if ck == nil {
		panic("ingest.Service requires a non nil CheckpointStore")
	}
	return &Service{Feed: feed, Log: log, CK: ck, Ledger: ledger, Cfg: cfg}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// head returns the newest interval whose publication window has closed
func (s *Service) head() time.Time {
	return ptime.Bucket(s.now(), intervalWidth).Add(-intervalWidth)
}

const intervalWidth = 15 * time.Minute

// next computes the interval to ingest given the current checkpoint
func (s *Service) next(ck domain.Checkpoint) time.Time {
	if ck.Defined() {
		return ck.LastInterval.Add(intervalWidth)
	}
	if !s.Cfg.Origin.IsZero() {
		return ptime.Bucket(s.Cfg.Origin, intervalWidth)
	}
	return s.head()
}

// Run polls the feed until ctx is cancelled or, with MaxBatches set, until
// that many intervals have been made durable
func (s *Service) Run(ctx context.Context) error {
	log := logger.C(ctx)
	ck, err := s.CK.Load(ctx)
	if err != nil {
		return err
	}
	if ck.Defined() {
		log.Info().Str("last_interval", ptime.Stamp(ck.LastInterval)).Msg("ingest: resuming from checkpoint")
	} else {
		log.Info().Str("origin", ptime.Stamp(s.next(ck))).Msg("ingest: fresh start")
	}

	poll := s.Cfg.PollInterval
	if poll <= 0 {
		poll = 30 * time.Second
	}

	done := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		interval := s.next(ck)
		if interval.After(s.head()) {
			if err := ptime.Sleep(ctx, poll); err != nil {
				return err
			}
			continue
		}

		advanced, err := s.ingestInterval(ctx, &ck, interval)
		switch {
		case errors.Is(err, domain.ErrNotYetPublished):
			if err := ptime.Sleep(ctx, poll); err != nil {
				return err
			}
			continue
		case err != nil:
			return err
		}
		if advanced {
			done++
			if s.Cfg.MaxBatches > 0 && done >= s.Cfg.MaxBatches {
				return nil
			}
		}
	}
}

// RunOnce attempts exactly one interval; advanced reports whether the
// checkpoint moved. Used by tests and one shot invocations
func (s *Service) RunOnce(ctx context.Context) (bool, error) {
	ck, err := s.CK.Load(ctx)
	if err != nil {
		return false, err
	}
	interval := s.next(ck)
	if interval.After(s.head()) {
		return false, nil
	}
	return s.ingestInterval(ctx, &ck, interval)
}

// ingestInterval fetches with retry, publishes the batch, then moves the
// checkpoint. Publish before checkpoint: a crash between the two replays the
// batch, and the log's idempotent append absorbs it
func (s *Service) ingestInterval(ctx context.Context, ck *domain.Checkpoint, interval time.Time) (retAdvanced bool, retErr error) {
	log := logger.C(ctx)
	stamp := ptime.Stamp(interval)
	startWall := time.Now()
	fin := domain.BatchFinish{Status: "ok"}

	t0 := time.Now()
	batch, err := s.fetchWithRetry(ctx, interval)
	fetchMS := int(time.Since(t0).Milliseconds())
	if errors.Is(err, domain.ErrNotYetPublished) {
		// an idle head poll is not a batch attempt; it leaves no ledger row
		return false, err
	}

	if s.Ledger != nil {
		if err := s.Ledger.StartBatch(ctx, interval); err != nil {
			log.Warn().Err(err).Str("interval", stamp).Msg("ingest: ledger start failed")
		}
	}
	defer func() {
		if s.Ledger == nil {
			return
		}
		fin.ElapsedMS = int(time.Since(startWall).Milliseconds())
		fin.FetchMS = fetchMS
		if retErr != nil && fin.ErrText == "" {
			fin.ErrText = retErr.Error()
		}
		if err := s.Ledger.FinishBatch(ctx, interval, fin); err != nil {
			log.Warn().Err(err).Str("interval", stamp).Msg("ingest: ledger finish failed")
		}
	}()

	if err != nil {
		if !s.Cfg.SkipOnFailure {
			fin.Status = "failed"
			metrics.BatchesTotal.WithLabelValues("failed").Inc()
			return false, err
		}
		log.Error().Err(err).Str("interval", stamp).Msg("ingest: retries exhausted, skipping interval")
		fin.Status = "skipped"
		fin.ErrText = err.Error()
		metrics.BatchesTotal.WithLabelValues("skipped").Inc()
		// a skipped interval still gets an empty durable segment so the
		// log stays gap free and downstream bucket closing works
		batch = domain.Batch{ID: stamp, Interval: interval}
	}

	if err := s.Log.Append(ctx, batch.ID, batch.Records); err != nil {
		fin.Status = "failed"
		fin.ErrText = err.Error()
		metrics.BatchesTotal.WithLabelValues("failed").Inc()
		return false, err
	}

	ck.LastInterval = interval
	if err := s.CK.Save(ctx, *ck); err != nil {
		fin.Status = "failed"
		fin.ErrText = err.Error()
		return false, err
	}

	if fin.Status == "ok" {
		fin.Records = len(batch.Records)
		fin.Skipped = batch.Skipped
		if len(batch.Records) == 0 {
			fin.Status = "empty"
		}
		metrics.BatchesTotal.WithLabelValues(fin.Status).Inc()
	}
	log.Info().
		Str("interval", stamp).
		Str("status", fin.Status).
		Int("records", len(batch.Records)).
		Int("skipped", batch.Skipped).
		Msg("ingest: interval durable")
	return true, nil
}

// fetchWithRetry retries transient failures with jittered exponential
// backoff, capped at 30s per wait
func (s *Service) fetchWithRetry(ctx context.Context, interval time.Time) (domain.Batch, error) {
	attempts := max(s.Cfg.RetryCeiling, 1)
	base := s.Cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var last error
	for i := range attempts {
		batch, err := s.Feed.Fetch(ctx, interval)
		if err == nil {
			return batch, nil
		}
		last = err

		if errors.Is(err, domain.ErrNotYetPublished) || !perr.Retryable(err) {
			return domain.Batch{}, err
		}
		metrics.FetchRetriesTotal.Inc()
		if i == attempts-1 {
			break
		}
		// cap the shift so a deep retry ceiling cannot overflow the backoff
		d := min(base<<min(i, 6), 30*time.Second)
		if d < 2*time.Millisecond {
			d = 2 * time.Millisecond
		}
		j := d/2 + time.Duration(rand.Int63n(int64(d/2)))
		if se := ptime.Sleep(ctx, j); se != nil {
			return domain.Batch{}, se
		}
	}
	return domain.Batch{}, last
}
