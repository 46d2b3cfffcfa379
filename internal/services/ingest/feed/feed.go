// Package feed adapts the raw GDELT adapter into the ingest feed port.
// It owns the row-to-record transformation: actor name canonicalization,
// mention floors, malformed row accounting, and the head-vs-gap distinction
// for absent archives
package feed

import (
	"context"
	"errors"
	"io"
	"time"

	"driftwatch/internal/adapters/feed/gdelt"
	"driftwatch/internal/core/normalize"
	"driftwatch/internal/modkit"
	"driftwatch/internal/platform/logger"
	"driftwatch/internal/platform/metrics"
	discoverydom "driftwatch/internal/services/discovery/domain"
	"driftwatch/internal/services/ingest/domain"
)

// Feed implements domain.FeedPort over the GDELT export adapter
type Feed struct {
	fetch gdelt.Fetcher
	norm  *normalize.Normalizer
	log   logger.Logger

	// grace is how long after an interval closes we keep treating a 404 as
	// "not yet published" rather than a permanent gap
	grace time.Duration

	// now is a clock seam for tests
	now func() time.Time
}

// New constructs the feed from config under CORE_FEED_*
func New(deps modkit.Deps) *Feed {
	fc := deps.Cfg.Prefix("CORE_FEED_")
	httpTO := fc.MayDuration("HTTP_TIMEOUT", 2*time.Minute)
	return &Feed{
		fetch: gdelt.NewHTTPFetcherWithTimeout(httpTO),
		norm:  normalize.New(),
		log:   *logger.Named("feed.gdelt"),
		grace: fc.MayDuration("PUBLISH_GRACE", 30*time.Minute),
		now:   time.Now,
	}
}

// NewWithFetcher wires a custom fetcher and clock, used by tests
func NewWithFetcher(f gdelt.Fetcher, grace time.Duration, now func() time.Time) *Feed {
	return &Feed{
		fetch: f,
		norm:  normalize.New(),
		log:   *logger.Named("feed.gdelt"),
		grace: grace,
		now:   now,
	}
}

// Fetch downloads and parses one interval into a canonical batch
func (f *Feed) Fetch(ctx context.Context, interval time.Time) (domain.Batch, error) {
	iv := gdelt.NewIntervalRef(interval)
	batch := domain.Batch{ID: iv.Stamp(), Interval: iv.UTC()}

	rc, err := f.fetch.Fetch(ctx, iv)
	if err != nil {
		if errors.Is(err, gdelt.ErrNotPublished) {
			if f.now().Sub(iv.UTC().Add(gdelt.Width)) < f.grace {
				return domain.Batch{}, domain.ErrNotYetPublished
			}
			// permanent gap: the interval contributes an empty batch
			f.log.Warn().Str("interval", iv.Stamp()).Msg("archive absent past grace, recording empty batch")
			return batch, nil
		}
		return domain.Batch{}, err
	}

	rd, err := gdelt.NewReader(rc)
	if err != nil {
		return domain.Batch{}, err
	}
	defer func() { _ = rd.Close() }()

	for {
		if err := ctx.Err(); err != nil {
			return domain.Batch{}, err
		}
		row, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// malformed rows are counted and skipped, not fatal
			batch.Skipped++
			metrics.RowsSkippedTotal.Inc()
			continue
		}
		batch.Records = append(batch.Records, f.recordsFromRow(row, batch.Interval)...)
	}
	return batch, nil
}

// recordsFromRow yields one record per non empty actor name. Mentions are
// floored at 1 so a present actor always counts
func (f *Feed) recordsFromRow(row gdelt.Row, interval time.Time) []discoverydom.Record {
	mentions := row.NumMentions
	if mentions < 1 {
		mentions = 1
	}
	var out []discoverydom.Record
	for _, name := range []string{row.Actor1Name, row.Actor2Name} {
		id := f.norm.EntityID(name)
		if id == "" {
			continue
		}
		out = append(out, discoverydom.Record{
			EntityID:  id,
			Timestamp: interval,
			Mentions:  mentions,
		})
	}
	return out
}
