// Package time contains time bucketing and batch stamp helpers shared by the
// baseline and detection phases
package time

import (
	"context"
	"time"
)

// StampLayout is the compact UTC layout used for source batch ids
// (one id per feed interval, lexical order == chronological order)
const StampLayout = "20060102150405"

// Stamp formats t as a batch id stamp in UTC
func Stamp(t time.Time) string { return t.UTC().Format(StampLayout) }

// ParseStamp parses a batch id stamp back into a UTC time
func ParseStamp(s string) (time.Time, error) {
	return time.ParseInLocation(StampLayout, s, time.UTC)
}

// Bucket truncates t to the start of its fixed-width aggregation window in UTC.
// Baseline and online scoring MUST use the same width or scores are meaningless
func Bucket(t time.Time, width time.Duration) time.Time {
	return t.UTC().Truncate(width)
}

// BucketsBetween returns the number of whole buckets in [first, last] inclusive
// when both are already bucket-aligned. Returns 0 when last precedes first
func BucketsBetween(first, last time.Time, width time.Duration) int {
	if width <= 0 || last.Before(first) {
		return 0
	}
	return int(last.Sub(first)/width) + 1
}

// Sleep blocks for d or until ctx is done, returning ctx.Err() in that case
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
