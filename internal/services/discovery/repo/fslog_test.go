package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"driftwatch/internal/services/discovery/domain"
)

func rec(entity string, ts time.Time, mentions int64) domain.Record {
	return domain.Record{EntityID: entity, Timestamp: ts, Mentions: mentions}
}

func TestAppendThenScanRoundTrip(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	if err := fs.Append(ctx, "20240101120000", []domain.Record{
		rec("france", ts, 3),
		rec("germany", ts, 1),
	}); err != nil {
		t.Fatal(err)
	}
	if err := fs.Append(ctx, "20240101121500", []domain.Record{
		rec("france", ts.Add(15*time.Minute), 2),
	}); err != nil {
		t.Fatal(err)
	}

	var got []domain.Record
	if err := fs.Scan(ctx, func(r domain.Record) error {
		got = append(got, r)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("scanned %d records, want 3", len(got))
	}
	if got[0].EntityID != "france" || got[1].EntityID != "germany" || got[2].EntityID != "france" {
		t.Fatalf("record order wrong: %+v", got)
	}
	if got[0].BatchID != "20240101120000" || got[2].BatchID != "20240101121500" {
		t.Fatalf("batch ids not stamped: %+v", got)
	}
}

func TestAppendIdempotent(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	if err := fs.Append(ctx, "20240101120000", []domain.Record{rec("iran", ts, 5)}); err != nil {
		t.Fatal(err)
	}
	// replay with different content must not clobber the durable segment
	if err := fs.Append(ctx, "20240101120000", []domain.Record{rec("iran", ts, 999), rec("cuba", ts, 1)}); err != nil {
		t.Fatal(err)
	}

	var n int
	var mentions int64
	if err := fs.Scan(ctx, func(r domain.Record) error {
		n++
		mentions = r.Mentions
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if n != 1 || mentions != 5 {
		t.Fatalf("replay mutated the segment: n=%d mentions=%d", n, mentions)
	}
}

func TestPartialSegmentInvisible(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// simulate a crash mid-write: a stray temp file in the segments dir
	tmp := filepath.Join(dir, "segments", "20240101120000.ndjson.tmp")
	if err := os.WriteFile(tmp, []byte(`{"entity_id":"ghost"`), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := fs.Scan(ctx, func(domain.Record) error {
		t.Fatal("partial segment must not be visible")
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := fs.LatestBatch(ctx); err != nil || ok {
		t.Fatalf("latest batch over temp-only dir: ok=%v err=%v", ok, err)
	}
}

func TestScanSinceAndLatestBatch(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	ids := []string{"20240101120000", "20240101121500", "20240101123000"}
	for i, id := range ids {
		if err := fs.Append(ctx, id, []domain.Record{rec("x", ts.Add(time.Duration(i)*15*time.Minute), 1)}); err != nil {
			t.Fatal(err)
		}
	}

	var seen []string
	if err := fs.ScanSince(ctx, "20240101120000", func(r domain.Record) error {
		seen = append(seen, r.BatchID)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != "20240101121500" || seen[1] != "20240101123000" {
		t.Fatalf("ScanSince returned %v", seen)
	}

	latest, ok, err := fs.LatestBatch(ctx)
	if err != nil || !ok || latest != "20240101123000" {
		t.Fatalf("LatestBatch = %q ok=%v err=%v", latest, ok, err)
	}
}

func TestEmptyBatchSegment(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// an interval with no qualifying records still advances the log
	if err := fs.Append(ctx, "20240101120000", nil); err != nil {
		t.Fatal(err)
	}
	latest, ok, err := fs.LatestBatch(ctx)
	if err != nil || !ok || latest != "20240101120000" {
		t.Fatalf("LatestBatch = %q ok=%v err=%v", latest, ok, err)
	}
	if err := fs.Scan(ctx, func(domain.Record) error {
		t.Fatal("empty segment yielded a record")
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}
