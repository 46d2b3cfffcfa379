// Package repo provides storage implementations for the discovery log
package repo

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	perr "driftwatch/internal/platform/errors"
	"driftwatch/internal/platform/logger"
	"driftwatch/internal/services/discovery/domain"
)

const segmentExt = ".ndjson"

// FS is a filesystem-backed discovery log. Each batch is one NDJSON segment
// named <batchID>.ndjson under dir/segments. Durability comes from writing a
// temp file and renaming it into place, so a segment is either absent or whole
type FS struct {
	dir string
	log logger.Logger
}

// NewFS constructs the filesystem log rooted at dir
func NewFS(dir string) (*FS, error) {
	seg := filepath.Join(dir, "segments")
	if err := os.MkdirAll(seg, 0o755); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "discovery: create segments dir")
	}
	return &FS{dir: seg, log: *logger.Named("discovery.fslog")}, nil
}

// Append writes the batch as one segment. Re-appending an existing batch id
// is a no-op so replays after a crash between publish and checkpoint are safe
func (f *FS) Append(ctx context.Context, batchID string, recs []domain.Record) error {
	if batchID == "" {
		return perr.InvalidArgf("discovery: empty batch id")
	}
	final := filepath.Join(f.dir, batchID+segmentExt)
	if _, err := os.Stat(final); err == nil {
		f.log.Debug().Str("batch_id", batchID).Msg("segment already durable, skipping")
		return nil
	}

	tmp := final + ".tmp"
	w, err := os.Create(tmp)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "discovery: create segment temp")
	}
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range recs {
		if err := ctx.Err(); err != nil {
			_ = w.Close()
			_ = os.Remove(tmp)
			return err
		}
		r.BatchID = batchID
		if err := enc.Encode(r); err != nil {
			_ = w.Close()
			_ = os.Remove(tmp)
			return perr.JSONErrf("discovery: encode record: %v", err)
		}
	}
	if err := bw.Flush(); err != nil {
		_ = w.Close()
		_ = os.Remove(tmp)
		return perr.Wrap(err, perr.ErrorCodeUnknown, "discovery: flush segment")
	}
	if err := w.Sync(); err != nil {
		_ = w.Close()
		_ = os.Remove(tmp)
		return perr.Wrap(err, perr.ErrorCodeUnknown, "discovery: sync segment")
	}
	if err := w.Close(); err != nil {
		_ = os.Remove(tmp)
		return perr.Wrap(err, perr.ErrorCodeUnknown, "discovery: close segment")
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return perr.Wrap(err, perr.ErrorCodeUnknown, "discovery: publish segment")
	}
	f.log.Debug().Str("batch_id", batchID).Int("records", len(recs)).Msg("segment published")
	return nil
}

// Scan streams every record in batch id order
func (f *FS) Scan(ctx context.Context, fn func(domain.Record) error) error {
	return f.scanFrom(ctx, "", fn)
}

// ScanSince streams records from batches strictly after afterBatchID
func (f *FS) ScanSince(ctx context.Context, afterBatchID string, fn func(domain.Record) error) error {
	return f.scanFrom(ctx, afterBatchID, fn)
}

func (f *FS) scanFrom(ctx context.Context, after string, fn func(domain.Record) error) error {
	ids, err := f.segmentIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if after != "" && id <= after {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.scanSegment(id, fn); err != nil {
			return err
		}
	}
	return nil
}

func (f *FS) scanSegment(id string, fn func(domain.Record) error) error {
	r, err := os.Open(filepath.Join(f.dir, id+segmentExt))
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "discovery: open segment")
	}
	defer func() { _ = r.Close() }()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return perr.Corruptf("discovery: segment %s: bad record: %v", id, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return perr.Corruptf("discovery: segment %s: %v", id, err)
	}
	return nil
}

// LatestBatch returns the highest batch id present
func (f *FS) LatestBatch(_ context.Context) (string, bool, error) {
	ids, err := f.segmentIDs()
	if err != nil {
		return "", false, err
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[len(ids)-1], true, nil
}

// segmentIDs lists published segment ids sorted ascending; temp files are
// invisible by construction since they carry a .tmp suffix
func (f *FS) segmentIDs() ([]string, error) {
	ents, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "discovery: read segments dir")
	}
	ids := make([]string, 0, len(ents))
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, segmentExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, segmentExt))
	}
	sort.Strings(ids)
	return ids, nil
}
