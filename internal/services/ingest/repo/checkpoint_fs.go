// Package repo provides checkpoint and ledger storage for ingestion
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	perr "driftwatch/internal/platform/errors"
	ptime "driftwatch/internal/platform/time"
	"driftwatch/internal/services/ingest/domain"
)

// FSCheckpoint persists the checkpoint as a small JSON file.
// Saves go through a temp file and rename so a crash mid write leaves the
// previous checkpoint intact
type FSCheckpoint struct {
	path string
}

// checkpointFile is the on disk shape; the interval is a feed stamp so the
// file stays greppable next to the segment names
type checkpointFile struct {
	LastInterval string `json:"last_interval"`
}

// NewFSCheckpoint constructs the file checkpoint store under dir
func NewFSCheckpoint(dir string) (*FSCheckpoint, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "ingest: create checkpoint dir")
	}
	return &FSCheckpoint{path: filepath.Join(dir, "checkpoint.json")}, nil
}

// Load reads the checkpoint. A missing file is a fresh start, not an error;
// an unreadable or unparsable file is surfaced as corruption so the operator
// decides rather than the pipeline silently re-ingesting from zero
func (f *FSCheckpoint) Load(_ context.Context) (domain.Checkpoint, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Checkpoint{}, nil
	}
	if err != nil {
		return domain.Checkpoint{}, perr.Wrap(err, perr.ErrorCodeUnknown, "ingest: read checkpoint")
	}
	var cf checkpointFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return domain.Checkpoint{}, perr.Corruptf("ingest: checkpoint not parseable: %v", err)
	}
	if cf.LastInterval == "" {
		return domain.Checkpoint{}, perr.Corruptf("ingest: checkpoint missing last_interval")
	}
	t, err := ptime.ParseStamp(cf.LastInterval)
	if err != nil {
		return domain.Checkpoint{}, perr.Corruptf("ingest: checkpoint stamp %q: %v", cf.LastInterval, err)
	}
	return domain.Checkpoint{LastInterval: t}, nil
}

// Save atomically replaces the checkpoint
func (f *FSCheckpoint) Save(_ context.Context, ck domain.Checkpoint) error {
	if !ck.Defined() {
		return perr.InvalidArgf("ingest: refusing to save undefined checkpoint")
	}
	raw, err := json.Marshal(checkpointFile{LastInterval: ptime.Stamp(ck.LastInterval)})
	if err != nil {
		return perr.JSONErrf("ingest: encode checkpoint: %v", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "ingest: write checkpoint temp")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return perr.Wrap(err, perr.ErrorCodeUnknown, "ingest: publish checkpoint")
	}
	return nil
}
