// Package repo provides snapshot storage for baseline profiles
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	perr "driftwatch/internal/platform/errors"
	"driftwatch/internal/platform/logger"
	ptime "driftwatch/internal/platform/time"
	"driftwatch/internal/services/baseline/domain"
)

const (
	snapshotExt = ".json"
	currentFile = "CURRENT"
)

// FS stores each snapshot as baselines/<stamp>.json and promotes one via a
// CURRENT pointer file. Both writes are temp-and-rename so readers only ever
// observe whole snapshots, and old snapshots stay around for inspection
type FS struct {
	dir string
	log logger.Logger
}

// NewFS constructs the filesystem snapshot store rooted at dir
func NewFS(dir string) (*FS, error) {
	base := filepath.Join(dir, "baselines")
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "baseline: create baselines dir")
	}
	return &FS{dir: base, log: *logger.Named("baseline.fsstore")}, nil
}

// Save writes the snapshot and promotes it to current
func (f *FS) Save(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return perr.InvalidArgf("baseline: nil snapshot")
	}
	name := ptime.Stamp(snap.BuiltAt) + snapshotExt
	raw, err := json.Marshal(snap)
	if err != nil {
		return perr.JSONErrf("baseline: encode snapshot: %v", err)
	}

	final := filepath.Join(f.dir, name)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "baseline: write snapshot temp")
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return perr.Wrap(err, perr.ErrorCodeUnknown, "baseline: publish snapshot")
	}

	// promote: CURRENT holds only the snapshot file name
	curTmp := filepath.Join(f.dir, currentFile+".tmp")
	if err := os.WriteFile(curTmp, []byte(name+"\n"), 0o644); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "baseline: write current temp")
	}
	if err := os.Rename(curTmp, filepath.Join(f.dir, currentFile)); err != nil {
		_ = os.Remove(curTmp)
		return perr.Wrap(err, perr.ErrorCodeUnknown, "baseline: promote snapshot")
	}
	f.log.Info().Str("snapshot", name).Int("entities", len(snap.Entities)).Msg("snapshot promoted")
	return nil
}

// Current loads the promoted snapshot
func (f *FS) Current(_ context.Context) (*domain.Snapshot, bool, error) {
	ptr, err := os.ReadFile(filepath.Join(f.dir, currentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, perr.Wrap(err, perr.ErrorCodeUnknown, "baseline: read current pointer")
	}
	name := strings.TrimSpace(string(ptr))
	if name == "" || strings.Contains(name, string(os.PathSeparator)) {
		return nil, false, perr.Corruptf("baseline: current pointer %q", name)
	}
	raw, err := os.ReadFile(filepath.Join(f.dir, name))
	if err != nil {
		return nil, false, perr.Corruptf("baseline: current points at unreadable snapshot %s: %v", name, err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, perr.Corruptf("baseline: snapshot %s not parseable: %v", name, err)
	}
	return &snap, true, nil
}
