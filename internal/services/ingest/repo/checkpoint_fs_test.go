package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	perr "driftwatch/internal/platform/errors"
	"driftwatch/internal/services/ingest/domain"
)

func TestFSCheckpointFreshStart(t *testing.T) {
	ck, err := NewFSCheckpoint(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	got, err := ck.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.Defined() {
		t.Fatalf("missing file must load as undefined, got %+v", got)
	}
}

func TestFSCheckpointRoundTrip(t *testing.T) {
	ck, err := NewFSCheckpoint(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	want := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

	if err := ck.Save(ctx, domain.Checkpoint{LastInterval: want}); err != nil {
		t.Fatal(err)
	}
	got, err := ck.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.LastInterval.Equal(want) {
		t.Fatalf("loaded %v, want %v", got.LastInterval, want)
	}
}

func TestFSCheckpointCorruptionSurfaces(t *testing.T) {
	dir := t.TempDir()
	ck, err := NewFSCheckpoint(dir)
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]string{
		"not json":    `{"last_interval": `,
		"empty stamp": `{"last_interval": ""}`,
		"bad stamp":   `{"last_interval": "2024-03-05"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if err := os.WriteFile(filepath.Join(dir, "checkpoint.json"), []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := ck.Load(context.Background()); !perr.IsCode(err, perr.ErrorCodeCorrupt) {
				t.Fatalf("err = %v, want corrupt code", err)
			}
		})
	}
}

func TestFSCheckpointRejectsUndefinedSave(t *testing.T) {
	ck, err := NewFSCheckpoint(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := ck.Save(context.Background(), domain.Checkpoint{}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument code", err)
	}
}
