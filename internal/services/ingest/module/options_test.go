package module

import (
	"testing"
	"time"

	"driftwatch/internal/platform/config"
	"driftwatch/internal/platform/testkit"
)

func TestFromConfigDefaults(t *testing.T) {
	testkit.Serial(t)

	opts := FromConfig(config.New())
	if opts.DataDir != "./data" {
		t.Errorf("DataDir = %q", opts.DataDir)
	}
	if opts.CheckpointBackend != "fs" {
		t.Errorf("CheckpointBackend = %q", opts.CheckpointBackend)
	}
	if opts.PollInterval != 30*time.Second || opts.RetryCeiling != 3 {
		t.Errorf("poll/retry = %v/%d", opts.PollInterval, opts.RetryCeiling)
	}
	if !opts.Origin.IsZero() {
		t.Errorf("Origin = %v, want zero", opts.Origin)
	}
}

func TestFromConfigOrigin(t *testing.T) {
	testkit.Serial(t)

	t.Setenv("CORE_INGEST_ORIGIN", "20240101120000")
	opts := FromConfig(config.New())
	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if !opts.Origin.Equal(want) {
		t.Errorf("Origin = %v, want %v", opts.Origin, want)
	}
}

func TestFromConfigBadOriginPanics(t *testing.T) {
	testkit.Serial(t)

	t.Setenv("CORE_INGEST_ORIGIN", "january")
	testkit.MustPanic(t, func() { FromConfig(config.New()) })
}
