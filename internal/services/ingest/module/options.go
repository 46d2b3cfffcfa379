package module

import (
	"time"

	"driftwatch/internal/platform/config"
	"driftwatch/internal/platform/logger"
	ptime "driftwatch/internal/platform/time"
)

// Options holds configuration options for the ingest service
type Options struct {
	DataDir           string
	CheckpointBackend string // fs | pg
	PollInterval      time.Duration
	RetryCeiling      int
	RetryBase         time.Duration
	SkipOnFailure     bool
	Origin            time.Time
	MaxBatches        int
}

// FromConfig reads the ingest options from config with CORE_ prefix
func FromConfig(cfg config.Conf) Options {
	core := cfg.Prefix("CORE_")
	ing := cfg.Prefix("CORE_INGEST_")

	var origin time.Time
	if s := ing.MayString("ORIGIN", ""); s != "" {
		t, err := ptime.ParseStamp(s)
		if err != nil {
			logger.Get().Panic().Str("key", "CORE_INGEST_ORIGIN").Str("value", s).
				Msg("invalid origin stamp (want YYYYMMDDHHMMSS)")
		}
		origin = t
	}

	return Options{
		DataDir:           core.MayString("DATA_DIR", "./data"),
		CheckpointBackend: ing.MayString("CHECKPOINT", "fs"),
		PollInterval:      core.MayDuration("POLL_INTERVAL", 30*time.Second),
		RetryCeiling:      core.MayInt("RETRY_CEILING", 3),
		RetryBase:         ing.MayDuration("RETRY_BASE", 500*time.Millisecond),
		SkipOnFailure:     core.MayBool("SKIP_ON_FAILURE", true),
		Origin:            origin,
		MaxBatches:        ing.MayInt("MAX_BATCHES", 0),
	}
}
