package module

import (
	"time"

	"driftwatch/internal/platform/config"
)

// Options holds configuration options for the baseline builder
type Options struct {
	DataDir          string
	BucketWidth      time.Duration
	MinTotalMentions int64
}

// FromConfig reads the baseline options from config with CORE_ prefix
func FromConfig(cfg config.Conf) Options {
	core := cfg.Prefix("CORE_")
	return Options{
		DataDir:          core.MayString("DATA_DIR", "./data"),
		BucketWidth:      core.MayDuration("BUCKET_WIDTH", time.Hour),
		MinTotalMentions: int64(core.MayInt("MIN_TOTAL_MENTIONS", 500)),
	}
}
