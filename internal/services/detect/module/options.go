package module

import (
	"time"

	"driftwatch/internal/platform/config"
)

// Options holds configuration options for the detector
type Options struct {
	BucketWidth         time.Duration
	Threshold           float64
	ColdStartMinSamples int64
	MinTotalMentions    int64
	PollInterval        time.Duration
	NATSURL             string
	NATSSubject         string
}

// FromConfig reads the detect options from config with CORE_ prefix
func FromConfig(cfg config.Conf) Options {
	core := cfg.Prefix("CORE_")
	det := cfg.Prefix("CORE_DETECT_")
	return Options{
		BucketWidth:         core.MayDuration("BUCKET_WIDTH", time.Hour),
		Threshold:           core.MayFloat("ZSCORE_THRESHOLD", 3),
		ColdStartMinSamples: int64(core.MayInt("COLD_START_MIN_SAMPLES", 24)),
		MinTotalMentions:    int64(core.MayInt("MIN_TOTAL_MENTIONS", 500)),
		PollInterval:        core.MayDuration("POLL_INTERVAL", 30*time.Second),
		NATSURL:             det.MayString("NATS_URL", ""),
		NATSSubject:         det.MayString("NATS_SUBJECT", "driftwatch.alerts"),
	}
}
