package module

import "driftwatch/internal/platform/config"

// Options holds configuration options for the discovery log
type Options struct {
	DataDir string
}

// FromConfig reads discovery options from config with CORE_ prefix
func FromConfig(cfg config.Conf) Options {
	core := cfg.Prefix("CORE_")
	return Options{
		DataDir: core.MayString("DATA_DIR", "./data"),
	}
}
