package modkit

import (
	"driftwatch/internal/modkit/repokit"
	"driftwatch/internal/platform/config"
	"driftwatch/internal/platform/logger"
	"driftwatch/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner // nil when postgres is disabled
	CH  store.Clickhouse // nil when clickhouse is disabled
}
