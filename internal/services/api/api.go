// Package api provides the operational HTTP surface for the pipeline
package api

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"driftwatch/internal/modkit"
	"driftwatch/internal/platform/config"
	phttp "driftwatch/internal/platform/net/http"
	"driftwatch/internal/platform/store"
	baselinedom "driftwatch/internal/services/baseline/domain"
	detectdom "driftwatch/internal/services/detect/domain"
	discoverydom "driftwatch/internal/services/discovery/domain"
	ingestdom "driftwatch/internal/services/ingest/domain"

	apihttp "driftwatch/internal/services/api/http"
	apimod "driftwatch/internal/services/api/module"
)

// Options are the API options
type Options struct {
	Config      config.Conf
	Store       *store.Store
	ServiceName string

	Log        discoverydom.LogPort
	Checkpoint ingestdom.CheckpointStore
	Baselines  baselinedom.StorePort
	Alerts     detectdom.ReaderPort // nil without ClickHouse
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	m := apimod.New(
		modkitDeps(opt),
		apihttp.Deps{
			ServiceName: opt.ServiceName,
			Store:       opt.Store,
			Log:         opt.Log,
			Checkpoint:  opt.Checkpoint,
			Baselines:   opt.Baselines,
			Alerts:      opt.Alerts,
		},
	)
	m.MountRoutes(r)
	r.Handle("/metrics", promhttp.Handler())
}

func modkitDeps(opt Options) modkit.Deps {
	d := modkit.Deps{Cfg: opt.Config}
	if opt.Store != nil {
		d.Log = opt.Store.Log
		d.PG = opt.Store.PG
		d.CH = opt.Store.CH
	}
	return d
}
