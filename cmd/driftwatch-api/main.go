package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"driftwatch/internal/modkit"
	"driftwatch/internal/modkit/module"
	"driftwatch/internal/platform/config"
	"driftwatch/internal/platform/logger"
	phttp "driftwatch/internal/platform/net/http"
	"driftwatch/internal/platform/net/middleware"
	"driftwatch/internal/platform/store"

	"driftwatch/internal/services/api"
	baselinedom "driftwatch/internal/services/baseline/domain"
	baselinemod "driftwatch/internal/services/baseline/module"
	detectdom "driftwatch/internal/services/detect/domain"
	detectrepo "driftwatch/internal/services/detect/repo"
	discoverydom "driftwatch/internal/services/discovery/domain"
	discoverymod "driftwatch/internal/services/discovery/module"
	ingestdom "driftwatch/internal/services/ingest/domain"
	ingestmod "driftwatch/internal/services/ingest/module"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("CORE_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Config{
		AppName: "driftwatch",
		PG: store.PGConfig{
			Enabled:     pgCfg.MayBool("ENABLED", false),
			URL:         pgCfg.MayString("DBURL", ""),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled:    chCfg.MayBool("ENABLED", false),
			URL:        chCfg.MayString("DBURL", ""),
			ClientName: "driftwatch-api",
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Fatal().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	deps := modkit.Deps{Log: *l, Cfg: root, PG: st.PG, CH: st.CH}

	disc, err := discoverymod.New(deps)
	if err != nil {
		l.Fatal().Err(err).Msg("discovery module init failed")
	}
	module.Register(disc.Name(), disc.Ports())
	logPort := module.MustPortsOf[discoverydom.LogPort](disc)

	ing, err := ingestmod.New(deps, logPort)
	if err != nil {
		l.Fatal().Err(err).Msg("ingest module init failed")
	}
	module.Register(ing.Name(), ing.Ports())

	bl, err := baselinemod.New(deps, logPort)
	if err != nil {
		l.Fatal().Err(err).Msg("baseline module init failed")
	}
	module.Register(bl.Name(), bl.Ports())

	// the alert reader goes straight to clickhouse; the detect module itself
	// (sinks, NATS) belongs to the detector binary
	var alerts detectdom.ReaderPort
	if st.CH != nil {
		alerts = detectrepo.NewCH(st.CH)
	}

	srv := phttp.NewServer(apiCfg, func(m *chi.Mux) {
		m.Use(middleware.RequestID())
		m.Use(middleware.AccessLog(middleware.AccessLogOptions{Slow: 2 * time.Second}))
		m.Use(middleware.RecoverJSON())
		m.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	})

	api.Mount(srv.Router(), api.Options{
		Config:      apiCfg,
		Store:       st,
		ServiceName: "driftwatch-api",
		Log:         logPort,
		Checkpoint:  module.MustPortsOf[ingestdom.CheckpointStore](ing),
		Baselines:   module.MustPortsOf[baselinedom.StorePort](bl),
		Alerts:      alerts,
	})

	if err := srv.Run(ctx); err != nil {
		l.Fatal().Err(err).Msg("http server stopped")
	}
}
