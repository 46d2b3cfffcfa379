package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"driftwatch/internal/modkit"
	"driftwatch/internal/modkit/module"
	"driftwatch/internal/platform/config"
	"driftwatch/internal/platform/logger"
	"driftwatch/internal/platform/store"

	discoverydom "driftwatch/internal/services/discovery/domain"
	discoverymod "driftwatch/internal/services/discovery/module"
	ingestdom "driftwatch/internal/services/ingest/domain"
	ingestmod "driftwatch/internal/services/ingest/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	fOnce := flag.Bool("once", false, "ingest at most one interval and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// postgres and clickhouse are optional; the pipeline runs on the
	// filesystem alone when neither is enabled
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
			ClientName: "driftwatch-ingest",
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

	ing, err := ingestmod.New(deps, module.MustPortsOf[discoverydom.LogPort](disc))
	if err != nil {
		l.Fatal().Err(err).Msg("ingest module init failed")
	}
	module.Register(ing.Name(), ing.Ports())

	runner := module.MustPortsOf[ingestdom.RunnerPort](ing)
	if *fOnce {
		advanced, err := runner.RunOnce(ctx)
		if err != nil {
			l.Fatal().Err(err).Msg("ingest failed")
		}
		l.Info().Bool("advanced", advanced).Msg("ingest pass complete")
		return
	}
	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		l.Fatal().Err(err).Msg("ingest stopped")
	}
}
