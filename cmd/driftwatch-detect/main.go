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

	baselinedom "driftwatch/internal/services/baseline/domain"
	baselinemod "driftwatch/internal/services/baseline/module"
	detectdom "driftwatch/internal/services/detect/domain"
	detectmod "driftwatch/internal/services/detect/module"
	discoverydom "driftwatch/internal/services/discovery/domain"
	discoverymod "driftwatch/internal/services/discovery/module"
)

func main() {
	root := config.New()
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	fOnce := flag.Bool("once", false, "score what has accumulated and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// clickhouse backs the durable alert sink when enabled
	st, err := store.Open(ctx, store.Config{
		AppName: "driftwatch",
		CH: store.CHConfig{
			Enabled:    chCfg.MayBool("ENABLED", false),
			URL:        chCfg.MayString("DBURL", ""),
			ClientName: "driftwatch-detect",
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

	deps := modkit.Deps{Log: *l, Cfg: root, CH: st.CH}

	disc, err := discoverymod.New(deps)
	if err != nil {
		l.Fatal().Err(err).Msg("discovery module init failed")
	}
	module.Register(disc.Name(), disc.Ports())
	logPort := module.MustPortsOf[discoverydom.LogPort](disc)

	bl, err := baselinemod.New(deps, logPort)
	if err != nil {
		l.Fatal().Err(err).Msg("baseline module init failed")
	}
	module.Register(bl.Name(), bl.Ports())

	det, err := detectmod.New(deps, logPort, module.MustPortsOf[baselinedom.StorePort](bl))
	if err != nil {
		l.Fatal().Err(err).Msg("detect module init failed")
	}
	module.Register(det.Name(), det.Ports())

	runner := module.MustPortsOf[detectdom.RunnerPort](det)
	if *fOnce {
		scored, emitted, err := runner.RunOnce(ctx)
		if err != nil {
			l.Fatal().Err(err).Msg("detect pass failed")
		}
		l.Info().Int("scored", scored).Int("emitted", emitted).Msg("detect pass complete")
		return
	}
	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		l.Fatal().Err(err).Msg("detector stopped")
	}
}
