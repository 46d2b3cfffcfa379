package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"driftwatch/internal/modkit"
	"driftwatch/internal/modkit/module"
	"driftwatch/internal/platform/config"
	"driftwatch/internal/platform/logger"
	ptime "driftwatch/internal/platform/time"

	baselinedom "driftwatch/internal/services/baseline/domain"
	baselinemod "driftwatch/internal/services/baseline/module"
	"driftwatch/internal/services/baseline/service"
	discoverydom "driftwatch/internal/services/discovery/domain"
	discoverymod "driftwatch/internal/services/discovery/module"
)

func main() {
	root := config.New()
	l := logger.Get()

	fEvery := flag.Duration("every", 0, "rebuild on this cadence; 0 builds once and exits")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := modkit.Deps{Log: *l, Cfg: root}

	disc, err := discoverymod.New(deps)
	if err != nil {
		l.Fatal().Err(err).Msg("discovery module init failed")
	}
	module.Register(disc.Name(), disc.Ports())

	bl, err := baselinemod.New(deps, module.MustPortsOf[discoverydom.LogPort](disc))
	if err != nil {
		l.Fatal().Err(err).Msg("baseline module init failed")
	}
	module.Register(bl.Name(), bl.Ports())

	builder := module.MustPortsOf[baselinedom.BuilderPort](bl)

	if *fEvery <= 0 {
		if _, err := builder.Build(ctx); err != nil {
			l.Fatal().Err(err).Msg("baseline build failed")
		}
		return
	}

	for {
		if _, err := builder.Build(ctx); err != nil {
			// an empty log just means nothing to summarize yet
			if errors.Is(err, service.ErrNoData) {
				l.Warn().Msg("discovery log has no complete buckets, will retry")
			} else if ctx.Err() != nil {
				return
			} else {
				l.Error().Err(err).Msg("baseline build failed")
			}
		}
		if err := ptime.Sleep(ctx, *fEvery); err != nil {
			return
		}
	}
}
