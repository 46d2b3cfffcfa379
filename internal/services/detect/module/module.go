// Package module provides the detect module implementation
package module

import (
	"driftwatch/internal/modkit"
	phttp "driftwatch/internal/platform/net/http"
	baselinedom "driftwatch/internal/services/baseline/domain"
	"driftwatch/internal/services/detect/domain"
	"driftwatch/internal/services/detect/repo"
	"driftwatch/internal/services/detect/service"
	discoverydom "driftwatch/internal/services/discovery/domain"
)

// Ports defines the detect module ports
type Ports struct {
	Runner domain.RunnerPort
	Alerts domain.ReaderPort // nil without ClickHouse
}

// Module implements the detect module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the detect module. The log sink is always wired; NATS joins
// when CORE_DETECT_NATS_URL is set and ClickHouse when deps carry a handle
func New(deps modkit.Deps, log discoverydom.LogPort, baselines baselinedom.StorePort) (*Module, error) {
	opts := FromConfig(deps.Cfg)

	sinks := []domain.SinkPort{service.NewLogSink()}
	var alerts domain.ReaderPort
	if opts.NATSURL != "" {
		ns, err := service.NewNATSSink(opts.NATSURL, "driftwatch-detect", opts.NATSSubject)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ns)
	}
	if deps.CH != nil {
		ch := repo.NewCH(deps.CH)
		sinks = append(sinks, ch)
		alerts = ch
	}

	svc := service.New(log, baselines, sinks, service.Config{
		BucketWidth:         opts.BucketWidth,
		Threshold:           opts.Threshold,
		ColdStartMinSamples: opts.ColdStartMinSamples,
		MinTotalMentions:    opts.MinTotalMentions,
		PollInterval:        opts.PollInterval,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc, Alerts: alerts}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "detect" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op as detect has no routes
func (m *Module) MountRoutes(_ phttp.Router) {}
