// Package module provides the baseline module implementation
package module

import (
	"driftwatch/internal/modkit"
	phttp "driftwatch/internal/platform/net/http"
	"driftwatch/internal/services/baseline/domain"
	"driftwatch/internal/services/baseline/repo"
	"driftwatch/internal/services/baseline/service"
	discoverydom "driftwatch/internal/services/discovery/domain"
)

// Ports defines the baseline module ports
type Ports struct {
	Builder domain.BuilderPort
	Store   domain.StorePort
}

// Module implements the baseline module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the baseline module over the given discovery log
func New(deps modkit.Deps, log discoverydom.LogPort) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	store, err := repo.NewFS(opts.DataDir)
	if err != nil {
		return nil, err
	}
	svc := service.New(log, store, service.Config{
		BucketWidth:      opts.BucketWidth,
		MinTotalMentions: opts.MinTotalMentions,
	})
	m := &Module{deps: deps}
	m.ports = Ports{Builder: svc, Store: store}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "baseline" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op as baseline has no routes
func (m *Module) MountRoutes(_ phttp.Router) {}
