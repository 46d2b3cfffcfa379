// Package module provides the discovery module implementation
package module

import (
	"driftwatch/internal/modkit"
	phttp "driftwatch/internal/platform/net/http"
	"driftwatch/internal/services/discovery/domain"
	"driftwatch/internal/services/discovery/repo"
	"driftwatch/internal/services/discovery/service"
)

// Ports defines the discovery module ports
type Ports struct {
	Log domain.LogPort
}

// Module implements the discovery module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the discovery module over the filesystem backend.
// The data dir comes from CORE_DATA_DIR with a local default
func New(deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	fs, err := repo.NewFS(opts.DataDir)
	if err != nil {
		return nil, err
	}
	m := &Module{deps: deps}
	m.ports = Ports{Log: service.New(fs)}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "discovery" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op as discovery has no routes
func (m *Module) MountRoutes(_ phttp.Router) {}
