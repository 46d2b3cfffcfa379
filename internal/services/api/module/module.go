// Package module wires the ops endpoints into the API as a modkit module
package module

import (
	"net/http"
	"time"

	"driftwatch/internal/modkit"
	phttp "driftwatch/internal/platform/net/http"

	apihttp "driftwatch/internal/services/api/http"
)

// Module implements the modkit.Module interface
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler

	register func(phttp.Router)

	startedAt time.Time
}

// New constructs the ops module with the provided handler deps
func New(deps modkit.Deps, h apihttp.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("ops"),
	}, opts...)...)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		startedAt: time.Now().UTC(),
	}
	if h.StartedAt.IsZero() {
		h.StartedAt = m.startedAt
	}

	external := b.Register
	m.register = func(r phttp.Router) {
		apihttp.Register(r, h)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r phttp.Router) {
	if m.prefix == "" {
		m.register(r)
		return
	}
	r.Route(m.prefix, func(rr phttp.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		m.register(rr)
	})
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return m.name }

// Ports implements the modkit.Module interface; the ops module exposes none
func (m *Module) Ports() any { return nil }
