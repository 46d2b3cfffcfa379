// Package module provides the ingest module implementation
package module

import (
	"driftwatch/internal/modkit"
	"driftwatch/internal/modkit/repokit"
	phttp "driftwatch/internal/platform/net/http"
	discoverydom "driftwatch/internal/services/discovery/domain"
	"driftwatch/internal/services/ingest/domain"
	"driftwatch/internal/services/ingest/feed"
	"driftwatch/internal/services/ingest/repo"
	"driftwatch/internal/services/ingest/service"
)

// Ports defines the ingest module ports
type Ports struct {
	Runner     domain.RunnerPort
	Checkpoint domain.CheckpointStore
}

// Module implements the ingest module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the ingest module over the given discovery log.
// The checkpoint lives on the filesystem by default; setting
// CORE_INGEST_CHECKPOINT=pg moves it into Postgres, and a Postgres handle in
// deps also enables the batch ledger
func New(deps modkit.Deps, log discoverydom.LogPort) (*Module, error) {
	opts := FromConfig(deps.Cfg)

	var ck domain.CheckpointStore
	if opts.CheckpointBackend == "pg" && deps.PG != nil {
		ck = repo.NewPGCheckpoint(repokit.TxRunner(deps.PG))
	} else {
		fsck, err := repo.NewFSCheckpoint(opts.DataDir)
		if err != nil {
			return nil, err
		}
		ck = fsck
	}

	var ledger domain.LedgerRepo
	if deps.PG != nil {
		ledger = repokit.MustBind(repo.NewPG(), deps.PG)
	}

	svc := service.New(
		feed.New(deps),
		log,
		ck,
		ledger,
		service.Config{
			PollInterval:  opts.PollInterval,
			RetryCeiling:  opts.RetryCeiling,
			RetryBase:     opts.RetryBase,
			SkipOnFailure: opts.SkipOnFailure,
			Origin:        opts.Origin,
			MaxBatches:    opts.MaxBatches,
		},
	)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc, Checkpoint: ck}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "ingest" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op as ingest has no routes
func (m *Module) MountRoutes(_ phttp.Router) {}
