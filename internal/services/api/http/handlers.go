// Package http hosts the HTTP handlers for the ops API
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"driftwatch/internal/core/normalize"
	"driftwatch/internal/core/version"
	perr "driftwatch/internal/platform/errors"
	phttp "driftwatch/internal/platform/net/http"
	"driftwatch/internal/platform/store"
	baselinedom "driftwatch/internal/services/baseline/domain"
	detectdom "driftwatch/internal/services/detect/domain"
	discoverydom "driftwatch/internal/services/discovery/domain"
	ingestdom "driftwatch/internal/services/ingest/domain"
)

// Deps carries everything the handlers need
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Store       *store.Store

	Log        discoverydom.LogPort
	Checkpoint ingestdom.CheckpointStore
	Baselines  baselinedom.StorePort
	Alerts     detectdom.ReaderPort
}

type handlers struct {
	deps Deps
	norm *normalize.Normalizer
}

// Register wires the handlers onto the router
func Register(r phttp.Router, deps Deps) {
	if deps.StartedAt.IsZero() {
		deps.StartedAt = time.Now().UTC()
	}
	h := &handlers{deps: deps, norm: normalize.New()}

	r.Get("/healthz", h.health)
	r.Route("/v1", func(v1 phttp.Router) {
		v1.Get("/status", h.status)
		v1.Get("/baseline/profiles/{entity}", h.baselineProfile)
		v1.Get("/alerts/recent", h.alertsRecent)
	})
}

type depStatus struct {
	Status string `json:"status"` // ok | fail | skipped
	Error  string `json:"error,omitempty"`
}

type healthBody struct {
	Service string               `json:"service"`
	Status  string               `json:"status"` // ok | degraded
	Uptime  string               `json:"uptime"`
	Deps    map[string]depStatus `json:"deps"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := map[string]depStatus{
		"postgres":   h.check(ctx, pgPinger(h.deps.Store)),
		"clickhouse": h.check(ctx, chPinger(h.deps.Store)),
	}
	overall := "ok"
	for _, d := range deps {
		if d.Status == "fail" {
			overall = "degraded"
		}
	}
	phttp.RespondOK(w, r, healthBody{
		Service: h.deps.ServiceName,
		Status:  overall,
		Uptime:  time.Since(h.deps.StartedAt).Round(time.Second).String(),
		Deps:    deps,
	})
}

func (h *handlers) check(ctx context.Context, p store.Pinger) depStatus {
	if p == nil {
		return depStatus{Status: "skipped"}
	}
	if err := p.Ping(ctx); err != nil {
		return depStatus{Status: "fail", Error: err.Error()}
	}
	return depStatus{Status: "ok"}
}

func pgPinger(s *store.Store) store.Pinger {
	if s == nil || s.PG == nil {
		return nil
	}
	if p, ok := any(s.PG).(store.Pinger); ok {
		return p
	}
	return nil
}

func chPinger(s *store.Store) store.Pinger {
	if s == nil || s.CH == nil {
		return nil
	}
	return s.CH
}

type checkpointBody struct {
	Defined      bool   `json:"defined"`
	LastInterval string `json:"last_interval,omitempty"`
}

type baselineBody struct {
	Present     bool   `json:"present"`
	BuiltAt     string `json:"built_at,omitempty"`
	FirstBucket string `json:"first_bucket,omitempty"`
	LastBucket  string `json:"last_bucket,omitempty"`
	BucketWidth string `json:"bucket_width,omitempty"`
	SourceBatch string `json:"source_batch,omitempty"`
	Buckets     int    `json:"buckets"`
	Entities    int    `json:"entities"`
}

type statusBody struct {
	Service     string            `json:"service"`
	Build       version.BuildInfo `json:"build"`
	Uptime      string            `json:"uptime"`
	Checkpoint  checkpointBody    `json:"checkpoint"`
	LatestBatch string            `json:"latest_batch,omitempty"`
	Baseline    baselineBody      `json:"baseline"`
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body := statusBody{
		Service: h.deps.ServiceName,
		Build:   version.Info(h.deps.ServiceName),
		Uptime:  time.Since(h.deps.StartedAt).Round(time.Second).String(),
	}

	if h.deps.Checkpoint != nil {
		ck, err := h.deps.Checkpoint.Load(ctx)
		if err != nil {
			phttp.RespondError(w, r, err)
			return
		}
		body.Checkpoint.Defined = ck.Defined()
		if ck.Defined() {
			body.Checkpoint.LastInterval = ck.LastInterval.UTC().Format(time.RFC3339)
		}
	}

	if h.deps.Log != nil {
		id, ok, err := h.deps.Log.LatestBatch(ctx)
		if err != nil {
			phttp.RespondError(w, r, err)
			return
		}
		if ok {
			body.LatestBatch = id
		}
	}

	if h.deps.Baselines != nil {
		snap, ok, err := h.deps.Baselines.Current(ctx)
		if err != nil {
			phttp.RespondError(w, r, err)
			return
		}
		if ok {
			body.Baseline = baselineBody{
				Present:     true,
				BuiltAt:     snap.BuiltAt.UTC().Format(time.RFC3339),
				FirstBucket: snap.FirstBucket.UTC().Format(time.RFC3339),
				LastBucket:  snap.LastBucket.UTC().Format(time.RFC3339),
				BucketWidth: snap.BucketWidth.String(),
				SourceBatch: snap.SourceBatch,
				Buckets:     snap.Buckets(),
				Entities:    len(snap.Entities),
			}
		}
	}

	phttp.RespondOK(w, r, body)
}

type profileBody struct {
	EntityID      string  `json:"entity_id"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"std_dev"`
	SampleCount   int64   `json:"sample_count"`
	TotalMentions int64   `json:"total_mentions"`
	BaselineBuilt string  `json:"baseline_built_at"`
}

func (h *handlers) baselineProfile(w http.ResponseWriter, r *http.Request) {
	if h.deps.Baselines == nil {
		phttp.RespondNotImplemented(w, r, "baseline store not configured")
		return
	}
	entity := h.norm.EntityID(chi.URLParam(r, "entity"))
	if entity == "" {
		phttp.RespondError(w, r, perr.InvalidArgf("entity must not be empty"))
		return
	}

	snap, ok, err := h.deps.Baselines.Current(r.Context())
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	if !ok {
		phttp.RespondError(w, r, perr.NotFoundf("no baseline built yet"))
		return
	}
	p := snap.Lookup(entity)
	if !p.Defined {
		phttp.RespondError(w, r, perr.NotFoundf("no profile for entity %q", entity))
		return
	}
	phttp.RespondOK(w, r, profileBody{
		EntityID:      p.EntityID,
		Mean:          p.Mean,
		StdDev:        p.StdDev,
		SampleCount:   p.SampleCount,
		TotalMentions: p.TotalMentions,
		BaselineBuilt: snap.BuiltAt.UTC().Format(time.RFC3339),
	})
}

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

func (h *handlers) alertsRecent(w http.ResponseWriter, r *http.Request) {
	if h.deps.Alerts == nil {
		phttp.RespondNotImplemented(w, r, "alert history store not configured")
		return
	}
	limit := defaultAlertLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			phttp.RespondError(w, r, perr.InvalidArgf("limit must be a positive integer"))
			return
		}
		limit = min(n, maxAlertLimit)
	}
	alerts, err := h.deps.Alerts.Recent(r.Context(), limit)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []detectdom.Alert{}
	}
	phttp.RespondOK(w, r, alerts)
}
