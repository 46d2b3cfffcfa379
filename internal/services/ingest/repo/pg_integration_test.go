//go:build integration_pg
// +build integration_pg

package repo

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"driftwatch/internal/platform/store"
	"driftwatch/internal/services/ingest/domain"
)

// startPostgres launches a disposable Postgres and returns DSN + stop func
func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mp.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

func openStore(t *testing.T, ctx context.Context, dsn string) *store.Store {
	t.Helper()
	s, err := store.Open(ctx, store.Config{
		AppName: "driftwatch-test",
		PG:      store.PGConfig{Enabled: true, URL: dsn, MaxConns: 2},
	}, store.WithLogger(zerolog.New(io.Discard)))
	if err != nil {
		t.Fatalf("store open: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func migrate(t *testing.T, ctx context.Context, s *store.Store) {
	t.Helper()
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS ingest_checkpoint (
			id            SMALLINT PRIMARY KEY CHECK (id = 1),
			last_interval TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS ingest_batches (
			interval_utc TIMESTAMPTZ PRIMARY KEY,
			started_at   TIMESTAMPTZ,
			finished_at  TIMESTAMPTZ,
			status       TEXT NOT NULL DEFAULT 'pending',
			records      INT NOT NULL DEFAULT 0,
			skipped      INT NOT NULL DEFAULT 0,
			fetch_ms     INT NOT NULL DEFAULT 0,
			elapsed_ms   INT NOT NULL DEFAULT 0,
			error        TEXT
		)`,
	} {
		if _, err := s.PG.Exec(ctx, ddl); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
}

func TestPGCheckpoint_Integration_RoundTrip(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	s := openStore(t, ctx, dsn)
	migrate(t, ctx, s)

	ck := NewPGCheckpoint(s.PG)

	got, err := ck.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if got.Defined() {
		t.Fatalf("empty table must load as undefined, got %+v", got)
	}

	want := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	if err := ck.Save(ctx, domain.Checkpoint{LastInterval: want}); err != nil {
		t.Fatalf("save: %v", err)
	}
	// upsert path
	want = want.Add(15 * time.Minute)
	if err := ck.Save(ctx, domain.Checkpoint{LastInterval: want}); err != nil {
		t.Fatalf("save twice: %v", err)
	}

	got, err = ck.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.LastInterval.Equal(want) {
		t.Fatalf("loaded %v, want %v", got.LastInterval, want)
	}
}

func TestPGLedger_Integration_StartFinish(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	s := openStore(t, ctx, dsn)
	migrate(t, ctx, s)

	ledger := NewPG().Bind(s.PG)
	interval := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

	if err := ledger.StartBatch(ctx, interval); err != nil {
		t.Fatalf("start: %v", err)
	}
	// restart of the same interval is idempotent
	if err := ledger.StartBatch(ctx, interval); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := ledger.FinishBatch(ctx, interval, domain.BatchFinish{
		Status: "ok", Records: 42, Skipped: 1, FetchMS: 120, ElapsedMS: 340,
	}); err != nil {
		t.Fatalf("finish: %v", err)
	}

	var status string
	var records int
	if err := s.PG.QueryRow(ctx,
		`SELECT status, records FROM ingest_batches WHERE interval_utc = $1`, interval,
	).Scan(&status, &records); err != nil {
		t.Fatalf("readback: %v", err)
	}
	if status != "ok" || records != 42 {
		t.Fatalf("ledger row: status=%q records=%d", status, records)
	}
}
