// Package service implements the discovery log port over a storage backend
package service

import (
	"context"

	"driftwatch/internal/platform/logger"
	"driftwatch/internal/platform/metrics"
	"driftwatch/internal/services/discovery/domain"
)

// Service fronts a log backend with logging and counters
type Service struct {
	backend domain.LogPort
	log     logger.Logger
}

// New constructs the discovery service over the given backend
func New(backend domain.LogPort) *Service {
	return &Service{backend: backend, log: *logger.Named("discovery")}
}

// Append delegates to the backend and counts durable records
func (s *Service) Append(ctx context.Context, batchID string, recs []domain.Record) error {
	if err := s.backend.Append(ctx, batchID, recs); err != nil {
		return err
	}
	metrics.RecordsAppendedTotal.Add(float64(len(recs)))
	return nil
}

// Scan streams every record in batch order
func (s *Service) Scan(ctx context.Context, fn func(domain.Record) error) error {
	return s.backend.Scan(ctx, fn)
}

// ScanSince streams records from batches strictly after the given id
func (s *Service) ScanSince(ctx context.Context, afterBatchID string, fn func(domain.Record) error) error {
	return s.backend.ScanSince(ctx, afterBatchID, fn)
}

// LatestBatch returns the highest batch id present
func (s *Service) LatestBatch(ctx context.Context) (string, bool, error) {
	return s.backend.LatestBatch(ctx)
}
