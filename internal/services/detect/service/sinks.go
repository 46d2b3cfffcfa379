package service

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	perr "driftwatch/internal/platform/errors"
	"driftwatch/internal/platform/logger"
	"driftwatch/internal/services/detect/domain"
)

// LogSink writes alerts to the structured log. Always wired: even with no
// external sinks configured an operator can tail alerts
type LogSink struct {
	log logger.Logger
}

// NewLogSink constructs the log sink
func NewLogSink() *LogSink { return &LogSink{log: *logger.Named("alerts")} }

// Name implements domain.SinkPort
func (*LogSink) Name() string { return "log" }

// Publish implements domain.SinkPort
func (s *LogSink) Publish(_ context.Context, a domain.Alert) error {
	s.log.Warn().
		Str("alert_id", a.ID).
		Str("entity", a.EntityID).
		Time("bucket", a.BucketStart).
		Int64("count", a.Count).
		Float64("mean", a.Mean).
		Float64("std_dev", a.StdDev).
		Float64("z_score", a.ZScore).
		Float64("threshold", a.Threshold).
		Msg("anomaly detected")
	return nil
}

// NATSSink publishes alerts as JSON onto a subject
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to the given NATS URL
func NewNATSSink(url, name, subject string) (*NATSSink, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, perr.Unavailablef("nats: connect %s: %v", url, err)
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

// Name implements domain.SinkPort
func (*NATSSink) Name() string { return "nats" }

// Publish implements domain.SinkPort
func (s *NATSSink) Publish(ctx context.Context, a domain.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return perr.JSONErrf("nats: encode alert: %v", err)
	}
	if err := s.conn.Publish(s.subject, raw); err != nil {
		return perr.Unavailablef("nats: publish %s: %v", s.subject, err)
	}
	return nil
}

// Close drains the connection
func (s *NATSSink) Close() error { return s.conn.Drain() }
