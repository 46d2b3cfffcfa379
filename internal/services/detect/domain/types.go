// Package domain holds the core types and ports for anomaly detection
package domain

import "time"

// Alert is one scored anomaly: an entity whose mention count in a closed
// bucket sits above the z-score threshold against its baseline profile
type Alert struct {
	ID              string        `json:"id"`
	EntityID        string        `json:"entity_id"`
	BucketStart     time.Time     `json:"bucket_start"`
	BucketWidth     time.Duration `json:"bucket_width"`
	Count           int64         `json:"count"`
	Mean            float64       `json:"mean"`
	StdDev          float64       `json:"std_dev"`
	ZScore          float64       `json:"z_score"`
	Threshold       float64       `json:"threshold"`
	BaselineBuiltAt time.Time     `json:"baseline_built_at"`
	EmittedAt       time.Time     `json:"emitted_at"`
}
