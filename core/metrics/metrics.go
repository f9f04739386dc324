// Package metrics defines the sink interface used by the control plane to
// record operational events. Implementations live under infra/metrics.
package metrics

import (
	"time"

	"github.com/petbuddy/dispenser/core/model"
)

// Dispense outcomes recorded by the orchestrator.
const (
	OutcomeOK        = "ok"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// MetricsSink receives operational events from the dispenser control plane.
type MetricsSink interface {
	RecordPowerReading(r model.PowerReading) error
	RecordWeightReading(r model.WeightReading) error
	RecordDispense(outcome string, duration time.Duration) error
	RecordOvercurrent(avgCurrentAmps float64) error
	RecordCalibration(cal model.WeightCalibration) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordPowerReading(model.PowerReading) error   { return nil }
func (NopSink) RecordWeightReading(model.WeightReading) error { return nil }
func (NopSink) RecordDispense(string, time.Duration) error    { return nil }
func (NopSink) RecordOvercurrent(float64) error               { return nil }
func (NopSink) RecordCalibration(model.WeightCalibration) error {
	return nil
}

// Config holds metrics sink settings.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = "9105"
	}
}
