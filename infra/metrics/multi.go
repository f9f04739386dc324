package metrics

import (
	"time"

	coremetrics "github.com/petbuddy/dispenser/core/metrics"
	"github.com/petbuddy/dispenser/core/model"
)

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPowerReading forwards the reading to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordPowerReading(r model.PowerReading) error {
	for _, s := range m.Sinks {
		if err := s.RecordPowerReading(r); err != nil {
			return err
		}
	}
	return nil
}

// RecordWeightReading forwards the reading to all sinks.
func (m *MultiSink) RecordWeightReading(r model.WeightReading) error {
	for _, s := range m.Sinks {
		if err := s.RecordWeightReading(r); err != nil {
			return err
		}
	}
	return nil
}

// RecordDispense forwards the dispense event to all sinks.
func (m *MultiSink) RecordDispense(outcome string, duration time.Duration) error {
	for _, s := range m.Sinks {
		if err := s.RecordDispense(outcome, duration); err != nil {
			return err
		}
	}
	return nil
}

// RecordOvercurrent forwards the trip event to all sinks.
func (m *MultiSink) RecordOvercurrent(avgCurrentAmps float64) error {
	for _, s := range m.Sinks {
		if err := s.RecordOvercurrent(avgCurrentAmps); err != nil {
			return err
		}
	}
	return nil
}

// RecordCalibration forwards the calibration record to all sinks.
func (m *MultiSink) RecordCalibration(cal model.WeightCalibration) error {
	for _, s := range m.Sinks {
		if err := s.RecordCalibration(cal); err != nil {
			return err
		}
	}
	return nil
}

// Close releases resources on sinks that hold any.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
