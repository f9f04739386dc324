// Package metrics provides the Prometheus and InfluxDB implementations of
// the core metrics sink.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/petbuddy/dispenser/core/metrics"
	"github.com/petbuddy/dispenser/core/model"
)

// PromSink records dispenser events in Prometheus metrics.
type PromSink struct {
	busVoltage  prometheus.Gauge
	current     prometheus.Gauge
	power       prometheus.Gauge
	weight      prometheus.Gauge
	tareRaw     prometheus.Gauge
	scale       prometheus.Gauge
	dispenses   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	overcurrent prometheus.Counter
}

// NewPromSink registers dispenser metrics on the default Prometheus
// registerer. The Prometheus server should be started separately using
// cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		busVoltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispenser_bus_voltage_volts",
			Help: "Latest bus voltage reported by the power sensor",
		}),
		current: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispenser_current_amps",
			Help: "Latest current reported by the power sensor",
		}),
		power: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispenser_power_watts",
			Help: "Latest power reported by the power sensor",
		}),
		weight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispenser_weight_grams",
			Help: "Latest converted weight reading",
		}),
		tareRaw: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispenser_calibration_tare_raw",
			Help: "Current tare baseline in raw sensor units",
		}),
		scale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispenser_calibration_scale",
			Help: "Current scale factor in raw units per gram",
		}),
		dispenses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispenser_dispense_total",
			Help: "Total number of dispense operations by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispenser_dispense_duration_seconds",
			Help:    "Duration of dispense operations including cooldown",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		overcurrent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispenser_overcurrent_trips_total",
			Help: "Total number of overcurrent interlock trips",
		}),
	}

	collectors := []prometheus.Collector{
		s.busVoltage, s.current, s.power, s.weight,
		s.tareRaw, s.scale, s.dispenses, s.duration, s.overcurrent,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

// RecordPowerReading updates the power gauges.
func (s *PromSink) RecordPowerReading(r model.PowerReading) error {
	s.busVoltage.Set(float64(r.BusVoltageVolts))
	s.current.Set(float64(r.CurrentAmps))
	s.power.Set(float64(r.PowerWatts))
	return nil
}

// RecordWeightReading updates the weight gauge.
func (s *PromSink) RecordWeightReading(r model.WeightReading) error {
	s.weight.Set(float64(r.Grams))
	return nil
}

// RecordDispense counts the outcome and observes the operation duration.
func (s *PromSink) RecordDispense(outcome string, duration time.Duration) error {
	s.dispenses.WithLabelValues(outcome).Inc()
	s.duration.WithLabelValues(outcome).Observe(duration.Seconds())
	return nil
}

// RecordOvercurrent counts an interlock trip.
func (s *PromSink) RecordOvercurrent(float64) error {
	s.overcurrent.Inc()
	return nil
}

// RecordCalibration updates the calibration gauges.
func (s *PromSink) RecordCalibration(cal model.WeightCalibration) error {
	s.tareRaw.Set(float64(cal.TareRaw))
	s.scale.Set(float64(cal.Scale))
	return nil
}
