// Package app wires the configured hardware backends, sinks and telemetry
// into a running dispenser service.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/petbuddy/dispenser/config"
	"github.com/petbuddy/dispenser/core/dispenser"
	coremetrics "github.com/petbuddy/dispenser/core/metrics"
	"github.com/petbuddy/dispenser/core/model"
	coremotor "github.com/petbuddy/dispenser/core/motor"
	coresensor "github.com/petbuddy/dispenser/core/sensor"
	"github.com/petbuddy/dispenser/core/telemetry"
	"github.com/petbuddy/dispenser/infra/logger"
	"github.com/petbuddy/dispenser/infra/metrics"
	inframotor "github.com/petbuddy/dispenser/infra/motor"
	"github.com/petbuddy/dispenser/infra/mqtt"
	infrasensor "github.com/petbuddy/dispenser/infra/sensor"
)

// Service orchestrates the dispenser control plane and its monitors.
type Service struct {
	State *dispenser.DeviceState

	cfg     *config.Config
	log     logger.Logger
	pub     telemetry.Publisher
	closers []func() error
}

// New creates a Service from the configuration. A missing power sensor
// degrades to monitoring-less operation; a missing weight sensor is fatal
// because tare and calibration cannot work without one.
func New(cfg *config.Config, version string) (*Service, error) {
	logg := logger.New("service")

	var sinks []coremetrics.MetricsSink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.MetricsSink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	m, err := newMotor(cfg.Motor)
	if err != nil {
		return nil, err
	}

	svc := &Service{cfg: cfg, log: logg, pub: telemetry.Nop{}}
	power := newPowerSensor(cfg.PowerSensor, logg)
	weight, err := newWeightSensor(cfg.WeightSensor)
	if err != nil {
		return nil, err
	}
	for _, s := range []any{power, weight} {
		if c, ok := s.(interface{ Close() error }); ok {
			svc.closers = append(svc.closers, c.Close)
		}
	}

	ioAvailable := !m.RequiresPhysicalIO() || inframotor.HasGPIO()
	state, err := dispenser.New(cfg.Dispenser, version, m, power, weight, ioAvailable, logger.New("dispenser"), sink)
	if err != nil {
		return nil, err
	}
	if sd, ok := m.(*inframotor.StepDir); ok {
		sd.SetPowerFeed(state.PowerLatest())
	}

	if cfg.Telemetry.Enabled {
		p, err := mqtt.NewPahoPublisher(cfg.Telemetry)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.pub = p
	}

	svc.State = state
	return svc, nil
}

func newMotor(cfg config.MotorConfig) (coremotor.Stepper, error) {
	switch cfg.Type {
	case config.MotorULN2003:
		return inframotor.NewULN2003(cfg.ULN2003), nil
	case config.MotorStepDir:
		return inframotor.NewStepDir(cfg.StepDir), nil
	case config.MotorMock:
		return coremotor.NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown motor type %s", cfg.Type)
	}
}

func newPowerSensor(cfg config.PowerSensorConfig, log logger.Logger) coresensor.PowerSensor {
	switch cfg.Type {
	case config.PowerSensorINA219:
		s, err := infrasensor.NewINA219(cfg.INA219)
		if err != nil {
			log.Warnf("power sensor unavailable, monitoring disabled: %v", err)
			return nil
		}
		return s
	case config.PowerSensorMock:
		mock := coresensor.NewMockPower()
		mock.SetReading(model.PowerReading{BusVoltageVolts: 12.0, CurrentAmps: 0.6, PowerWatts: 7.2})
		return mock
	default:
		return nil
	}
}

func newWeightSensor(cfg config.WeightSensorConfig) (coresensor.WeightSensor, error) {
	switch cfg.Type {
	case config.WeightSensorHX711:
		s, err := infrasensor.NewHX711(cfg.HX711)
		if err != nil {
			return nil, fmt.Errorf("weight sensor: %w", err)
		}
		return s, nil
	case config.WeightSensorSerial:
		s, err := infrasensor.NewSerialScale(cfg.Serial)
		if err != nil {
			return nil, fmt.Errorf("weight sensor: %w", err)
		}
		return s, nil
	case config.WeightSensorMock:
		return coresensor.NewMockWeight(123456), nil
	default:
		return nil, fmt.Errorf("unknown weight sensor type %s", cfg.Type)
	}
}

// Dispense starts an asynchronous dispense operation.
func (s *Service) Dispense() error { return s.State.Dispense() }

// Cancel aborts the in-flight dispense operation.
func (s *Service) Cancel() error { return s.State.Cancel() }

// Tare re-baselines the scale with an empty bowl.
func (s *Service) Tare() (model.WeightCalibration, error) { return s.State.Tare() }

// Calibrate derives the scale factor from a known reference mass.
func (s *Service) Calibrate(knownMassGrams float64) (model.WeightCalibration, error) {
	return s.State.Calibrate(knownMassGrams)
}

// Status returns the current device status.
func (s *Service) Status() dispenser.Status { return s.State.Status() }

// Snapshot returns a consistent view of the device state.
func (s *Service) Snapshot() dispenser.Snapshot { return s.State.Snapshot() }

// Run starts the monitor loops and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.State.RunPowerMonitor(ctx)
	go s.State.RunWeightMonitor(ctx)
	if s.cfg.Metrics.PrometheusEnabled {
		addr := s.cfg.Metrics.PrometheusPort
		if !strings.Contains(addr, ":") {
			addr = ":" + addr
		}
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.Telemetry.Enabled {
		go s.runTelemetry(ctx)
	}
	<-ctx.Done()
	return nil
}

// runTelemetry pushes the latest readings at the configured interval and
// the status whenever it changes.
func (s *Service) runTelemetry(ctx context.Context) {
	interval := time.Duration(s.cfg.Telemetry.IntervalMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastStatus string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.pub.PublishPower(s.State.PowerLatest().Get()); err != nil {
				s.log.Errorf("publish power: %v", err)
			}
			if err := s.pub.PublishWeight(s.State.WeightLatest().Get()); err != nil {
				s.log.Errorf("publish weight: %v", err)
			}
			if status := s.State.Status().String(); status != lastStatus {
				if err := s.pub.PublishStatus(status); err != nil {
					s.log.Errorf("publish status: %v", err)
				} else {
					lastStatus = status
				}
			}
		}
	}
}

// Close releases resources held by the service. A failing publisher must
// not keep the sensor buses open, so every closer runs regardless.
func (s *Service) Close() error {
	var firstErr error
	if err := s.pub.Close(); err != nil {
		s.log.Warnf("telemetry close: %v", err)
		firstErr = err
	}
	for _, close := range s.closers {
		if err := close(); err != nil {
			s.log.Warnf("sensor close: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
