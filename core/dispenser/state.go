// Package dispenser implements the treat dispenser control plane: the
// shared device state, the dispense state machine with cancellation and
// cooldown, the sensor monitoring loops and the weight calibration
// algorithm.
package dispenser

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petbuddy/dispenser/core/logger"
	"github.com/petbuddy/dispenser/core/metrics"
	"github.com/petbuddy/dispenser/core/model"
	"github.com/petbuddy/dispenser/core/motor"
	"github.com/petbuddy/dispenser/core/sensor"
	"github.com/petbuddy/dispenser/internal/cancel"
	"github.com/petbuddy/dispenser/internal/watch"
)

// NopLogger is used when no logger is supplied.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}

// DeviceState is the single source of truth for the dispenser. One instance
// exists per process; all background tasks and callers share it by
// reference. Mutable fields are guarded by one mutex; the lock is never
// held across a blocking hardware call or sleep.
type DeviceState struct {
	cfg     Config
	version string
	log     logger.Logger
	sink    metrics.MetricsSink

	mu               sync.Mutex
	status           Status
	startupTime      time.Time
	lastDispenseTime time.Time
	lastDispenseID   string
	lastStepIndex    *uint32
	lastErrMsg       string
	lastErrTime      time.Time
	cancelToken      *cancel.Token
	ioAvailable      bool

	motor        motor.Stepper
	powerSensor  sensor.PowerSensor
	weightSensor sensor.WeightSensor

	powerLatest  *watch.Value[model.PowerReading]
	weightLatest *watch.Value[model.WeightReading]
	calibration  *watch.Value[model.WeightCalibration]
	calibrating  atomic.Bool
}

// New constructs the device state. The motor is mandatory; sensors may be
// nil when their initialization failed, which disables the corresponding
// monitor loop. ioAvailable reports whether physical GPIO access is usable:
// a motor that requires it starts in NoGpio status otherwise.
func New(cfg Config, version string, m motor.Stepper, power sensor.PowerSensor, weight sensor.WeightSensor, ioAvailable bool, log logger.Logger, sink metrics.MetricsSink) (*DeviceState, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dispenser config: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: motor is required", ErrHardwareUnavailable)
	}
	if log == nil {
		log = nopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}

	status := Operational
	if m.RequiresPhysicalIO() && !ioAvailable {
		log.Errorf("motor %s requires physical IO but none is available", m.Name())
		status = NoGpio
	}

	cal := LoadCalibration(cfg.CalibrationFile, log)

	s := &DeviceState{
		cfg:          cfg,
		version:      version,
		log:          log,
		sink:         sink,
		status:       status,
		startupTime:  time.Now(),
		ioAvailable:  ioAvailable,
		motor:        m,
		powerSensor:  power,
		weightSensor: weight,
		powerLatest:  watch.New(model.DummyPowerReading()),
		weightLatest: watch.New(model.WeightReading{}),
		calibration:  watch.New(cal),
	}
	log.Infof("device state initialized: motor=%s status=%s", m.Name(), status)
	return s, nil
}

// Status returns the current state machine value.
func (s *DeviceState) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// PowerLatest exposes the single-slot power reading channel.
func (s *DeviceState) PowerLatest() *watch.Value[model.PowerReading] {
	return s.powerLatest
}

// WeightLatest exposes the single-slot weight reading channel.
func (s *DeviceState) WeightLatest() *watch.Value[model.WeightReading] {
	return s.weightLatest
}

// Calibration exposes the single-slot calibration channel.
func (s *DeviceState) Calibration() *watch.Value[model.WeightCalibration] {
	return s.calibration
}

// CalibrationInProgress reports the cross-task calibration gate.
func (s *DeviceState) CalibrationInProgress() bool {
	return s.calibrating.Load()
}

func (s *DeviceState) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
	s.log.Debugf("dispenser status set to %s", st)
}

// recordErrorLocked stores the last error for observability. Callers must
// hold the state lock.
func (s *DeviceState) recordErrorLocked(msg string) {
	s.lastErrMsg = msg
	s.lastErrTime = time.Now()
}

// Snapshot is a point-in-time view of the device state for the transport
// layer.
type Snapshot struct {
	Status           string                  `json:"status"`
	UptimeSeconds    uint64                  `json:"uptime_seconds"`
	Version          string                  `json:"version"`
	Motor            string                  `json:"motor"`
	IOAvailable      bool                    `json:"io_available"`
	LastDispenseTime *time.Time              `json:"last_dispense_time,omitempty"`
	LastDispenseID   string                  `json:"last_dispense_id,omitempty"`
	LastStepIndex    *uint32                 `json:"last_step_index,omitempty"`
	LastErrorMsg     string                  `json:"last_error_msg,omitempty"`
	LastErrorTime    *time.Time              `json:"last_error_time,omitempty"`
	Power            model.PowerReading      `json:"power"`
	Weight           model.WeightReading     `json:"weight"`
	Calibration      model.WeightCalibration `json:"calibration"`
}

// Snapshot locks once, copies what it needs and reads the latest-value
// channels outside the critical section.
func (s *DeviceState) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Status:         s.status.String(),
		UptimeSeconds:  uint64(time.Since(s.startupTime).Seconds()),
		Version:        s.version,
		Motor:          s.motor.Name(),
		IOAvailable:    s.ioAvailable,
		LastDispenseID: s.lastDispenseID,
		LastErrorMsg:   s.lastErrMsg,
	}
	if !s.lastDispenseTime.IsZero() {
		t := s.lastDispenseTime
		snap.LastDispenseTime = &t
	}
	if s.lastStepIndex != nil {
		idx := *s.lastStepIndex
		snap.LastStepIndex = &idx
	}
	if !s.lastErrTime.IsZero() {
		t := s.lastErrTime
		snap.LastErrorTime = &t
	}
	s.mu.Unlock()

	snap.Power = s.powerLatest.Get()
	snap.Weight = s.weightLatest.Get()
	snap.Calibration = s.calibration.Get()
	return snap
}
