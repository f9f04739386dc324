package dispenser

import (
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/petbuddy/dispenser/core/model"
)

// Tare establishes the raw sensor value corresponding to zero weight. It
// collects roughly three seconds of raw samples, computes a 20%-trimmed
// mean and publishes it as the new tare baseline.
func (s *DeviceState) Tare() (model.WeightCalibration, error) {
	if err := s.beginCalibration(); err != nil {
		return model.WeightCalibration{}, err
	}
	defer s.calibrating.Store(false)

	s.log.Infof("taring weight sensor")
	samples, err := s.collectRawSamples()
	if err != nil {
		s.setStatus(CalibrationFailed)
		return model.WeightCalibration{}, err
	}

	tare := trimmedMean(samples)
	cal := s.calibration.Get()
	cal.TareRaw = int32(tare)
	s.calibration.Set(cal)
	_ = s.sink.RecordCalibration(cal)

	s.setStatus(Operational)
	s.log.Infof("tare completed, tare_raw: %d", cal.TareRaw)
	return cal, nil
}

// Calibrate derives the scale factor from a known mass currently placed on
// the load cell. The result is forced positive, published and persisted so
// it survives a restart.
func (s *DeviceState) Calibrate(knownMassGrams float64) (model.WeightCalibration, error) {
	if knownMassGrams <= 0 {
		return model.WeightCalibration{}, fmt.Errorf("known mass must be positive, got %.2f", knownMassGrams)
	}
	if err := s.beginCalibration(); err != nil {
		return model.WeightCalibration{}, err
	}
	defer s.calibrating.Store(false)

	s.log.Infof("calibrating weight sensor with known mass %.1f g", knownMassGrams)
	samples, err := s.collectRawSamples()
	if err != nil {
		s.setStatus(CalibrationFailed)
		return model.WeightCalibration{}, err
	}

	mean := trimmedMean(samples)
	cal := s.calibration.Get()
	scale := (mean - float64(cal.TareRaw)) / knownMassGrams
	cal.Scale = float32(math.Abs(scale))
	s.calibration.Set(cal)
	_ = s.sink.RecordCalibration(cal)

	if err := SaveCalibration(s.cfg.CalibrationFile, cal); err != nil {
		s.log.Errorf("failed to persist calibration: %v", err)
	}

	s.setStatus(Operational)
	s.log.Infof("calibration completed, scale factor: %.4f", cal.Scale)
	return cal, nil
}

// beginCalibration claims the cross-task calibration gate and transitions
// the state machine. Exactly one calibration may be in flight; the losing
// caller gets ErrBusy.
func (s *DeviceState) beginCalibration() error {
	if !s.calibrating.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: calibration already in progress", ErrBusy)
	}
	s.mu.Lock()
	switch s.status {
	case Operational, Cancelled:
		s.status = Calibrating
		s.mu.Unlock()
		return nil
	default:
		st := s.status
		s.mu.Unlock()
		s.calibrating.Store(false)
		return fmt.Errorf("%w: cannot calibrate while %s", ErrBusy, st)
	}
}

// collectRawSamples reads the configured number of raw values at the
// sensor's cadence. The state lock is never held here; the weight monitor
// is paused through the calibration gate instead. Individual read errors
// are skipped.
func (s *DeviceState) collectRawSamples() ([]int32, error) {
	s.mu.Lock()
	ws := s.weightSensor
	s.mu.Unlock()
	if ws == nil {
		return nil, ErrCalibrationUnavailable
	}

	period := time.Duration(s.cfg.WeightSamplePeriodMS) * time.Millisecond
	samples := make([]int32, 0, s.cfg.CalibrationSamples)
	for i := 0; i < s.cfg.CalibrationSamples; i++ {
		raw, err := ws.ReadRaw()
		if err != nil {
			s.log.Debugf("raw read failed during calibration: %v", err)
			continue
		}
		samples = append(samples, raw)
		time.Sleep(period)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no raw samples collected", ErrCalibrationUnavailable)
	}
	return samples, nil
}

// trimmedMean sorts the samples, discards the lowest and highest 20% and
// averages the rest, keeping at least one element even for tiny inputs.
// The result is rounded to the nearest integer.
func trimmedMean(samples []int32) float64 {
	vals := make([]float64, len(samples))
	for i, v := range samples {
		vals[i] = float64(v)
	}
	slices.Sort(vals)

	k := int(math.Round(float64(len(vals)) * 0.2))
	hi := len(vals) - k
	if min := k + 1; hi < min {
		hi = min
	}
	return math.Round(stat.Mean(vals[k:hi], nil))
}
