package dispenser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petbuddy/dispenser/core/motor"
	"github.com/petbuddy/dispenser/core/sensor"
	"github.com/petbuddy/dispenser/infra/logger"
)

func TestTrimmedMean(t *testing.T) {
	// k = round(0.2*10) = 2, slice [2:8) -> values 3..8, mean 5.5 -> 6
	assert.Equal(t, 6.0, trimmedMean([]int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))

	// tiny inputs keep at least one element
	assert.Equal(t, 7.0, trimmedMean([]int32{7}))
	assert.Equal(t, 5.0, trimmedMean([]int32{4, 6}))
	assert.Equal(t, 5.0, trimmedMean([]int32{1, 5, 100}))

	// constant samples survive trimming unchanged
	assert.Equal(t, 1000.0, trimmedMean([]int32{1000, 1000, 1000, 1000}))
}

func TestTareRoundTrip(t *testing.T) {
	ws := sensor.NewMockWeight(1000)
	m := &motor.Mock{RunDuration: time.Millisecond}
	s := newTestState(t, m, nil, ws, nil)

	cal, err := s.Tare()
	require.NoError(t, err)
	assert.Equal(t, int32(1000), cal.TareRaw)
	assert.Equal(t, Operational, s.Status())
	assert.False(t, s.CalibrationInProgress())

	// raw samples at the tare point now read as zero grams
	reading, err := ws.ReadWeight(s.Calibration().Get())
	require.NoError(t, err)
	assert.Equal(t, int32(0), reading.Grams)
}

func TestCalibrateScaleRoundTrip(t *testing.T) {
	ws := sensor.NewMockWeight(1000)
	m := &motor.Mock{RunDuration: time.Millisecond}
	s := newTestState(t, m, nil, ws, nil)

	_, err := s.Tare()
	require.NoError(t, err)

	// known 500 g mass raises the raw value by 1000 units
	ws.SetRaw(2000)
	cal, err := s.Calibrate(500.0)
	require.NoError(t, err)
	assert.Equal(t, float32(2.0), cal.Scale)
	assert.Equal(t, Operational, s.Status())

	// idempotent: recomputing from the same samples yields the same scale
	cal, err = s.Calibrate(500.0)
	require.NoError(t, err)
	assert.Equal(t, float32(2.0), cal.Scale)

	// persisted record survives a reload
	loaded := LoadCalibration(s.cfg.CalibrationFile, logger.NopLogger{})
	assert.Equal(t, cal, loaded)
}

func TestCalibrateScaleNeverNegative(t *testing.T) {
	ws := sensor.NewMockWeight(1000)
	m := &motor.Mock{RunDuration: time.Millisecond}
	s := newTestState(t, m, nil, ws, nil)

	_, err := s.Tare()
	require.NoError(t, err)

	// raw samples below the tare point still yield a positive scale
	ws.SetRaw(0)
	cal, err := s.Calibrate(500.0)
	require.NoError(t, err)
	assert.Equal(t, float32(2.0), cal.Scale)
}

func TestCalibrateRejectsNonPositiveMass(t *testing.T) {
	ws := sensor.NewMockWeight(1000)
	m := &motor.Mock{RunDuration: time.Millisecond}
	s := newTestState(t, m, nil, ws, nil)

	_, err := s.Calibrate(0)
	assert.Error(t, err)
	_, err = s.Calibrate(-10)
	assert.Error(t, err)
	assert.False(t, s.CalibrationInProgress())
}

func TestTareWithoutSensorFails(t *testing.T) {
	m := &motor.Mock{RunDuration: time.Millisecond}
	s := newTestState(t, m, nil, nil, nil)

	_, err := s.Tare()
	assert.ErrorIs(t, err, ErrCalibrationUnavailable)
	assert.Equal(t, CalibrationFailed, s.Status())
	// the gate must not be left stuck
	assert.False(t, s.CalibrationInProgress())
}

func TestCalibrationMutualExclusion(t *testing.T) {
	ws := sensor.NewMockWeight(1000)
	m := &motor.Mock{RunDuration: time.Millisecond}
	s := newTestState(t, m, nil, ws, func(c *Config) {
		c.CalibrationSamples = 50
		c.WeightSamplePeriodMS = 2
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.Tare()
		done <- err
	}()

	require.Eventually(t, func() bool { return s.CalibrationInProgress() },
		time.Second, time.Millisecond)

	_, err := s.Calibrate(500.0)
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, <-done)
	assert.Equal(t, int32(1000), s.Calibration().Get().TareRaw)
	assert.False(t, s.CalibrationInProgress())
}

func TestCalibrationRejectedWhileDispensing(t *testing.T) {
	ws := sensor.NewMockWeight(1000)
	m := &motor.Mock{RunDuration: 300 * time.Millisecond}
	s := newTestState(t, m, nil, ws, nil)

	require.NoError(t, s.Dispense())
	_, err := s.Tare()
	assert.ErrorIs(t, err, ErrBusy)
	assert.False(t, s.CalibrationInProgress())
}
