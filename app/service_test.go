package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petbuddy/dispenser/config"
	"github.com/petbuddy/dispenser/core/dispenser"
	"github.com/petbuddy/dispenser/infra/mqtt"
)

func mockConfig() *config.Config {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Motor.Type = config.MotorMock
	cfg.PowerSensor.Type = config.PowerSensorMock
	cfg.WeightSensor.Type = config.WeightSensorMock
	cfg.Dispenser.CooldownMS = 20
	cfg.Dispenser.PowerSamplePeriodMS = 5
	cfg.Dispenser.WeightSamplePeriodMS = 5
	return cfg
}

func TestNewWithMockBackends(t *testing.T) {
	svc, err := New(mockConfig(), "test")
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	assert.Equal(t, dispenser.Operational, svc.Status())
	snap := svc.Snapshot()
	assert.Equal(t, "test", snap.Version)
}

func TestNewRejectsUnknownMotor(t *testing.T) {
	cfg := mockConfig()
	cfg.Motor.Type = "servo"
	_, err := New(cfg, "test")
	require.Error(t, err)
}

func TestDispenseThroughService(t *testing.T) {
	cfg := mockConfig()
	svc, err := New(cfg, "test")
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	require.NoError(t, svc.Dispense())
	assert.Equal(t, dispenser.Dispensing, svc.Status())
	require.NoError(t, svc.Cancel())
	assert.Equal(t, dispenser.Cancelled, svc.Status())
}

func TestRunPublishesTelemetry(t *testing.T) {
	cfg := mockConfig()
	svc, err := New(cfg, "test")
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	pub := mqtt.NewMockPublisher()
	svc.pub = pub
	svc.cfg.Telemetry.Enabled = true
	svc.cfg.Telemetry.IntervalMS = 5

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = svc.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return pub.PowerCount() > 0 && pub.StatusCount() > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
}

func TestCloseRunsClosersDespitePublisherError(t *testing.T) {
	svc, err := New(mockConfig(), "test")
	require.NoError(t, err)

	pub := mqtt.NewMockPublisher()
	pub.Err = errors.New("broker gone")
	svc.pub = pub

	closed := false
	svc.closers = append(svc.closers, func() error {
		closed = true
		return nil
	})

	err = svc.Close()
	assert.ErrorContains(t, err, "broker gone")
	assert.True(t, pub.Closed)
	assert.True(t, closed)
}

func TestRunMonitorsFeedWatches(t *testing.T) {
	cfg := mockConfig()
	svc, err := New(cfg, "test")
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		return svc.State.PowerLatest().Get().CurrentAmps > 0
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return svc.State.WeightLatest().Get().Grams != 0
	}, time.Second, 5*time.Millisecond)
}
