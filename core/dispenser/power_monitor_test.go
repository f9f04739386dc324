package dispenser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petbuddy/dispenser/core/model"
	"github.com/petbuddy/dispenser/core/motor"
	"github.com/petbuddy/dispenser/core/sensor"
)

func TestPowerMonitorPublishesReadings(t *testing.T) {
	ps := sensor.NewMockPower()
	ps.SetReading(model.PowerReading{BusVoltageVolts: 12, CurrentAmps: 0.4, PowerWatts: 4.8})
	m := &motor.Mock{RunDuration: time.Millisecond}
	s := newTestState(t, m, ps, nil, nil)

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()
	go s.RunPowerMonitor(ctx)

	require.Eventually(t, func() bool {
		return s.PowerLatest().Get().CurrentAmps == float32(0.4)
	}, time.Second, time.Millisecond)
}

func TestPowerMonitorOvercurrentCancelsDispense(t *testing.T) {
	ps := sensor.NewMockPower()
	ps.SetReading(model.PowerReading{BusVoltageVolts: 12, CurrentAmps: 1.2, PowerWatts: 14.4})
	m := &motor.Mock{RunDuration: time.Second}
	s := newTestState(t, m, ps, nil, nil)

	require.NoError(t, s.Dispense())

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()
	go s.RunPowerMonitor(ctx)

	// the interlock trips without an explicit Cancel call
	require.Eventually(t, func() bool { return s.Status() == Cancelled },
		2*time.Second, time.Millisecond)
}

func TestPowerMonitorBelowLimitDoesNotCancel(t *testing.T) {
	ps := sensor.NewMockPower()
	ps.SetReading(model.PowerReading{BusVoltageVolts: 12, CurrentAmps: 0.5, PowerWatts: 6})
	m := &motor.Mock{RunDuration: 200 * time.Millisecond}
	s := newTestState(t, m, ps, nil, nil)

	require.NoError(t, s.Dispense())

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()
	go s.RunPowerMonitor(ctx)

	require.Eventually(t, func() bool { return s.Status() == Cooldown },
		2*time.Second, time.Millisecond)
}

func TestPowerMonitorSkipsReadErrors(t *testing.T) {
	ps := sensor.NewMockPower()
	ps.SetError(errors.New("bus glitch"))
	m := &motor.Mock{RunDuration: time.Millisecond}
	s := newTestState(t, m, ps, nil, nil)

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()
	go s.RunPowerMonitor(ctx)

	time.Sleep(30 * time.Millisecond)
	// the loop keeps running and recovers once the sensor does
	ps.SetError(nil)
	ps.SetReading(model.PowerReading{CurrentAmps: 0.1})
	require.Eventually(t, func() bool {
		return s.PowerLatest().Get().CurrentAmps == float32(0.1)
	}, time.Second, time.Millisecond)
}

func TestPowerMonitorNoSensorReturns(t *testing.T) {
	m := &motor.Mock{RunDuration: time.Millisecond}
	s := newTestState(t, m, nil, nil, nil)

	done := make(chan struct{})
	go func() {
		s.RunPowerMonitor(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("monitor should return immediately without a sensor")
	}
	assert.Equal(t, Operational, s.Status())
}
