package dispenser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petbuddy/dispenser/core/model"
	"github.com/petbuddy/dispenser/core/motor"
	"github.com/petbuddy/dispenser/core/sensor"
)

func TestWeightMonitorPublishesConvertedReadings(t *testing.T) {
	ws := sensor.NewMockWeight(1500)
	m := &motor.Mock{RunDuration: time.Millisecond}
	s := newTestState(t, m, nil, ws, nil)
	s.Calibration().Set(model.WeightCalibration{Scale: 2.0, TareRaw: 1000})

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()
	go s.RunWeightMonitor(ctx)

	require.Eventually(t, func() bool {
		return s.WeightLatest().Get().Grams == int32(250)
	}, time.Second, time.Millisecond)
}

func TestWeightMonitorGatedDuringCalibration(t *testing.T) {
	ws := sensor.NewMockWeight(1500)
	m := &motor.Mock{RunDuration: time.Millisecond}
	s := newTestState(t, m, nil, ws, nil)

	s.calibrating.Store(true)
	defer s.calibrating.Store(false)

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()
	go s.RunWeightMonitor(ctx)

	time.Sleep(30 * time.Millisecond)
	// nothing published while the gate is set
	assert.Equal(t, int32(0), s.WeightLatest().Get().Grams)

	s.calibrating.Store(false)
	require.Eventually(t, func() bool {
		return s.WeightLatest().Get().Grams == int32(1500)
	}, time.Second, time.Millisecond)
}

func TestWeightMonitorNoSensorReturns(t *testing.T) {
	m := &motor.Mock{RunDuration: time.Millisecond}
	s := newTestState(t, m, nil, nil, nil)

	done := make(chan struct{})
	go func() {
		s.RunWeightMonitor(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("monitor should return immediately without a sensor")
	}
}
