package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/petbuddy/dispenser/core/metrics"
	"github.com/petbuddy/dispenser/core/model"
)

func TestPromSink_RecordDispense(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordDispense(coremetrics.OutcomeOK, 3*time.Second))
	require.NoError(t, sink.RecordDispense(coremetrics.OutcomeOK, 4*time.Second))
	require.NoError(t, sink.RecordDispense(coremetrics.OutcomeCancelled, time.Second))

	expected := `
# HELP dispenser_dispense_total Total number of dispense operations by outcome
# TYPE dispenser_dispense_total counter
dispenser_dispense_total{outcome="cancelled"} 1
dispenser_dispense_total{outcome="ok"} 2
`
	require.NoError(t, testutil.CollectAndCompare(reg, strings.NewReader(expected), "dispenser_dispense_total"))
}

func TestPromSink_RecordPowerReading(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordPowerReading(model.PowerReading{
		BusVoltageVolts: 5.1,
		CurrentAmps:     0.42,
		PowerWatts:      2.2,
	}))

	ps := sink.(*PromSink)
	require.InDelta(t, 5.1, testutil.ToFloat64(ps.busVoltage), 1e-5)
	require.InDelta(t, 0.42, testutil.ToFloat64(ps.current), 1e-5)
	require.InDelta(t, 2.2, testutil.ToFloat64(ps.power), 1e-5)
}

func TestPromSink_RecordCalibrationAndOvercurrent(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordCalibration(model.WeightCalibration{Scale: 2.5, Offset: 0, TareRaw: 1200}))
	require.NoError(t, sink.RecordOvercurrent(0.91))
	require.NoError(t, sink.RecordOvercurrent(0.88))

	ps := sink.(*PromSink)
	require.InDelta(t, 1200, testutil.ToFloat64(ps.tareRaw), 1e-5)
	require.InDelta(t, 2.5, testutil.ToFloat64(ps.scale), 1e-5)
	require.InDelta(t, 2, testutil.ToFloat64(ps.overcurrent), 1e-5)
}

func TestPromSink_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)
	_, err = NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)
}
