package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	coremetrics "github.com/petbuddy/dispenser/core/metrics"
	"github.com/petbuddy/dispenser/core/model"
)

func TestInfluxSink_RecordPowerReading(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(coremetrics.Config{
		InfluxURL:    srv.URL,
		InfluxToken:  "token",
		InfluxOrg:    "org",
		InfluxBucket: "bucket",
	})
	defer sink.Close()

	err := sink.RecordPowerReading(model.PowerReading{BusVoltageVolts: 5, CurrentAmps: 0.5, PowerWatts: 2.5})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(body, "power_reading,component=power_monitor "), "body: %s", body)
	require.Contains(t, body, "current_amps=0.5")
	require.Contains(t, body, "bus_voltage_volts=5")
}

func TestInfluxSink_RecordDispense(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(coremetrics.Config{
		InfluxURL:    srv.URL,
		InfluxToken:  "token",
		InfluxOrg:    "org",
		InfluxBucket: "bucket",
	})
	defer sink.Close()

	err := sink.RecordDispense(coremetrics.OutcomeOK, 3*time.Second)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(body, "dispense_event,component=dispenser,outcome=ok "), "body: %s", body)
	require.Contains(t, body, "duration_seconds=3")
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	cfg := coremetrics.Config{
		InfluxURL:    srv.URL + "/api/v2/write",
		InfluxToken:  "tok",
		InfluxOrg:    "org",
		InfluxBucket: "bucket",
	}
	sink := NewInfluxSinkWithFallback(cfg)
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	require.True(t, called, "health endpoint not called")
}
