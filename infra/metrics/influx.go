package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/petbuddy/dispenser/core/metrics"
	"github.com/petbuddy/dispenser/core/model"
	"github.com/petbuddy/dispenser/infra/logger"
)

// InfluxSink writes dispenser events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB
// endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	base := strings.TrimSuffix(cfg.InfluxURL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns
// a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordPowerReading writes the power sample as a point.
func (s *InfluxSink) RecordPowerReading(r model.PowerReading) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("power_reading").
		AddTag("component", "power_monitor").
		AddField("bus_voltage_volts", float64(r.BusVoltageVolts)).
		AddField("current_amps", float64(r.CurrentAmps)).
		AddField("power_watts", float64(r.PowerWatts)).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordWeightReading writes the weight sample as a point.
func (s *InfluxSink) RecordWeightReading(r model.WeightReading) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("weight_reading").
		AddTag("component", "weight_monitor").
		AddField("grams", int64(r.Grams)).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDispense writes a dispense event.
func (s *InfluxSink) RecordDispense(outcome string, duration time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispense_event").
		AddTag("component", "dispenser").
		AddTag("outcome", outcome).
		AddField("duration_seconds", duration.Seconds()).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordOvercurrent writes an interlock trip event.
func (s *InfluxSink) RecordOvercurrent(avgCurrentAmps float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("overcurrent_trip").
		AddTag("component", "power_monitor").
		AddField("avg_current_amps", avgCurrentAmps).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCalibration writes the updated calibration record.
func (s *InfluxSink) RecordCalibration(cal model.WeightCalibration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("weight_calibration").
		AddTag("component", "weight_monitor").
		AddField("scale", float64(cal.Scale)).
		AddField("offset", float64(cal.Offset)).
		AddField("tare_raw", int64(cal.TareRaw)).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
