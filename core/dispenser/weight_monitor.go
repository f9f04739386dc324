package dispenser

import (
	"context"
	"time"
)

// RunWeightMonitor samples the weight sensor at the sensor's conversion
// rate and publishes converted readings to the weight channel. Sampling is
// skipped entirely while a calibration is in progress; read errors are
// logged and skipped. The loop runs until the context is done.
func (s *DeviceState) RunWeightMonitor(ctx context.Context) {
	s.mu.Lock()
	ws := s.weightSensor
	s.mu.Unlock()
	if ws == nil {
		s.log.Errorf("weight monitor: no sensor available")
		return
	}

	s.log.Infof("starting weight monitor (%s)", ws.Name())
	ticker := time.NewTicker(time.Duration(s.cfg.WeightSamplePeriodMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.calibrating.Load() {
			s.log.Debugf("calibration in progress, skipping weight sample")
			continue
		}

		cal := s.calibration.Get()
		reading, err := ws.ReadWeight(cal)
		if err != nil {
			s.log.Debugf("weight read failed: %v", err)
			continue
		}
		s.weightLatest.Set(reading)
		_ = s.sink.RecordWeightReading(reading)
	}
}
