package dispenser

import (
	"context"
	"time"

	"gonum.org/v1/gonum/stat"
)

// RunPowerMonitor samples the power sensor on a fixed tick, publishes every
// reading to the power channel and enforces the overcurrent interlock: when
// the mean current over an averaging window exceeds the configured limit,
// any in-flight dispense is cancelled. The loop runs until the context is
// done; read errors are logged and skipped.
func (s *DeviceState) RunPowerMonitor(ctx context.Context) {
	s.mu.Lock()
	ps := s.powerSensor
	s.mu.Unlock()
	if ps == nil {
		s.log.Errorf("power monitor: no sensor available")
		return
	}

	s.log.Infof("starting power monitor (%s)", ps.Name())
	ticker := time.NewTicker(time.Duration(s.cfg.PowerSamplePeriodMS) * time.Millisecond)
	defer ticker.Stop()

	currents := make([]float64, 0, s.cfg.PowerWindowTicks)
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		reading, err := ps.Read()
		if err != nil {
			s.log.Errorf("power read failed: %v", err)
		} else {
			currents = append(currents, float64(reading.CurrentAmps))
			s.powerLatest.Set(reading)
			_ = s.sink.RecordPowerReading(reading)
		}

		ticks++
		if ticks < s.cfg.PowerWindowTicks {
			continue
		}
		if len(currents) > 0 {
			avg := stat.Mean(currents, nil)
			s.log.Debugf("average current over last %d readings: %.3f A", len(currents), avg)
			if avg > s.cfg.CurrentLimitAmps {
				s.tripOvercurrent(avg)
			}
		}
		// window cleared regardless of outcome
		currents = currents[:0]
		ticks = 0
	}
}

// tripOvercurrent is the safety interlock: it cancels an in-flight dispense
// without operator action.
func (s *DeviceState) tripOvercurrent(avg float64) {
	s.log.Warnf("high average current detected: %.3f A (limit %.3f A)", avg, s.cfg.CurrentLimitAmps)
	_ = s.sink.RecordOvercurrent(avg)

	s.mu.Lock()
	tok := s.cancelToken
	s.mu.Unlock()
	if tok != nil {
		s.log.Infof("cancelling in-flight motor operation due to high current")
		tok.Cancel()
	}
}
