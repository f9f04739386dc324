package dispenser

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/petbuddy/dispenser/core/metrics"
	"github.com/petbuddy/dispenser/core/motor"
	"github.com/petbuddy/dispenser/internal/cancel"
)

// Dispense validates and transitions the state machine atomically, then
// runs the motor in a background goroutine. The returned error reflects
// acceptance of the request, not the outcome of the motor run: failures
// inside the background unit are recorded in state, never returned here.
func (s *DeviceState) Dispense() error {
	var (
		m   motor.Stepper
		tok *cancel.Token
	)

	s.mu.Lock()
	switch s.status {
	case Operational, Cancelled:
		s.status = Dispensing
		tok = cancel.New()
		s.cancelToken = tok
		m = s.motor
	case Dispensing:
		s.mu.Unlock()
		return fmt.Errorf("%w: operation in progress", ErrBusy)
	case Cooldown:
		s.mu.Unlock()
		return fmt.Errorf("%w: waiting for cooldown", ErrBusy)
	case Empty:
		s.mu.Unlock()
		return fmt.Errorf("%w: dispenser is empty", ErrHardwareUnavailable)
	default:
		st := s.status
		s.mu.Unlock()
		return fmt.Errorf("%w: dispenser is not operational (current status: %s)", ErrHardwareUnavailable, st)
	}
	s.mu.Unlock()

	s.log.Infof("dispensing treats")
	go s.runDispense(m, tok)
	return nil
}

// runDispense is the background dispense unit. It must never take down the
// process: a panic degrades status to Unknown. The cancellation token is
// cleared on every exit path.
func (s *DeviceState) runDispense(m motor.Stepper, tok *cancel.Token) {
	opID := uuid.NewString()
	start := time.Now()

	defer func() {
		s.mu.Lock()
		if s.cancelToken == tok {
			s.cancelToken = nil
		}
		s.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("dispense unit panic: %v", r)
			s.mu.Lock()
			s.status = Unknown
			s.recordErrorLocked(fmt.Sprintf("dispense panic: %v", r))
			s.mu.Unlock()
		}
	}()

	steps, err := m.RunDegrees(s.cfg.DispenseDegrees, motor.CounterClockwise, motor.StepFull, tok)
	if err != nil {
		s.log.Warnf("motor operation ended: %v", err)
		if tok.Cancelled() {
			s.log.Warnf("motor operation was cancelled")
			// Cancel() already forced the status; only the interlock path
			// still owns the token here. Guarding on it keeps a dispense
			// accepted after Cancel() from being clobbered.
			s.mu.Lock()
			if s.cancelToken == tok {
				s.status = Cancelled
				s.cancelToken = nil
			}
			s.mu.Unlock()
			_ = s.sink.RecordDispense(metrics.OutcomeCancelled, time.Since(start))
		} else {
			s.mu.Lock()
			s.status = Unknown
			s.recordErrorLocked(err.Error())
			s.mu.Unlock()
			_ = s.sink.RecordDispense(metrics.OutcomeError, time.Since(start))
		}
		return
	}

	s.log.Infof("motor run completed, last step index: %d", steps)
	s.mu.Lock()
	if s.cancelToken != tok {
		// a Cancel raced the final steps; keep the cancelled outcome
		s.mu.Unlock()
		_ = s.sink.RecordDispense(metrics.OutcomeCancelled, time.Since(start))
		return
	}
	// the token does not outlive the motor run: a cancel during cooldown
	// has nothing left to abort
	s.cancelToken = nil
	s.status = Cooldown
	s.mu.Unlock()
	// cooldown sleep happens with the lock released
	time.Sleep(time.Duration(s.cfg.CooldownMS) * time.Millisecond)

	s.mu.Lock()
	s.status = Operational
	s.lastDispenseTime = time.Now()
	s.lastDispenseID = opID
	s.lastStepIndex = &steps
	s.mu.Unlock()
	_ = s.sink.RecordDispense(metrics.OutcomeOK, time.Since(start))
	s.log.Infof("treats dispensed, operation %s", opID)
}

// Cancel aborts an in-flight dispense. Status is forced to Cancelled
// immediately; the background unit observes the token on its own schedule.
func (s *DeviceState) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelToken == nil {
		return ErrNoOperation
	}
	s.cancelToken.Cancel()
	s.status = Cancelled
	s.cancelToken = nil
	s.log.Infof("motor operation cancelled")
	return nil
}
