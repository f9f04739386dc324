package dispenser

import "errors"

// Error taxonomy for per-call validation failures. Callers discriminate
// with errors.Is; errors inside background units are never returned to a
// caller, they are recorded in state instead.
var (
	// ErrBusy means a conflicting operation is in progress. Recoverable:
	// the caller retries later.
	ErrBusy = errors.New("dispenser busy")
	// ErrHardwareUnavailable means a sensor, motor or GPIO is absent or
	// failed. Usually permanent for the process lifetime.
	ErrHardwareUnavailable = errors.New("hardware unavailable")
	// ErrNoOperation is returned by Cancel when nothing is in flight.
	ErrNoOperation = errors.New("no operation to cancel")
	// ErrCalibrationUnavailable means no weight sensor was available when a
	// calibration was requested.
	ErrCalibrationUnavailable = errors.New("no weight sensor available")
)
