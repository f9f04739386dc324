package dispenser

// Status is the dispenser state machine value.
type Status int

const (
	Operational Status = iota
	Dispensing
	Cooldown
	Cancelled
	Empty
	Jammed
	Unknown
	MotorControlError
	NoGpio
	Calibrating
	CalibrationFailed
)

func (s Status) String() string {
	switch s {
	case Operational:
		return "operational"
	case Dispensing:
		return "dispensing"
	case Cooldown:
		return "cooldown"
	case Cancelled:
		return "cancelled"
	case Empty:
		return "empty"
	case Jammed:
		return "jammed"
	case Unknown:
		return "unknown"
	case MotorControlError:
		return "motor_control_error"
	case NoGpio:
		return "no_gpio"
	case Calibrating:
		return "calibrating"
	case CalibrationFailed:
		return "calibration_failed"
	default:
		return "unknown"
	}
}
