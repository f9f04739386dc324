// Package motor defines the stepper motor capability contract. Hardware
// backends live under infra/motor; a mock backend for tests is provided
// here.
package motor

import (
	"errors"
	"math"

	"github.com/petbuddy/dispenser/internal/cancel"
)

// StepMode selects how the driver subdivides full steps.
type StepMode int

const (
	StepFull StepMode = iota
	StepHalf
	StepQuarter
	StepEighth
	StepSixteenth
)

func (m StepMode) String() string {
	switch m {
	case StepFull:
		return "full"
	case StepHalf:
		return "half"
	case StepQuarter:
		return "quarter"
	case StepEighth:
		return "eighth"
	case StepSixteenth:
		return "sixteenth"
	default:
		return "unknown"
	}
}

// Direction of shaft rotation.
type Direction int

const (
	Clockwise Direction = iota
	CounterClockwise
)

func (d Direction) String() string {
	if d == Clockwise {
		return "clockwise"
	}
	return "counter-clockwise"
}

// ErrCancelled is returned by backends when a run is aborted through the
// cancellation token.
var ErrCancelled = errors.New("motor run cancelled")

// Stepper is the capability contract for a stepper motor backend.
//
// Run and RunDegrees are long-running and cancellable: backends must poll
// the token frequently enough to bound cancellation latency, and must leave
// actuator outputs in a safe idle state on every exit path. The returned
// value is the last step index reached.
type Stepper interface {
	Name() string
	// RequiresPhysicalIO reports whether the backend needs GPIO access.
	RequiresPhysicalIO() bool
	StepsPerRotation(mode StepMode) uint32
	Run(steps uint32, dir Direction, mode StepMode, tok *cancel.Token) (uint32, error)
	RunDegrees(degrees float64, dir Direction, mode StepMode, tok *cancel.Token) (uint32, error)
}

// DegreesToSteps converts a rotation angle to a step count for a backend
// with the given steps per full rotation.
func DegreesToSteps(degrees float64, stepsPerRotation uint32) uint32 {
	return uint32(math.Round(degrees / 360.0 * float64(stepsPerRotation)))
}
