package motor

import (
	"sync"
	"time"

	"github.com/petbuddy/dispenser/internal/cancel"
)

// DefaultMockRunDuration approximates a real six-rotation dispense.
const DefaultMockRunDuration = 3 * time.Second

// Mock simulates a stepper motor by sleeping instead of driving hardware.
// It honors cancellation immediately and never touches GPIO.
type Mock struct {
	// RunDuration is how long a simulated run takes. Zero means
	// DefaultMockRunDuration.
	RunDuration time.Duration
	// FailWith, when set, makes every run fail with this error.
	FailWith error

	mu   sync.Mutex
	runs int
}

// NewMock returns a mock stepper with the default run duration.
func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string { return "StepperMock" }

func (m *Mock) RequiresPhysicalIO() bool { return false }

func (m *Mock) StepsPerRotation(StepMode) uint32 { return 2048 }

// Runs reports how many runs were started.
func (m *Mock) Runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

func (m *Mock) Run(steps uint32, dir Direction, mode StepMode, tok *cancel.Token) (uint32, error) {
	m.mu.Lock()
	m.runs++
	m.mu.Unlock()

	if m.FailWith != nil {
		return 0, m.FailWith
	}
	d := m.RunDuration
	if d == 0 {
		d = DefaultMockRunDuration
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	if tok == nil {
		<-timer.C
		return 0, nil
	}
	select {
	case <-timer.C:
		return 0, nil
	case <-tok.Done():
		return 0, ErrCancelled
	}
}

func (m *Mock) RunDegrees(degrees float64, dir Direction, mode StepMode, tok *cancel.Token) (uint32, error) {
	return m.Run(DegreesToSteps(degrees, m.StepsPerRotation(mode)), dir, mode, tok)
}
