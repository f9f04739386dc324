package motor

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"

	coremotor "github.com/petbuddy/dispenser/core/motor"
	"github.com/petbuddy/dispenser/infra/logger"
	"github.com/petbuddy/dispenser/internal/cancel"
)

// ULN2003Config holds the BCM pin numbers of the four driver inputs.
type ULN2003Config struct {
	IN1 int `json:"in1"`
	IN2 int `json:"in2"`
	IN3 int `json:"in3"`
	IN4 int `json:"in4"`
}

// SetDefaults applies the default wiring.
func (c *ULN2003Config) SetDefaults() {
	if c.IN1 == 0 && c.IN2 == 0 && c.IN3 == 0 && c.IN4 == 0 {
		c.IN1, c.IN2, c.IN3, c.IN4 = 26, 19, 13, 6
	}
}

// Coil energizing patterns. Full step drives two coils at once for more
// torque but needs a longer delay between steps to avoid overheating.
var (
	uln2003FullSeq = [][4]gpio.Level{
		{gpio.High, gpio.High, gpio.Low, gpio.Low},
		{gpio.Low, gpio.High, gpio.High, gpio.Low},
		{gpio.Low, gpio.Low, gpio.High, gpio.High},
		{gpio.High, gpio.Low, gpio.Low, gpio.High},
	}
	uln2003HalfSeq = [][4]gpio.Level{
		{gpio.High, gpio.Low, gpio.Low, gpio.Low},
		{gpio.High, gpio.High, gpio.Low, gpio.Low},
		{gpio.Low, gpio.High, gpio.Low, gpio.Low},
		{gpio.Low, gpio.High, gpio.High, gpio.Low},
		{gpio.Low, gpio.Low, gpio.High, gpio.Low},
		{gpio.Low, gpio.Low, gpio.High, gpio.High},
		{gpio.Low, gpio.Low, gpio.Low, gpio.High},
		{gpio.High, gpio.Low, gpio.Low, gpio.High},
	}
)

// ULN2003 drives a 28BYJ-48 geared stepper through a ULN2003 darlington
// board.
type ULN2003 struct {
	cfg ULN2003Config
	log logger.Logger
}

// NewULN2003 creates the backend. GPIO pins are resolved lazily on Run.
func NewULN2003(cfg ULN2003Config) *ULN2003 {
	cfg.SetDefaults()
	return &ULN2003{cfg: cfg, log: logger.New("uln2003")}
}

func (m *ULN2003) Name() string             { return "uln2003" }
func (m *ULN2003) RequiresPhysicalIO() bool { return true }

// StepsPerRotation returns the geared step count for a full shaft rotation.
func (m *ULN2003) StepsPerRotation(mode coremotor.StepMode) uint32 {
	switch mode {
	case coremotor.StepHalf:
		return 4096
	case coremotor.StepQuarter:
		return 8192
	case coremotor.StepEighth:
		return 16384
	case coremotor.StepSixteenth:
		return 32768
	default:
		return 2048
	}
}

// Run energizes the coils through the step sequence. The coils are released
// on every exit path, including cancellation.
func (m *ULN2003) Run(steps uint32, dir coremotor.Direction, mode coremotor.StepMode, tok *cancel.Token) (uint32, error) {
	var seq [][4]gpio.Level
	var stepDelay time.Duration
	switch mode {
	case coremotor.StepHalf:
		m.log.Debugf("using half step mode")
		seq = uln2003HalfSeq
		stepDelay = time.Millisecond
	case coremotor.StepFull:
		m.log.Debugf("using full step mode")
		seq = uln2003FullSeq
		stepDelay = 2 * time.Millisecond
	default:
		return 0, fmt.Errorf("unsupported step mode %s", mode)
	}

	pins, err := resolvePins(m.cfg.IN1, m.cfg.IN2, m.cfg.IN3, m.cfg.IN4)
	if err != nil {
		return 0, err
	}
	defer func() {
		for _, p := range pins {
			if err := p.Out(gpio.Low); err != nil {
				m.log.Warnf("release pin %s: %v", p.Name(), err)
			}
		}
	}()

	if dir == coremotor.CounterClockwise {
		seq = reverseSeq(seq)
	}
	m.log.Infof("starting motor with %d steps, direction %s", steps, dir)

	var lastIndex uint32
	for step := uint32(0); step < steps; step++ {
		if tok != nil && tok.Cancelled() {
			return lastIndex, coremotor.ErrCancelled
		}
		index := step % uint32(len(seq))
		lastIndex = index
		row := seq[index]
		for i, p := range pins {
			if err := p.Out(row[i]); err != nil {
				return lastIndex, fmt.Errorf("write pin %s: %w", p.Name(), err)
			}
		}
		time.Sleep(stepDelay)
	}

	m.log.Infof("motor operation completed")
	return lastIndex, nil
}

// RunDegrees converts the angle to steps for the selected mode and runs.
func (m *ULN2003) RunDegrees(degrees float64, dir coremotor.Direction, mode coremotor.StepMode, tok *cancel.Token) (uint32, error) {
	return m.Run(coremotor.DegreesToSteps(degrees, m.StepsPerRotation(mode)), dir, mode, tok)
}

func reverseSeq(seq [][4]gpio.Level) [][4]gpio.Level {
	out := make([][4]gpio.Level, len(seq))
	for i, row := range seq {
		out[len(seq)-1-i] = row
	}
	return out
}
