package motor

import (
	"fmt"
	"math/rand"
	"time"

	"periph.io/x/conn/v3/gpio"

	coremotor "github.com/petbuddy/dispenser/core/motor"
	"github.com/petbuddy/dispenser/core/model"
	"github.com/petbuddy/dispenser/infra/logger"
	"github.com/petbuddy/dispenser/internal/cancel"
	"github.com/petbuddy/dispenser/internal/watch"
)

// StepDirConfig holds the BCM pin numbers and step timing for a step/dir
// driver board such as the DRV8825.
type StepDirConfig struct {
	DirPin      int `json:"dir_pin"`
	StepPin     int `json:"step_pin"`
	SleepPin    int `json:"sleep_pin"`
	ResetPin    int `json:"reset_pin"`
	EnablePin   int `json:"enable_pin"`
	StepSpeedUS int `json:"step_speed_us"`
}

// SetDefaults applies the default wiring and timing.
func (c *StepDirConfig) SetDefaults() {
	if c.DirPin == 0 && c.StepPin == 0 && c.SleepPin == 0 && c.ResetPin == 0 && c.EnablePin == 0 {
		c.DirPin, c.StepPin, c.SleepPin, c.ResetPin, c.EnablePin = 26, 19, 13, 6, 17
	}
	if c.StepSpeedUS <= 0 {
		c.StepSpeedUS = 1000
	}
}

// StepDir drives a NEMA14 stepper through a step/dir driver board.
type StepDir struct {
	cfg       StepDirConfig
	log       logger.Logger
	powerFeed *watch.Value[model.PowerReading]
}

// NewStepDir creates the backend. GPIO pins are resolved lazily on Run.
func NewStepDir(cfg StepDirConfig) *StepDir {
	cfg.SetDefaults()
	return &StepDir{cfg: cfg, log: logger.New("stepdir")}
}

// SetPowerFeed attaches the live power readings sampled during long runs.
func (m *StepDir) SetPowerFeed(feed *watch.Value[model.PowerReading]) {
	m.powerFeed = feed
}

func (m *StepDir) Name() string             { return "stepdir" }
func (m *StepDir) RequiresPhysicalIO() bool { return true }

// StepsPerRotation returns the motor's native resolution.
func (m *StepDir) StepsPerRotation(coremotor.StepMode) uint32 { return 200 }

// Run pulses the step pin for the requested number of steps. The rotation
// direction is flipped every 110-200 steps to shake treats loose and avoid
// jams. The driver is disabled on every exit path.
func (m *StepDir) Run(steps uint32, dir coremotor.Direction, mode coremotor.StepMode, tok *cancel.Token) (uint32, error) {
	if mode != coremotor.StepFull {
		return 0, fmt.Errorf("unsupported step mode %s", mode)
	}
	m.log.Infof("starting motor with %d steps, direction %s", steps, dir)

	pins, err := resolvePins(m.cfg.DirPin, m.cfg.StepPin, m.cfg.SleepPin, m.cfg.ResetPin, m.cfg.EnablePin)
	if err != nil {
		return 0, err
	}
	dirPin, stepPin, sleepPin, resetPin, enablePin := pins[0], pins[1], pins[2], pins[3], pins[4]

	if err := sleepPin.Out(gpio.High); err != nil {
		return 0, fmt.Errorf("wake driver: %w", err)
	}
	if err := resetPin.Out(gpio.High); err != nil {
		return 0, fmt.Errorf("reset driver: %w", err)
	}
	if err := enablePin.Out(gpio.Low); err != nil {
		return 0, fmt.Errorf("enable driver: %w", err)
	}
	defer func() {
		if err := enablePin.Out(gpio.High); err != nil {
			m.log.Warnf("disable driver: %v", err)
		}
		if err := stepPin.Out(gpio.Low); err != nil {
			m.log.Warnf("release step pin: %v", err)
		}
	}()

	dirHigh := dir == coremotor.Clockwise
	if err := writeDir(dirPin, dirHigh); err != nil {
		return 0, err
	}

	pulse := time.Duration(m.cfg.StepSpeedUS) * time.Microsecond
	sinceFlip := uint32(0)
	flipAfter := randomFlipInterval()

	var done uint32
	for step := uint32(0); step < steps; step++ {
		if tok != nil && tok.Cancelled() {
			return done, coremotor.ErrCancelled
		}

		sinceFlip++
		if sinceFlip >= flipAfter {
			dirHigh = !dirHigh
			if err := writeDir(dirPin, dirHigh); err != nil {
				return done, err
			}
			m.log.Debugf("direction pin toggled at step %d", step)
			sinceFlip = 0
			flipAfter = randomFlipInterval()
		}

		if err := stepPin.Out(gpio.High); err != nil {
			return done, fmt.Errorf("pulse step pin: %w", err)
		}
		time.Sleep(pulse)
		if err := stepPin.Out(gpio.Low); err != nil {
			return done, fmt.Errorf("pulse step pin: %w", err)
		}
		time.Sleep(pulse)
		done++

		if step%500 == 0 && m.powerFeed != nil {
			r := m.powerFeed.Get()
			m.log.Debugw("power sample during run", map[string]any{
				"step":              step,
				"bus_voltage_volts": r.BusVoltageVolts,
				"current_amps":      r.CurrentAmps,
				"power_watts":       r.PowerWatts,
			})
		}
	}

	m.log.Infof("motor operation completed")
	return done, nil
}

// RunDegrees converts the angle to steps and runs.
func (m *StepDir) RunDegrees(degrees float64, dir coremotor.Direction, mode coremotor.StepMode, tok *cancel.Token) (uint32, error) {
	return m.Run(coremotor.DegreesToSteps(degrees, m.StepsPerRotation(mode)), dir, mode, tok)
}

func writeDir(pin gpio.PinIO, high bool) error {
	lvl := gpio.Low
	if high {
		lvl = gpio.High
	}
	if err := pin.Out(lvl); err != nil {
		return fmt.Errorf("write dir pin: %w", err)
	}
	return nil
}

// randomFlipInterval returns the number of steps before the next direction
// toggle, between 110 and a full 200-step rotation.
func randomFlipInterval() uint32 {
	return uint32(110 + rand.Intn(91))
}
