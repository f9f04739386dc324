package sensor

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/petbuddy/dispenser/core/model"
	coresensor "github.com/petbuddy/dispenser/core/sensor"
	"github.com/petbuddy/dispenser/infra/logger"
)

// HX711Config holds the BCM pin numbers of the load cell amplifier.
type HX711Config struct {
	DataPin  int `json:"data_pin"`
	ClockPin int `json:"clock_pin"`
}

// SetDefaults applies the default wiring.
func (c *HX711Config) SetDefaults() {
	if c.DataPin == 0 {
		c.DataPin = 5
	}
	if c.ClockPin == 0 {
		c.ClockPin = 11
	}
}

// HX711 bit-bangs a 24-bit load cell amplifier over two GPIO pins, channel
// A at gain 128.
type HX711 struct {
	data  gpio.PinIO
	clock gpio.PinIO
	log   logger.Logger
}

// NewHX711 resolves the GPIO pins and resets the amplifier.
func NewHX711(cfg HX711Config) (*HX711, error) {
	cfg.SetDefaults()
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init gpio host: %w", err)
	}
	data := gpioreg.ByName(fmt.Sprintf("GPIO%d", cfg.DataPin))
	if data == nil {
		return nil, fmt.Errorf("gpio pin %d not found", cfg.DataPin)
	}
	clock := gpioreg.ByName(fmt.Sprintf("GPIO%d", cfg.ClockPin))
	if clock == nil {
		return nil, fmt.Errorf("gpio pin %d not found", cfg.ClockPin)
	}
	if err := data.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure data pin: %w", err)
	}
	s := &HX711{data: data, clock: clock, log: logger.New("hx711")}
	if err := s.reset(); err != nil {
		return nil, err
	}
	s.log.Infof("HX711 initialized on data=%d clock=%d", cfg.DataPin, cfg.ClockPin)
	return s, nil
}

func (s *HX711) Name() string { return "HX711" }

// reset powers the chip down and back up, returning it to channel A at
// gain 128.
func (s *HX711) reset() error {
	if err := s.clock.Out(gpio.High); err != nil {
		return fmt.Errorf("reset hx711: %w", err)
	}
	time.Sleep(100 * time.Microsecond)
	if err := s.clock.Out(gpio.Low); err != nil {
		return fmt.Errorf("reset hx711: %w", err)
	}
	return nil
}

// waitReady polls the data line until the chip signals a conversion is
// available. The line goes low when data is ready.
func (s *HX711) waitReady() error {
	deadline := time.Now().Add(500 * time.Millisecond)
	for s.data.Read() == gpio.High {
		if time.Now().After(deadline) {
			return fmt.Errorf("hx711 not ready")
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

// ReadRaw clocks out one 24-bit two's complement sample and sign extends
// it. A 25th pulse selects channel A at gain 128 for the next conversion.
func (s *HX711) ReadRaw() (int32, error) {
	if err := s.waitReady(); err != nil {
		return 0, err
	}
	var raw uint32
	for i := 0; i < 24; i++ {
		if err := s.clock.Out(gpio.High); err != nil {
			return 0, fmt.Errorf("clock hx711: %w", err)
		}
		raw <<= 1
		if s.data.Read() == gpio.High {
			raw |= 1
		}
		if err := s.clock.Out(gpio.Low); err != nil {
			return 0, fmt.Errorf("clock hx711: %w", err)
		}
	}
	if err := s.clock.Out(gpio.High); err != nil {
		return 0, fmt.Errorf("clock hx711: %w", err)
	}
	if err := s.clock.Out(gpio.Low); err != nil {
		return 0, fmt.Errorf("clock hx711: %w", err)
	}
	return signExtend24(raw), nil
}

// signExtend24 widens a 24-bit two's complement value to 32 bits.
func signExtend24(raw uint32) int32 {
	if raw&0x800000 != 0 {
		raw |= 0xFF000000
	}
	return int32(raw)
}

// ReadWeight converts a raw sample using the given calibration.
func (s *HX711) ReadWeight(cal model.WeightCalibration) (model.WeightReading, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return model.WeightReading{}, err
	}
	return coresensor.Convert(raw, cal), nil
}
