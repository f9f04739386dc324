// Package sensor provides the hardware power and weight sensor backends.
package sensor

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/petbuddy/dispenser/core/model"
	"github.com/petbuddy/dispenser/infra/logger"
)

// INA219 register map.
const (
	ina219RegConfig      = 0x00
	ina219RegBusVoltage  = 0x02
	ina219RegCurrent     = 0x04
	ina219RegCalibration = 0x05
)

// Calibration for a 0.1 ohm shunt with a 1 mA/bit current resolution:
// 0.04096 / (0.001 * 0.1).
const ina219CalValue = 4096

// INA219Config holds the I2C wiring of the power sensor.
type INA219Config struct {
	Bus     string `json:"bus"`
	Address uint16 `json:"address"`
}

// SetDefaults applies the default bus and address.
func (c *INA219Config) SetDefaults() {
	if c.Bus == "" {
		c.Bus = "/dev/i2c-1"
	}
	if c.Address == 0 {
		c.Address = 0x40
	}
}

// INA219 reads bus voltage and current from a TI INA219 monitor over I2C.
type INA219 struct {
	bus i2c.BusCloser
	dev *i2c.Dev
	log logger.Logger
}

// NewINA219 opens the I2C bus and calibrates the monitor.
func NewINA219(cfg INA219Config) (*INA219, error) {
	cfg.SetDefaults()
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init i2c host: %w", err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %s: %w", cfg.Bus, err)
	}
	s := &INA219{
		bus: bus,
		dev: &i2c.Dev{Addr: cfg.Address, Bus: bus},
		log: logger.New("ina219"),
	}
	if err := s.writeRegister(ina219RegCalibration, ina219CalValue); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("calibrate ina219 at %#04x: %w", cfg.Address, err)
	}
	s.log.Infof("INA219 initialized at address %#04x on %s", cfg.Address, cfg.Bus)
	return s, nil
}

func (s *INA219) Name() string { return "INA219" }

// Read samples bus voltage and current and derives power.
func (s *INA219) Read() (model.PowerReading, error) {
	busVoltage, err := s.busVoltageVolts()
	if err != nil {
		return model.PowerReading{}, err
	}
	current, err := s.currentAmps()
	if err != nil {
		return model.PowerReading{}, err
	}
	return model.PowerReading{
		BusVoltageVolts: busVoltage,
		CurrentAmps:     current,
		PowerWatts:      busVoltage * current,
	}, nil
}

// busVoltageVolts reads the bus voltage register. The value sits in bits
// 15..3 with a 4 mV LSB.
func (s *INA219) busVoltageVolts() (float32, error) {
	raw, err := s.readRegister(ina219RegBusVoltage)
	if err != nil {
		return 0, fmt.Errorf("read bus voltage: %w", err)
	}
	mv := (raw >> 3) * 4
	return float32(mv) / 1000.0, nil
}

// currentAmps reads the calibrated current register at 1 mA per bit. The
// result is clamped to a realistic range for the dispenser motor.
func (s *INA219) currentAmps() (float32, error) {
	raw, err := s.readRegister(ina219RegCurrent)
	if err != nil {
		return 0, fmt.Errorf("read current: %w", err)
	}
	amps := float32(int16(raw)) / 1000.0
	if amps > 2.0 {
		s.log.Warnf("current reading is unrealistic: %v A", amps)
		amps = 2.0
	}
	if amps < 0 {
		amps = 0
	}
	return amps, nil
}

func (s *INA219) readRegister(reg byte) (uint16, error) {
	var buf [2]byte
	if err := s.dev.Tx([]byte{reg}, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (s *INA219) writeRegister(reg byte, value uint16) error {
	return s.dev.Tx([]byte{reg, byte(value >> 8), byte(value)}, nil)
}

// Close releases the I2C bus.
func (s *INA219) Close() error {
	return s.bus.Close()
}
