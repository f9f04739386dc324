// Package config loads the dispenser configuration from a YAML or JSON
// file with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/petbuddy/dispenser/core/dispenser"
	"github.com/petbuddy/dispenser/core/metrics"
	inframotor "github.com/petbuddy/dispenser/infra/motor"
	"github.com/petbuddy/dispenser/infra/mqtt"
	infrasensor "github.com/petbuddy/dispenser/infra/sensor"
)

// Motor backend types.
const (
	MotorULN2003 = "uln2003"
	MotorStepDir = "stepdir"
	MotorMock    = "mock"
)

// Power sensor backend types.
const (
	PowerSensorINA219 = "ina219"
	PowerSensorMock   = "mock"
	PowerSensorNone   = "none"
)

// Weight sensor backend types.
const (
	WeightSensorHX711  = "hx711"
	WeightSensorSerial = "serial"
	WeightSensorMock   = "mock"
)

// MotorConfig selects and configures the stepper backend.
type MotorConfig struct {
	Type    string                   `json:"type"`
	ULN2003 inframotor.ULN2003Config `json:"uln2003"`
	StepDir inframotor.StepDirConfig `json:"stepdir"`
}

// SetDefaults applies sane defaults.
func (c *MotorConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = MotorULN2003
	}
	c.ULN2003.SetDefaults()
	c.StepDir.SetDefaults()
}

// Validate checks the backend type.
func (c MotorConfig) Validate() error {
	switch c.Type {
	case MotorULN2003, MotorStepDir, MotorMock:
		return nil
	default:
		return fmt.Errorf("unknown motor type %s", c.Type)
	}
}

// PowerSensorConfig selects and configures the power sensor backend.
type PowerSensorConfig struct {
	Type   string                   `json:"type"`
	INA219 infrasensor.INA219Config `json:"ina219"`
}

// SetDefaults applies sane defaults.
func (c *PowerSensorConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = PowerSensorINA219
	}
	c.INA219.SetDefaults()
}

// Validate checks the backend type.
func (c PowerSensorConfig) Validate() error {
	switch c.Type {
	case PowerSensorINA219, PowerSensorMock, PowerSensorNone:
		return nil
	default:
		return fmt.Errorf("unknown power sensor type %s", c.Type)
	}
}

// WeightSensorConfig selects and configures the weight sensor backend.
type WeightSensorConfig struct {
	Type   string                        `json:"type"`
	HX711  infrasensor.HX711Config       `json:"hx711"`
	Serial infrasensor.SerialScaleConfig `json:"serial"`
}

// SetDefaults applies sane defaults.
func (c *WeightSensorConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = WeightSensorHX711
	}
	c.HX711.SetDefaults()
	c.Serial.SetDefaults()
}

// Validate checks the backend type.
func (c WeightSensorConfig) Validate() error {
	switch c.Type {
	case WeightSensorHX711, WeightSensorSerial, WeightSensorMock:
		return nil
	default:
		return fmt.Errorf("unknown weight sensor type %s", c.Type)
	}
}

// Config is the root dispenser service configuration.
type Config struct {
	Dispenser    dispenser.Config   `json:"dispenser"`
	Motor        MotorConfig        `json:"motor"`
	PowerSensor  PowerSensorConfig  `json:"power_sensor"`
	WeightSensor WeightSensorConfig `json:"weight_sensor"`
	Metrics      metrics.Config     `json:"metrics"`
	Telemetry    mqtt.Config        `json:"telemetry"`
}

// Load reads the configuration from path, applies TD_ environment
// overrides, defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides, e.g. TD_TELEMETRY__BROKER.
	if err := k.Load(env.Provider("TD_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "td_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies sane defaults to all sections.
func (c *Config) SetDefaults() {
	c.Dispenser.SetDefaults()
	c.Motor.SetDefaults()
	c.PowerSensor.SetDefaults()
	c.WeightSensor.SetDefaults()
	c.Metrics.SetDefaults()
	c.Telemetry.SetDefaults()
}

// Validate checks all sections.
func (c Config) Validate() error {
	if err := c.Dispenser.Validate(); err != nil {
		return err
	}
	if err := c.Motor.Validate(); err != nil {
		return err
	}
	if err := c.PowerSensor.Validate(); err != nil {
		return err
	}
	return c.WeightSensor.Validate()
}
