package dispenser

import "fmt"

// Defaults for the control plane timings.
const (
	DefaultCooldownMS       = 5000
	DefaultDispenseDegrees  = 2160.0
	DefaultCurrentLimitAmps = 0.7
	DefaultPowerPeriodMS    = 100
	DefaultPowerWindowTicks = 30
	DefaultWeightPeriodMS   = 15
	DefaultCalibSamples     = 200
	DefaultCalibrationFile  = "/var/lib/dispenser/calibration.json"
)

// Config holds the control plane settings.
type Config struct {
	// CooldownMS is the mandatory idle period after a dispense.
	CooldownMS int `json:"cooldown_ms"`
	// DispenseDegrees is the rotation of one dispense cycle.
	DispenseDegrees float64 `json:"dispense_degrees"`
	// CurrentLimitAmps triggers the overcurrent interlock when the window
	// average exceeds it.
	CurrentLimitAmps float64 `json:"current_limit_amps"`
	// PowerSamplePeriodMS is the power monitor tick interval.
	PowerSamplePeriodMS int `json:"power_sample_period_ms"`
	// PowerWindowTicks is the number of ticks per averaging window.
	PowerWindowTicks int `json:"power_window_ticks"`
	// WeightSamplePeriodMS matches the weight sensor conversion rate.
	WeightSamplePeriodMS int `json:"weight_sample_period_ms"`
	// CalibrationSamples is the number of raw samples per tare/calibrate.
	CalibrationSamples int `json:"calibration_samples"`
	// CalibrationFile is where the scale calibration is persisted.
	CalibrationFile string `json:"calibration_file"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.CooldownMS == 0 {
		c.CooldownMS = DefaultCooldownMS
	}
	if c.DispenseDegrees == 0 {
		c.DispenseDegrees = DefaultDispenseDegrees
	}
	if c.CurrentLimitAmps == 0 {
		c.CurrentLimitAmps = DefaultCurrentLimitAmps
	}
	if c.PowerSamplePeriodMS == 0 {
		c.PowerSamplePeriodMS = DefaultPowerPeriodMS
	}
	if c.PowerWindowTicks == 0 {
		c.PowerWindowTicks = DefaultPowerWindowTicks
	}
	if c.WeightSamplePeriodMS == 0 {
		c.WeightSamplePeriodMS = DefaultWeightPeriodMS
	}
	if c.CalibrationSamples == 0 {
		c.CalibrationSamples = DefaultCalibSamples
	}
	if c.CalibrationFile == "" {
		c.CalibrationFile = DefaultCalibrationFile
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.CooldownMS < 0 {
		return fmt.Errorf("cooldown_ms must not be negative")
	}
	if c.DispenseDegrees <= 0 {
		return fmt.Errorf("dispense_degrees must be positive")
	}
	if c.CurrentLimitAmps <= 0 {
		return fmt.Errorf("current_limit_amps must be positive")
	}
	if c.PowerWindowTicks <= 0 {
		return fmt.Errorf("power_window_ticks must be positive")
	}
	if c.CalibrationSamples <= 0 {
		return fmt.Errorf("calibration_samples must be positive")
	}
	return nil
}
