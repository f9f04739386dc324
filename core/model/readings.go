// Package model defines the sensor reading and calibration types shared
// between the control plane and its backends.
package model

// PowerReading is one instantaneous sample from the power sensor.
type PowerReading struct {
	BusVoltageVolts float32 `json:"bus_voltage_volts"`
	CurrentAmps     float32 `json:"current_amps"`
	PowerWatts      float32 `json:"power_watts"`
}

// DummyPowerReading seeds the power channel before the first real sample.
func DummyPowerReading() PowerReading {
	return PowerReading{BusVoltageVolts: -1, CurrentAmps: -1, PowerWatts: -1}
}

// WeightReading is one converted sample from the weight sensor.
type WeightReading struct {
	Grams int32 `json:"grams"`
}

// WeightCalibration converts raw load cell values to grams. Scale is raw
// units per gram and is kept non-negative.
type WeightCalibration struct {
	Scale   float32 `json:"scale"`
	Offset  float32 `json:"offset"`
	TareRaw int32   `json:"tare_raw"`
}

// DefaultWeightCalibration is the fallback used when no persisted
// calibration exists.
func DefaultWeightCalibration() WeightCalibration {
	return WeightCalibration{Scale: 1.0, Offset: 0.0, TareRaw: 0}
}
