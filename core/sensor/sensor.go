// Package sensor defines the power and weight sensor capability contracts
// and the raw-to-grams conversion shared by all weight sensor backends.
package sensor

import (
	"math"

	"github.com/petbuddy/dispenser/core/model"
)

// PowerSensor reads instantaneous voltage, current and power.
type PowerSensor interface {
	Name() string
	Read() (model.PowerReading, error)
}

// WeightSensor reads raw load cell values and converted weights.
type WeightSensor interface {
	Name() string
	ReadRaw() (int32, error)
	ReadWeight(cal model.WeightCalibration) (model.WeightReading, error)
}

// Convert applies a calibration to a raw load cell value. Values with a
// magnitude below one gram are snapped to zero to suppress noise around the
// tare point.
func Convert(raw int32, cal model.WeightCalibration) model.WeightReading {
	scale := float64(cal.Scale)
	if scale == 0 {
		scale = 1
	}
	grams := (float64(raw) - float64(cal.TareRaw) - float64(cal.Offset)) / scale
	if math.Abs(grams) < 1 {
		grams = 0
	}
	return model.WeightReading{Grams: int32(math.Round(grams))}
}
