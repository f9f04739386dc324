package dispenser

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/petbuddy/dispenser/core/logger"
	"github.com/petbuddy/dispenser/core/model"
)

// LoadCalibration reads the persisted calibration record. A missing or
// corrupt file falls back to the default calibration with a warning.
func LoadCalibration(path string, log logger.Logger) model.WeightCalibration {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("failed to load calibration from %s, using defaults: %v", path, err)
		return model.DefaultWeightCalibration()
	}
	var cal model.WeightCalibration
	if err := json.Unmarshal(data, &cal); err != nil {
		log.Warnf("corrupt calibration file %s, using defaults: %v", path, err)
		return model.DefaultWeightCalibration()
	}
	return cal
}

// SaveCalibration atomically overwrites the calibration record: the
// document is written to a temp file and renamed into place.
func SaveCalibration(path string, cal model.WeightCalibration) error {
	data, err := json.Marshal(cal)
	if err != nil {
		return fmt.Errorf("marshal calibration: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write calibration: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename calibration: %w", err)
	}
	return nil
}
