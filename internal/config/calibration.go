package config

import (
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/ontiyonke/quantdsl/internal/errors"
)

// Calibration is the parsed content of a market calibration file:
//
//	process: gbm
//	params:
//	  sigma: 0.2
//	  GAS: 100
//	  OIL: 55
//
// Params are price-process parameters keyed by name; commodity names map to
// base price levels.
type Calibration struct {
	Process string             `yaml:"process"`
	Params  map[string]float64 `yaml:"params"`
}

// LoadCalibration reads and parses a YAML market calibration file.
func LoadCalibration(path string) (Calibration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Calibration{}, apperrors.WrapError(err, "reading calibration file %q", path)
	}
	var c Calibration
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Calibration{}, apperrors.NewConfigError("parsing calibration file %q: %v", path, err)
	}
	if c.Params == nil {
		c.Params = map[string]float64{}
	}
	return c, nil
}
