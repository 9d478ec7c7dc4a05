// Package overlay composites a red-mapped and a green-mapped frame into one
// false-color preview with background suppression and tone enhancement.
package overlay

import (
	"fmt"
	"math"

	"github.com/kiesman99/quadfuse/pkg/raster"
)

// Defaults used by the interactive preview.
const (
	DefaultAlpha      = 0.3
	DefaultBrightness = 0.47
	DefaultContrast   = 2.4
	DefaultSaturation = 2.33
	DefaultThreshold  = 30

	// MinFactor and MaxFactor bound the enhancement controls.
	MinFactor = 0.1
	MaxFactor = 3.0
)

// blendBoost compensates for the darkening of the alpha scale.
const blendBoost = 2.5

// Params is an immutable snapshot of the composite controls. Build a new
// value for every request instead of patching a shared one.
type Params struct {
	Alpha      float64 `json:"alpha" mapstructure:"alpha"`
	Brightness float64 `json:"brightness" mapstructure:"brightness"`
	Contrast   float64 `json:"contrast" mapstructure:"contrast"`
	Saturation float64 `json:"saturation" mapstructure:"saturation"`
	Threshold  int     `json:"threshold" mapstructure:"threshold"`
}

// DefaultParams returns the stock control values.
func DefaultParams() Params {
	return Params{
		Alpha:      DefaultAlpha,
		Brightness: DefaultBrightness,
		Contrast:   DefaultContrast,
		Saturation: DefaultSaturation,
		Threshold:  DefaultThreshold,
	}
}

// Validate checks the values against the control ranges.
func (p Params) Validate() error {
	if !(p.Alpha > 0) || math.IsInf(p.Alpha, 1) {
		return fmt.Errorf("%w: alpha must be positive and finite, got %g", raster.ErrInvalidArgument, p.Alpha)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"brightness", p.Brightness},
		{"contrast", p.Contrast},
		{"saturation", p.Saturation},
	} {
		// Written as a negated range test so NaN fails it too.
		if !(f.v >= MinFactor && f.v <= MaxFactor) {
			return fmt.Errorf("%w: %s must be within [%g, %g], got %g",
				raster.ErrInvalidArgument, f.name, MinFactor, MaxFactor, f.v)
		}
	}
	if p.Threshold < 0 || p.Threshold > 255 {
		return fmt.Errorf("%w: threshold must be within [0, 255], got %d", raster.ErrInvalidArgument, p.Threshold)
	}
	return nil
}

// String formats the parameters as a status line.
func (p Params) String() string {
	return fmt.Sprintf("brightness: %.2f, contrast: %.2f, saturation: %.2f, threshold: %d",
		p.Brightness, p.Contrast, p.Saturation, p.Threshold)
}
