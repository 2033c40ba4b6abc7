package calibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Rect is the physical calibration target
type Rect struct {
	// Width is the extent along the plane X axis
	Width float64 `json:"width" validate:"gt=0"`
	// Height is the extent along the plane Y axis
	Height float64 `json:"height" validate:"gt=0"`
}

// Validate returns error if either dimension is not a positive finite number
func (r Rect) Validate() error {
	if !(r.Width > 0) || math.IsInf(r.Width, 0) || !(r.Height > 0) || math.IsInf(r.Height, 0) {
		return fmt.Errorf("invalid target dimensions: %g x %g", r.Width, r.Height)
	}

	return nil
}

// Corners returns the rectangle corners in calibration order:
// origin, width-axis corner, opposite corner, height-axis corner.
func (r Rect) Corners() []r2.Vec {
	return []r2.Vec{
		{X: 0, Y: 0},
		{X: r.Width, Y: 0},
		{X: r.Width, Y: r.Height},
		{X: 0, Y: r.Height},
	}
}
