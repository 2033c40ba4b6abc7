package kinematic

import (
	"fmt"
	"math"
)

// Config is kinematic filter configuration.
// Time constants and MaxDt are in seconds. Deadzones are in plane units per second
// (velocity) and plane units per second squared (acceleration); with a target measured
// in metres that is m/s and m/s^2. Zero disables the corresponding feature.
type Config struct {
	// PositionTimeConstant is position smoothing time constant
	PositionTimeConstant float64 `json:"position_time_constant" validate:"gte=0"`
	// VelocityTimeConstant is velocity smoothing time constant
	VelocityTimeConstant float64 `json:"velocity_time_constant" validate:"gte=0"`
	// AccelerationTimeConstant is acceleration smoothing time constant
	AccelerationTimeConstant float64 `json:"acceleration_time_constant" validate:"gte=0"`
	// MaxDt is the time step above which the filter resets instead of filtering
	MaxDt float64 `json:"max_dt" validate:"gte=0"`
	// VelocityDeadzone zeroes velocity axes whose magnitude is at or below it
	VelocityDeadzone float64 `json:"velocity_deadzone" validate:"gte=0"`
	// AccelerationDeadzone zeroes acceleration axes whose magnitude is at or below it
	AccelerationDeadzone float64 `json:"acceleration_deadzone" validate:"gte=0"`
}

// DefaultConfig returns default filter configuration
func DefaultConfig() Config {
	return Config{
		PositionTimeConstant:     0.05,
		VelocityTimeConstant:     0.08,
		AccelerationTimeConstant: 0.12,
		MaxDt:                    0.1,
		VelocityDeadzone:         0.01,
		AccelerationDeadzone:     0.1,
	}
}

// Validate returns error if any parameter is negative, NaN or infinite
func (c Config) Validate() error {
	for _, p := range []struct {
		name string
		val  float64
	}{
		{"position time constant", c.PositionTimeConstant},
		{"velocity time constant", c.VelocityTimeConstant},
		{"acceleration time constant", c.AccelerationTimeConstant},
		{"max dt", c.MaxDt},
		{"velocity deadzone", c.VelocityDeadzone},
		{"acceleration deadzone", c.AccelerationDeadzone},
	} {
		if math.IsNaN(p.val) || math.IsInf(p.val, 0) || p.val < 0 {
			return fmt.Errorf("invalid %s: %g", p.name, p.val)
		}
	}

	return nil
}
