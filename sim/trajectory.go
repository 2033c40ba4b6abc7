package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Trajectory returns the true plane position at time t seconds
type Trajectory func(t float64) r2.Vec

// Stationary returns Trajectory which stays at p
func Stationary(p r2.Vec) Trajectory {
	return func(float64) r2.Vec {
		return p
	}
}

// Circle returns Trajectory which circles center counter clockwise once per period seconds
func Circle(center r2.Vec, radius, period float64) Trajectory {
	return func(t float64) r2.Vec {
		phi := 2 * math.Pi * t / period
		return r2.Add(center, r2.Vec{X: radius * math.Cos(phi), Y: radius * math.Sin(phi)})
	}
}

// Line returns Trajectory which moves from a to b in duration seconds and back again
func Line(a, b r2.Vec, duration float64) Trajectory {
	return func(t float64) r2.Vec {
		// triangle wave in [0,1]
		s := math.Mod(t/duration, 2)
		if s > 1 {
			s = 2 - s
		}

		return r2.Add(a, r2.Scale(s, r2.Sub(b, a)))
	}
}
