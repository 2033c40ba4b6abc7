// Package kinematic implements a time-constant smoothing chain which turns a noisy,
// irregularly sampled position stream into smoothed position, velocity and acceleration.
//
// Every stage blends towards its target with alpha = 1 - exp(-dt/tau), so settling
// behaviour does not depend on the sampling rate. Velocity and acceleration are finite
// differences of the smoothed signal one stage up.
package kinematic

import (
	"fmt"
	"math"

	planar "github.com/milosgajdos/go-planar"
	"github.com/milosgajdos/go-planar/estimate"
	"gonum.org/v1/gonum/mat"
)

// Epsilon is the smallest time step Update accepts
const Epsilon = 1e-9

// Filter is kinematic smoothing filter.
// Filter is not safe for concurrent use: every tracked point needs its own Filter.
type Filter struct {
	// c is filter configuration
	c Config
	// initialized is set by Reset
	initialized bool
	// raw is the last raw position
	raw *mat.VecDense
	// pos is smoothed position
	pos *mat.VecDense
	// vel is smoothed velocity
	vel *mat.VecDense
	// acc is smoothed acceleration
	acc *mat.VecDense
	// prevPos is smoothed position of the previous step
	prevPos *mat.VecDense
	// prevVel is smoothed velocity of the previous step
	prevVel *mat.VecDense
	// deriv holds finite differences
	deriv *mat.VecDense
	// tmp is blend scratch space
	tmp *mat.VecDense
}

// New creates new Filter for dim dimensional positions and returns it.
// It returns error if dim is not positive or c is invalid.
func New(dim int, c Config) (*Filter, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid filter dimension: %d", dim)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &Filter{
		c:       c,
		raw:     mat.NewVecDense(dim, nil),
		pos:     mat.NewVecDense(dim, nil),
		vel:     mat.NewVecDense(dim, nil),
		acc:     mat.NewVecDense(dim, nil),
		prevPos: mat.NewVecDense(dim, nil),
		prevVel: mat.NewVecDense(dim, nil),
		deriv:   mat.NewVecDense(dim, nil),
		tmp:     mat.NewVecDense(dim, nil),
	}, nil
}

// Update feeds raw position x observed dt seconds after the previous observation
// and returns the new estimate.
// If dt is not larger than Epsilon the call is a no-op. If dt exceeds MaxDt, or this is
// the first observation, the filter is reset to x instead of filtering.
// It returns error if x does not match the filter dimension.
func (f *Filter) Update(x mat.Vector, dt float64) (planar.Estimate, error) {
	if err := f.checkDim(x); err != nil {
		return nil, err
	}

	if !(dt > Epsilon) {
		return f.Estimate(), nil
	}

	if f.c.MaxDt > 0 && dt > f.c.MaxDt {
		f.reset(x)
		return f.Estimate(), nil
	}

	f.raw.CopyVec(x)

	if !f.initialized {
		f.reset(x)
		return f.Estimate(), nil
	}

	// position: lerp towards raw
	f.blend(f.pos, f.raw, alpha(dt, f.c.PositionTimeConstant))

	// velocity: differentiate smoothed position
	f.deriv.SubVec(f.pos, f.prevPos)
	f.deriv.ScaleVec(1/dt, f.deriv)
	f.blend(f.vel, f.deriv, alpha(dt, f.c.VelocityTimeConstant))
	deadzone(f.vel, f.c.VelocityDeadzone)

	// acceleration: differentiate smoothed velocity
	f.deriv.SubVec(f.vel, f.prevVel)
	f.deriv.ScaleVec(1/dt, f.deriv)
	f.blend(f.acc, f.deriv, alpha(dt, f.c.AccelerationTimeConstant))
	deadzone(f.acc, f.c.AccelerationDeadzone)

	f.prevPos.CopyVec(f.pos)
	f.prevVel.CopyVec(f.vel)

	return f.Estimate(), nil
}

// Reset restarts the filter at position x with zero velocity and acceleration.
// It returns error if x does not match the filter dimension.
func (f *Filter) Reset(x mat.Vector) error {
	if err := f.checkDim(x); err != nil {
		return err
	}
	f.reset(x)

	return nil
}

func (f *Filter) reset(x mat.Vector) {
	f.initialized = true

	f.raw.CopyVec(x)
	f.pos.CopyVec(x)
	f.vel.Zero()
	f.acc.Zero()

	f.prevPos.CopyVec(f.pos)
	f.prevVel.CopyVec(f.vel)
}

// blend moves v towards target by fraction a: v = v + (target - v)*a
func (f *Filter) blend(v, target *mat.VecDense, a float64) {
	f.tmp.SubVec(target, v)
	v.AddScaledVec(v, a, f.tmp)
}

func (f *Filter) checkDim(x mat.Vector) error {
	if x == nil || x.Len() != f.pos.Len() {
		return fmt.Errorf("invalid position vector: expected dimension %d", f.pos.Len())
	}

	return nil
}

// Estimate returns current estimate
func (f *Filter) Estimate() planar.Estimate {
	est, _ := estimate.NewKinematic(f.pos, f.vel, f.acc)

	return est
}

// Raw returns the last raw position
func (f *Filter) Raw() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(f.raw)

	return v
}

// Initialized returns true once the filter has seen its first observation
func (f *Filter) Initialized() bool {
	return f.initialized
}

// Config returns filter configuration
func (f *Filter) Config() Config {
	return f.c
}

// Dim returns filter dimension
func (f *Filter) Dim() int {
	return f.pos.Len()
}

// alpha returns the blend factor of a first order low-pass filter with time constant tau
func alpha(dt, tau float64) float64 {
	if tau <= Epsilon {
		return 1.0
	}

	return 1.0 - math.Exp(-dt/tau)
}

// deadzone zeroes every component of v whose magnitude is at or below threshold
func deadzone(v *mat.VecDense, threshold float64) {
	if threshold <= 0 {
		return
	}

	data := v.RawVector().Data
	inc := v.RawVector().Inc
	for i := 0; i < v.Len(); i++ {
		if math.Abs(data[i*inc]) <= threshold {
			data[i*inc] = 0
		}
	}
}
