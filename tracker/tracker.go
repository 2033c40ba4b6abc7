// Package tracker drives the calibrated tracking pipeline one tick at a time:
// it takes the latest observation, maps it into the plane and smooths it.
package tracker

import (
	"errors"
	"fmt"
	"io"

	"github.com/milosgajdos/go-planar"
	"github.com/milosgajdos/go-planar/landmark"
	"github.com/milosgajdos/go-planar/observation"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrNoFrame is returned when a normalized observation arrives without a frame
	ErrNoFrame = errors.New("normalized observation without frame")
	// ErrInvalidPlacement is returned when placement axes are degenerate
	ErrInvalidPlacement = errors.New("invalid placement")
)

// Calibration maps image points into the plane once it is ready
type Calibration interface {
	planar.Mapper
	// IsReady returns true if the calibration can map points
	IsReady() bool
	// TryMap maps image point p into the plane or returns error if p has no plane position
	TryMap(p r2.Vec) (r2.Vec, error)
}

// Placement places the plane into 3D world space
type Placement struct {
	Origin r3.Vec
	AxisX  r3.Vec
	AxisY  r3.Vec
}

// DefaultPlacement returns Placement with the plane lying flat at the world origin:
// plane X runs along world X and plane Y along world Z.
func DefaultPlacement() Placement {
	return Placement{
		AxisX: r3.Vec{X: 1},
		AxisY: r3.Vec{Z: 1},
	}
}

// Validate checks the placement axes span a plane
func (p Placement) Validate() error {
	if r3.Norm(r3.Cross(p.AxisX, p.AxisY)) == 0 {
		return ErrInvalidPlacement
	}

	return nil
}

// Plane returns plane coordinates of world point w projected onto the placement plane
func (p Placement) Plane(w r3.Vec) r2.Vec {
	d := r3.Sub(w, p.Origin)

	// normal equations of the 2x2 least squares problem
	xx, xy, yy := r3.Dot(p.AxisX, p.AxisX), r3.Dot(p.AxisX, p.AxisY), r3.Dot(p.AxisY, p.AxisY)
	bx, by := r3.Dot(p.AxisX, d), r3.Dot(p.AxisY, d)
	det := xx*yy - xy*xy

	return r2.Vec{
		X: (bx*yy - by*xy) / det,
		Y: (by*xx - bx*xy) / det,
	}
}

// World returns world coordinates of plane point v
func (p Placement) World(v r2.Vec) r3.Vec {
	w := r3.Add(p.Origin, r3.Scale(v.X, p.AxisX))
	return r3.Add(w, r3.Scale(v.Y, p.AxisY))
}

// Option configures Tracker
type Option func(*Tracker)

// WithFrame sets the frame used to convert normalized observations to pixels
func WithFrame(f landmark.Frame) Option {
	return func(t *Tracker) {
		t.frame = &f
	}
}

// WithPlacement makes Tracker smooth 3D world positions instead of plane positions
func WithPlacement(p Placement) Option {
	return func(t *Tracker) {
		t.placement = &p
	}
}

// WithLogger sets Tracker logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(t *Tracker) {
		t.log = l
	}
}

// Tracker tracks a single point on a calibrated plane
type Tracker struct {
	slot      *observation.Slot
	cal       Calibration
	filter    planar.Smoother
	frame     *landmark.Frame
	placement *Placement
	log       logrus.FieldLogger
	last      observation.Observation
	// elapsed is the time since the last filter update
	elapsed float64
}

// New creates new Tracker reading observations from slot and returns it.
// It returns error if any of the dependencies is nil or the options are invalid.
func New(slot *observation.Slot, cal Calibration, filter planar.Smoother, opts ...Option) (*Tracker, error) {
	if slot == nil || cal == nil || filter == nil {
		return nil, fmt.Errorf("invalid tracker dependencies")
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	t := &Tracker{
		slot:   slot,
		cal:    cal,
		filter: filter,
		log:    discard,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.frame != nil {
		if err := t.frame.Validate(); err != nil {
			return nil, err
		}
	}

	if t.placement != nil {
		if err := t.placement.Validate(); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Dim returns the dimension of the smoothed positions
func (t *Tracker) Dim() int {
	if t.placement != nil {
		return 3
	}

	return 2
}

// Tick advances the tracker by dt seconds.
// It returns false if no new observation arrived, the calibration is not ready
// or the observation maps towards infinity.
// The filter is updated with the time elapsed since its previous update.
func (t *Tracker) Tick(dt float64) (planar.Estimate, bool, error) {
	if dt > 0 {
		t.elapsed += dt
	}

	o, ok := t.slot.Poll()
	if !ok {
		return nil, false, nil
	}

	if !t.cal.IsReady() {
		t.log.WithField("observation", o.ID).Debug("calibration not ready")
		return nil, false, nil
	}

	p := o.Point
	if o.Normalized {
		if t.frame == nil {
			return nil, false, ErrNoFrame
		}
		p = t.frame.ToPixel(p)
	}

	v, err := t.cal.TryMap(p)
	if err != nil {
		// points mapping to infinity are not positions
		t.log.WithFields(logrus.Fields{
			"observation": o.ID,
			"error":       err,
		}).Debug("observation not mappable")
		return nil, false, nil
	}

	x := t.position(v)

	est, err := t.filter.Update(x, t.elapsed)
	if err != nil {
		return nil, false, fmt.Errorf("filter update: %w", err)
	}

	t.log.WithFields(logrus.Fields{
		"observation": o.ID,
		"elapsed":     t.elapsed,
	}).Trace("filter updated")

	t.elapsed = 0
	t.last = o

	return est, true, nil
}

// Last returns the observation used by the most recent filter update
func (t *Tracker) Last() observation.Observation {
	return t.last
}

func (t *Tracker) position(v r2.Vec) mat.Vector {
	if t.placement == nil {
		return mat.NewVecDense(2, []float64{v.X, v.Y})
	}

	w := t.placement.World(v)

	return mat.NewVecDense(3, []float64{w.X, w.Y, w.Z})
}

// Estimate returns the current filter estimate
func (t *Tracker) Estimate() planar.Estimate {
	return t.filter.Estimate()
}

// Reset discards the filter history and restarts it at x
func (t *Tracker) Reset(x mat.Vector) error {
	t.elapsed = 0
	return t.filter.Reset(x)
}
