package homography

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Engine holds the current image to plane transform.
// The held transform is replaced wholesale: a failed solve leaves it untouched.
// Engine is not safe for concurrent use.
type Engine struct {
	// h is the current transform
	h Homography
}

// NewEngine creates new Engine with no valid transform and returns it
func NewEngine() *Engine {
	return &Engine{}
}

// SolveFrom4Points solves a new transform from four correspondences and makes it current.
// It returns error if the transform can't be solved in which case the current transform is kept.
func (e *Engine) SolveFrom4Points(img, plane []r2.Vec) (Homography, error) {
	h, err := Solve(img, plane)
	if err != nil {
		return Homography{}, err
	}
	e.h = h

	return h, nil
}

// SetIdentity makes the identity transform current
func (e *Engine) SetIdentity() {
	e.h = Identity()
}

// Set makes h the current transform
func (e *Engine) Set(h Homography) {
	e.h = h
}

// Homography returns the current transform
func (e *Engine) Homography() Homography {
	return e.h
}

// IsValid returns true if the current transform is valid
func (e *Engine) IsValid() bool {
	return e.h.IsValid()
}

// Map maps image point p into the plane using the current transform
func (e *Engine) Map(p r2.Vec) r2.Vec {
	return e.h.Map(p)
}

// TryMap maps image point p into the plane using the current transform
func (e *Engine) TryMap(p r2.Vec) (r2.Vec, error) {
	return e.h.TryMap(p)
}
