// Package homography estimates and applies planar projective transforms.
//
// A Homography maps image points into plane coordinates:
//
//	    | h11 h12 h13 |
//	H = | h21 h22 h23 |
//	    | h31 h32  1  |
//
//	X = (h11*x + h12*y + h13) / w
//	Y = (h21*x + h22*y + h23) / w
//	w = h31*x + h32*y + 1
package homography

import (
	"errors"
	"fmt"
	"math"

	"github.com/milosgajdos/go-planar/matrix"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
)

// Correspondences is the number of point pairs required to solve a Homography
const Correspondences = 4

// MapEpsilon is the smallest projective denominator Map accepts
const MapEpsilon = 1e-9

var (
	// ErrDegenerateInput is returned when correspondences can't determine a unique transform
	ErrDegenerateInput = errors.New("degenerate correspondences")
	// ErrInvalidTransform is returned when mapping through a transform that was never solved
	ErrInvalidTransform = errors.New("invalid transform")
	// ErrDegenerateMapping is returned when a point maps towards the line at infinity
	ErrDegenerateMapping = errors.New("degenerate mapping")
)

// Homography is an 8 parameter projective transform with h33 fixed to 1.
// The zero value is an invalid transform which maps every point to the zero vector.
type Homography struct {
	// h stores h11, h12, h13, h21, h22, h23, h31, h32
	h [8]float64
	// valid is set when all coefficients were set together
	valid bool
}

// Identity returns valid identity transform
func Identity() Homography {
	return Homography{
		h:     [8]float64{1, 0, 0, 0, 1, 0, 0, 0},
		valid: true,
	}
}

// FromCoeffs returns valid transform with coefficients h11, h12, h13, h21, h22, h23, h31, h32
func FromCoeffs(h [8]float64) Homography {
	return Homography{h: h, valid: true}
}

// Solve estimates the transform which maps img[i] to plane[i] for all four correspondences.
// It returns error wrapping ErrDegenerateInput if either of the following conditions is met:
//   - the number of image or plane points is not 4
//   - any coordinate is NaN or infinite
//   - the points are collinear, duplicated or otherwise yield a singular system
func Solve(img, plane []r2.Vec) (Homography, error) {
	if len(img) != Correspondences || len(plane) != Correspondences {
		return Homography{}, fmt.Errorf("%w: need %d correspondences, got %d -> %d",
			ErrDegenerateInput, Correspondences, len(img), len(plane))
	}

	for i := 0; i < Correspondences; i++ {
		if !finite(img[i]) || !finite(plane[i]) {
			return Homography{}, fmt.Errorf("%w: non-finite correspondence %d: %v -> %v",
				ErrDegenerateInput, i, img[i], plane[i])
		}
	}

	a := mat.NewDense(2*Correspondences, 8, nil)
	b := mat.NewVecDense(2*Correspondences, nil)

	for i := 0; i < Correspondences; i++ {
		x, y := img[i].X, img[i].Y
		X, Y := plane[i].X, plane[i].Y

		// X*w = h11*x + h12*y + h13
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -X * x, -X * y})
		b.SetVec(2*i, X)

		// Y*w = h21*x + h22*y + h23
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -Y * x, -Y * y})
		b.SetVec(2*i+1, Y)
	}

	sol, err := matrix.Solve(a, b)
	if err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateInput, err)
	}

	var h [8]float64
	copy(h[:], sol.RawVector().Data)

	return FromCoeffs(h), nil
}

func finite(p r2.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// IsValid returns true if the transform has been solved or set
func (h Homography) IsValid() bool {
	return h.valid
}

// Coeffs returns transform coefficients h11, h12, h13, h21, h22, h23, h31, h32
func (h Homography) Coeffs() [8]float64 {
	return h.h
}

// Map maps image point p into the plane.
// It returns zero vector if the transform is invalid or p maps towards the line at infinity.
func (h Homography) Map(p r2.Vec) r2.Vec {
	q, err := h.TryMap(p)
	if err != nil {
		return r2.Vec{}
	}

	return q
}

// TryMap maps image point p into the plane.
// It returns ErrInvalidTransform if the transform is not valid and
// ErrDegenerateMapping if the projective denominator of p is smaller than MapEpsilon.
func (h Homography) TryMap(p r2.Vec) (r2.Vec, error) {
	if !h.valid {
		return r2.Vec{}, ErrInvalidTransform
	}

	w := h.h[6]*p.X + h.h[7]*p.Y + 1.0
	if math.Abs(w) < MapEpsilon {
		return r2.Vec{}, fmt.Errorf("%w: point %v, w=%g", ErrDegenerateMapping, p, w)
	}

	return r2.Vec{
		X: (h.h[0]*p.X + h.h[1]*p.Y + h.h[2]) / w,
		Y: (h.h[3]*p.X + h.h[4]*p.Y + h.h[5]) / w,
	}, nil
}

// Matrix returns 3x3 transform matrix.
// It returns zero matrix if the transform is invalid.
func (h Homography) Matrix() *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	if !h.valid {
		return m
	}

	m.SetRow(0, h.h[0:3])
	m.SetRow(1, h.h[3:6])
	m.SetRow(2, []float64{h.h[6], h.h[7], 1.0})

	return m
}

// Inverse returns the transform which maps plane points back into the image.
// It returns error if the transform is invalid or it can't be inverted.
func (h Homography) Inverse() (Homography, error) {
	if !h.valid {
		return Homography{}, ErrInvalidTransform
	}

	inv := &mat.Dense{}
	if err := inv.Inverse(h.Matrix()); err != nil {
		return Homography{}, fmt.Errorf("failed to invert transform: %v", err)
	}

	s := inv.At(2, 2)
	if math.Abs(s) < MapEpsilon {
		return Homography{}, fmt.Errorf("%w: inverse maps origin to infinity", ErrDegenerateMapping)
	}
	inv.Scale(1/s, inv)

	return FromCoeffs([8]float64{
		inv.At(0, 0), inv.At(0, 1), inv.At(0, 2),
		inv.At(1, 0), inv.At(1, 1), inv.At(1, 2),
		inv.At(2, 0), inv.At(2, 1),
	}), nil
}

// String implements the Stringer interface.
func (h Homography) String() string {
	return fmt.Sprintf("Homography{\nValid=%v\nH=%v\n}", h.valid, mat.Formatted(h.Matrix(), mat.Prefix("  "), mat.Squeeze()))
}
