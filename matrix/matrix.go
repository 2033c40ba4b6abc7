package matrix

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PivotEpsilon is the smallest pivot magnitude Solve accepts
const PivotEpsilon = 1e-12

// ErrSingular is returned when the system has no unique solution
var ErrSingular = errors.New("singular system")

// Solve solves the linear system a*x = b using Gauss-Jordan elimination with partial pivoting
// and returns x. Neither a nor b is modified.
// It returns error if either of the following conditions is met:
//   - a is not square or b does not match its dimension
//   - the best available pivot in any column is smaller than PivotEpsilon or not finite
//   - the solution is not finite
func Solve(a mat.Matrix, b mat.Vector) (*mat.VecDense, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("invalid system: nil matrix or vector")
	}

	n, c := a.Dims()
	if n != c || n == 0 {
		return nil, fmt.Errorf("invalid matrix dimensions: [%d x %d]", n, c)
	}

	if b.Len() != n {
		return nil, fmt.Errorf("invalid vector dimension: %d != %d", b.Len(), n)
	}

	// augmented matrix [a | b]
	m := mat.NewDense(n, n+1, nil)
	m.Slice(0, n, 0, n).(*mat.Dense).Copy(a)
	m.Slice(0, n, n, n+1).(*mat.Dense).Copy(b)

	for col := 0; col < n; col++ {
		pivot, best := col, math.Abs(m.At(col, col))
		for r := col + 1; r < n; r++ {
			if v := math.Abs(m.At(r, col)); v > best {
				pivot, best = r, v
			}
		}

		// NaN never compares true; Inf pivots zero the row
		if !(best >= PivotEpsilon) || math.IsInf(best, 1) {
			return nil, fmt.Errorf("column %d: pivot %g: %w", col, best, ErrSingular)
		}

		if pivot != col {
			swapRows(m, col, pivot)
		}

		row := m.RawRowView(col)
		floats.Scale(1/row[col], row)

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			other := m.RawRowView(r)
			factor := other[col]
			if math.Abs(factor) < PivotEpsilon {
				continue
			}
			floats.AddScaled(other, -factor, row)
		}
	}

	x := mat.NewVecDense(n, nil)
	x.CopyVec(m.ColView(n))

	for i, v := range x.RawVector().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite solution x[%d] = %g: %w", i, v, ErrSingular)
		}
	}

	return x, nil
}

func swapRows(m *mat.Dense, i, j int) {
	ri, rj := m.RawRowView(i), m.RawRowView(j)
	for k := range ri {
		ri[k], rj[k] = rj[k], ri[k]
	}
}
