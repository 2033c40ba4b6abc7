package noise

import (
	"testing"

	"github.com/milosgajdos/go-planar"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var _ planar.Noise = (*Gaussian)(nil)

func TestNewGaussian(t *testing.T) {
	assert := assert.New(t)

	g, err := NewGaussian([]float64{2, 3}, mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1}))
	assert.NotNil(g)
	assert.NoError(err)

	testCases := []struct {
		name string
		mean []float64
		cov  mat.Symmetric
	}{
		{"nil cov", []float64{1}, nil},
		{"dim mismatch", []float64{1, 2, 3}, mat.NewSymDense(2, []float64{1, 0, 0, 1})},
		{"not positive definite", []float64{0, 0}, mat.NewSymDense(2, []float64{1, 2, 2, 1})},
	}

	for _, tc := range testCases {
		g, err := NewGaussian(tc.mean, tc.cov)
		assert.Nil(g, tc.name)
		assert.ErrorIs(err, ErrInvalidNoise, tc.name)
	}
}

func TestMeanCov(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussian(mean, cov)
	assert.NoError(err)

	assert.True(mat.Equal(cov, g.Cov()))
	assert.Equal(mean, g.Mean())

	// returned values are copies
	g.Mean()[0] = 100
	assert.Equal(mean, g.Mean())

	assert.Contains(g.String(), "Gaussian{")
}

func TestSampleMean(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, -3}
	g, err := NewGaussian(mean, mat.NewSymDense(2, []float64{0.01, 0, 0, 0.01}), WithSeed(42))
	assert.NoError(err)

	n := 2000
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		s := g.Sample()
		assert.Equal(2, s.Len())
		xs[i], ys[i] = s.AtVec(0), s.AtVec(1)
	}

	assert.InDelta(mean[0], stat.Mean(xs, nil), 0.01)
	assert.InDelta(mean[1], stat.Mean(ys, nil), 0.01)
	assert.InDelta(0.1, stat.StdDev(xs, nil), 0.01)
}

func TestSeedReset(t *testing.T) {
	assert := assert.New(t)

	g, err := NewIsotropic(2, 0.5, WithSeed(7))
	assert.NoError(err)

	first := mat.VecDenseCopyOf(g.Sample())
	g.Sample()

	assert.NoError(g.Reset())
	assert.True(mat.Equal(first, g.Sample()))

	other, err := NewIsotropic(2, 0.5, WithSeed(7))
	assert.NoError(err)
	assert.True(mat.Equal(first, other.Sample()))
}

func TestNewIsotropic(t *testing.T) {
	assert := assert.New(t)

	g, err := NewIsotropic(3, 2)
	assert.NoError(err)
	assert.Equal(4.0, g.Cov().At(1, 1))
	assert.Equal(0.0, g.Cov().At(0, 1))

	_, err = NewIsotropic(0, 1)
	assert.ErrorIs(err, ErrInvalidNoise)

	_, err = NewIsotropic(2, 0)
	assert.ErrorIs(err, ErrInvalidNoise)
}
