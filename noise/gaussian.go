// Package noise provides measurement noise used to perturb simulated detections.
package noise

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

var (
	// ErrInvalidNoise is returned when noise parameters are invalid
	ErrInvalidNoise = errors.New("invalid noise")
)

// Option configures Gaussian noise
type Option func(*Gaussian)

// WithSeed seeds Gaussian noise so its samples are reproducible
func WithSeed(seed uint64) Option {
	return func(g *Gaussian) {
		g.seed = seed
		g.seeded = true
	}
}

// Gaussian is gaussian noise
type Gaussian struct {
	// dist is a multivariate normal distribution
	dist *distmv.Normal
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov *mat.SymDense
	// seed is the source seed
	seed   uint64
	seeded bool
}

// NewGaussian creates new Gaussian noise with given mean and covariance.
// It returns error if mean and cov dimensions differ or cov is not positive definite.
func NewGaussian(mean []float64, cov mat.Symmetric, opts ...Option) (*Gaussian, error) {
	if cov == nil || len(mean) != cov.SymmetricDim() {
		return nil, fmt.Errorf("%w: mean and covariance dimension mismatch", ErrInvalidNoise)
	}

	g := &Gaussian{
		mean: append([]float64(nil), mean...),
		cov:  mat.NewSymDense(cov.SymmetricDim(), nil),
	}
	g.cov.CopySym(cov)

	for _, opt := range opts {
		opt(g)
	}

	if err := g.Reset(); err != nil {
		return nil, err
	}

	return g, nil
}

// NewIsotropic creates new zero mean Gaussian noise of dimension dim with standard deviation sigma on every axis
func NewIsotropic(dim int, sigma float64, opts ...Option) (*Gaussian, error) {
	if dim <= 0 || !(sigma > 0) {
		return nil, fmt.Errorf("%w: dim %d sigma %v", ErrInvalidNoise, dim, sigma)
	}

	cov := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		cov.SetSym(i, i, sigma*sigma)
	}

	return NewGaussian(make([]float64, dim), cov, opts...)
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	r := g.dist.Rand(nil)
	return mat.NewVecDense(len(r), r)
}

// Cov returns a copy of the covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	cov := mat.NewSymDense(g.cov.SymmetricDim(), nil)
	cov.CopySym(g.cov)

	return cov
}

// Mean returns a copy of Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	return append([]float64(nil), g.mean...)
}

// Reset resets Gaussian noise.
// Seeded noise restarts its sample sequence.
// It returns error if it fails to reset the noise.
func (g *Gaussian) Reset() error {
	seed := g.seed
	if !g.seeded {
		seed = uint64(time.Now().UnixNano())
	}

	dist, ok := distmv.NewNormal(g.mean, g.cov, rand.NewSource(seed))
	if !ok {
		return fmt.Errorf("%w: covariance is not positive definite", ErrInvalidNoise)
	}
	g.dist = dist

	return nil
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
