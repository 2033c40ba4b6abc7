package planar

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
)

// Mapper maps image points into plane coordinates
type Mapper interface {
	// Map maps image point p into the plane
	Map(p r2.Vec) r2.Vec
}

// Estimate is a kinematic estimate of a tracked point
type Estimate interface {
	// Position returns smoothed position
	Position() mat.Vector
	// Velocity returns smoothed velocity
	Velocity() mat.Vector
	// Acceleration returns smoothed acceleration
	Acceleration() mat.Vector
}

// Smoother turns a noisy position stream into kinematic estimates
type Smoother interface {
	// Update feeds raw position x observed dt seconds after the previous one
	Update(x mat.Vector, dt float64) (Estimate, error)
	// Reset discards the history and restarts the smoother at x
	Reset(x mat.Vector) error
	// Estimate returns the current estimate
	Estimate() Estimate
}

// Noise is measurement noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset() error
}
