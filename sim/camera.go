package sim

import (
	"fmt"

	"github.com/milosgajdos/go-planar"
	"github.com/milosgajdos/go-planar/homography"
	"github.com/milosgajdos/go-planar/landmark"
	"github.com/milosgajdos/go-planar/observation"
	"gonum.org/v1/gonum/spatial/r2"
)

// CameraOption configures Camera
type CameraOption func(*Camera)

// WithNoise adds pixel noise n to every detection
func WithNoise(n planar.Noise) CameraOption {
	return func(c *Camera) {
		c.noise = n
	}
}

// WithNormalized makes Camera report detections normalized to frame f
func WithNormalized(f landmark.Frame) CameraOption {
	return func(c *Camera) {
		c.frame = &f
	}
}

// Camera projects plane points into the image like a detector looking at the plane would
type Camera struct {
	// project maps plane points into pixels
	project homography.Homography
	noise   planar.Noise
	frame   *landmark.Frame
}

// NewCamera creates new Camera whose image relates to the plane by h, an image to plane mapping.
// It returns error if h can not be inverted or the options are invalid.
func NewCamera(h homography.Homography, opts ...CameraOption) (*Camera, error) {
	project, err := h.Inverse()
	if err != nil {
		return nil, fmt.Errorf("camera projection: %w", err)
	}

	c := &Camera{
		project: project,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.noise != nil && len(c.noise.Mean()) != 2 {
		return nil, fmt.Errorf("invalid camera noise dimension: %d", len(c.noise.Mean()))
	}

	if c.frame != nil {
		if err := c.frame.Validate(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Pixel returns noiseless pixel coordinates of plane point p
func (c *Camera) Pixel(p r2.Vec) (r2.Vec, error) {
	return c.project.TryMap(p)
}

// Observe returns a detection of plane point p.
// It returns error if p projects to infinity.
func (c *Camera) Observe(p r2.Vec) (observation.Observation, error) {
	px, err := c.Pixel(p)
	if err != nil {
		return observation.Observation{}, err
	}

	if c.noise != nil {
		n := c.noise.Sample()
		px = r2.Add(px, r2.Vec{X: n.AtVec(0), Y: n.AtVec(1)})
	}

	if c.frame != nil {
		return observation.New(c.frame.ToNormalized(px), true), nil
	}

	return observation.New(px, false), nil
}
