// Package landmark picks the tracked point out of hand landmark detections.
package landmark

import (
	"errors"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// Left is the left hand label
	Left = "Left"
	// Right is the right hand label
	Right = "Right"
	// IndexFingerTip is the landmark index of the index finger tip
	IndexFingerTip = 8
)

var (
	// ErrInvalidFrame is returned when frame dimensions are not positive
	ErrInvalidFrame = errors.New("invalid frame")
)

// Category is a classification label with its score
type Category struct {
	Name  string
	Score float64
}

// Hand is a detected hand
type Hand struct {
	// Handedness lists the handedness classification candidates
	Handedness []Category
	// Landmarks are normalized landmark coordinates: X and Y in [0,1], Z relative depth
	Landmarks []r3.Vec
}

// top returns the highest scoring handedness category
func (h Hand) top() (Category, bool) {
	if len(h.Handedness) == 0 {
		return Category{}, false
	}

	best := h.Handedness[0]
	for _, c := range h.Handedness[1:] {
		if c.Score > best.Score {
			best = c
		}
	}

	return best, true
}

// Selector selects a single landmark of a particular hand
type Selector struct {
	// Hand is the handedness label to track
	Hand string
	// Index is the landmark index
	Index int
	// InvertHandedness swaps Left and Right labels for mirrored input
	InvertHandedness bool
}

// DefaultSelector returns Selector which tracks the right index finger tip in mirrored input
func DefaultSelector() Selector {
	return Selector{
		Hand:             Right,
		Index:            IndexFingerTip,
		InvertHandedness: true,
	}
}

// Select returns the selected landmark of the first matching hand and its handedness score.
// It returns false if no hand matches or the matching hand lacks the landmark.
func (s Selector) Select(hands []Hand) (r3.Vec, float64, bool) {
	for _, h := range hands {
		c, ok := h.top()
		if !ok {
			continue
		}

		name := c.Name
		if s.InvertHandedness {
			name = invert(name)
		}

		if !strings.EqualFold(name, s.Hand) {
			continue
		}

		if s.Index < 0 || s.Index >= len(h.Landmarks) {
			return r3.Vec{}, 0, false
		}

		return h.Landmarks[s.Index], c.Score, true
	}

	return r3.Vec{}, 0, false
}

func invert(name string) string {
	switch {
	case strings.EqualFold(name, Left):
		return Right
	case strings.EqualFold(name, Right):
		return Left
	}

	return name
}

// Frame is an image frame size in pixels
type Frame struct {
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

// Validate checks the frame dimensions
func (f Frame) Validate() error {
	if !(f.Width > 0) || !(f.Height > 0) {
		return ErrInvalidFrame
	}

	return nil
}

// ToPixel converts normalized coordinates with Y pointing up into pixel coordinates with Y pointing down
func (f Frame) ToPixel(n r2.Vec) r2.Vec {
	return r2.Vec{
		X: n.X * f.Width,
		Y: (1 - n.Y) * f.Height,
	}
}

// ToNormalized is the inverse of ToPixel
func (f Frame) ToNormalized(p r2.Vec) r2.Vec {
	return r2.Vec{
		X: p.X / f.Width,
		Y: 1 - p.Y/f.Height,
	}
}
