// Package observation hands detections from an asynchronous producer to a tick driven
// consumer through a single slot: each tick sees the latest observation or none.
package observation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"
)

// Observation is a raw detection of the tracked point
type Observation struct {
	// ID identifies the observation
	ID uuid.UUID
	// Time is the detection time
	Time time.Time
	// Point is the detected point
	Point r2.Vec
	// Normalized is set when Point is in [0,1] image coordinates rather than pixels
	Normalized bool
}

// New returns new Observation of point p detected now
func New(p r2.Vec, normalized bool) Observation {
	return Observation{
		ID:         uuid.New(),
		Time:       time.Now(),
		Point:      p,
		Normalized: normalized,
	}
}

// Slot is a single slot buffer with latest wins semantics.
// Offer and Poll never block. Slot supports one producer and one consumer.
type Slot struct {
	ch chan Observation
}

// NewSlot creates new empty Slot and returns it
func NewSlot() *Slot {
	return &Slot{
		ch: make(chan Observation, 1),
	}
}

// Offer stores o replacing any observation the consumer has not polled yet
func (s *Slot) Offer(o Observation) {
	for {
		select {
		case s.ch <- o:
			return
		default:
		}

		// drop the stale observation
		select {
		case <-s.ch:
		default:
		}
	}
}

// Poll returns the latest observation offered since the last Poll.
// It returns false if nothing new arrived.
func (s *Slot) Poll() (Observation, bool) {
	select {
	case o := <-s.ch:
		return o, true
	default:
		return Observation{}, false
	}
}

// Pump offers every observation received from in to s until in is closed or ctx is done.
// It returns ctx error if ctx ended the pump.
func Pump(ctx context.Context, in <-chan Observation, s *Slot) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case o, ok := <-in:
			if !ok {
				return nil
			}
			s.Offer(o)
		}
	}
}
