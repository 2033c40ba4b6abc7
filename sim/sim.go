// Package sim simulates a detector observing a point moving on a calibrated plane.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/milosgajdos/go-planar/observation"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	// ErrInvalidScenario is returned when scenario parameters are invalid
	ErrInvalidScenario = errors.New("invalid scenario")
)

// Sample is a single simulated detection
type Sample struct {
	// Time is the detection time in seconds since the start
	Time float64
	// Truth is the true plane position
	Truth r2.Vec
	// Observation is what the detector reported
	Observation observation.Observation
}

// Scenario generates detections of a moving point
type Scenario struct {
	// Trajectory is the true motion
	Trajectory Trajectory
	// Camera observes the motion
	Camera *Camera
	// Rate is the detection rate in Hz
	Rate float64
	// Jitter perturbs detection times by up to Jitter detection periods
	Jitter float64
	// Drop is the probability a detection is lost
	Drop float64
	// Steps is the number of detections
	Steps int
	// Seed seeds timing jitter and drops
	Seed uint64
}

// Validate checks the scenario parameters
func (s Scenario) Validate() error {
	switch {
	case s.Trajectory == nil || s.Camera == nil:
		return fmt.Errorf("%w: missing trajectory or camera", ErrInvalidScenario)
	case !(s.Rate > 0):
		return fmt.Errorf("%w: rate %v", ErrInvalidScenario, s.Rate)
	case s.Jitter < 0 || s.Jitter >= 1:
		return fmt.Errorf("%w: jitter %v", ErrInvalidScenario, s.Jitter)
	case s.Drop < 0 || s.Drop >= 1:
		return fmt.Errorf("%w: drop %v", ErrInvalidScenario, s.Drop)
	case s.Steps <= 0:
		return fmt.Errorf("%w: steps %d", ErrInvalidScenario, s.Steps)
	}

	return nil
}

// Samples generates the scenario detections ordered by time.
// It returns error if the scenario is invalid or a point can not be observed.
func (s Scenario) Samples() ([]Sample, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	rnd := rand.New(rand.NewSource(s.Seed))
	period := 1 / s.Rate

	samples := make([]Sample, 0, s.Steps)
	for i := 0; i < s.Steps; i++ {
		t := float64(i)*period + s.Jitter*period*(rnd.Float64()-0.5)
		if t < 0 {
			t = 0
		}

		if s.Drop > 0 && rnd.Float64() < s.Drop {
			continue
		}

		truth := s.Trajectory(t)
		o, err := s.Camera.Observe(truth)
		if err != nil {
			return nil, fmt.Errorf("observe %v at %.3fs: %w", truth, t, err)
		}
		o.Time = time.Time{}.Add(time.Duration(t * float64(time.Second)))

		samples = append(samples, Sample{
			Time:        t,
			Truth:       truth,
			Observation: o,
		})
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time < samples[j].Time
	})

	return samples, nil
}

// Replay sends sample observations to out at their detection times relative to the call.
// It closes out when done and returns ctx error if ctx ends the replay early.
func Replay(ctx context.Context, samples []Sample, out chan<- observation.Observation) error {
	defer close(out)

	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for _, s := range samples {
		timer.Reset(time.Until(start.Add(time.Duration(s.Time * float64(time.Second)))))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- s.Observation:
		}
	}

	return nil
}
