// Package calibration collects four image corners of a physical rectangle and solves
// the image to plane transform from them.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/milosgajdos/go-planar/homography"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	// ErrSessionComplete is returned when submitting a point after all corners were collected
	ErrSessionComplete = errors.New("calibration session complete")
	// ErrIncomplete is returned when solving before all corners were collected
	ErrIncomplete = errors.New("calibration incomplete")
	// ErrNotReady is returned when saving without a successfully solved transform
	ErrNotReady = errors.New("calibration not ready")
	// ErrNoRepository is returned when loading or saving without a repository
	ErrNoRepository = errors.New("no calibration repository")
)

// State is calibration session state
type State int

const (
	// Idle means no corners were collected
	Idle State = iota
	// Collecting means 1 to 3 corners were collected
	Collecting
	// Solved means all 4 corners were collected and solve was attempted
	Solved
)

// String implements the Stringer interface.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Collecting:
		return "Collecting"
	case Solved:
		return "Solved"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Option configures Session
type Option func(*Session)

// WithRepository sets session calibration repository
func WithRepository(r Repository) Option {
	return func(s *Session) {
		s.repo = r
	}
}

// WithLogger sets session logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// Session is a calibration state machine.
// Session is not safe for concurrent use.
type Session struct {
	// engine holds the solved transform
	engine *homography.Engine
	// target is the physical calibration target
	target Rect
	// points are corners collected so far
	points [homography.Correspondences]r2.Vec
	// count is the number of collected corners
	count int
	// solved are corners of the last successful solve
	solved *[homography.Correspondences]r2.Vec
	// solvedTarget is the target of the last successful solve
	solvedTarget Rect
	repo         Repository
	log          logrus.FieldLogger
}

// NewSession creates new Session which solves into engine and returns it.
// It returns error if engine is nil or target is invalid.
func NewSession(engine *homography.Engine, target Rect, opts ...Option) (*Session, error) {
	if engine == nil {
		return nil, fmt.Errorf("invalid engine: %v", engine)
	}

	if err := target.Validate(); err != nil {
		return nil, err
	}

	l := logrus.New()
	l.SetOutput(io.Discard)

	s := &Session{
		engine: engine,
		target: target,
		log:    l,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// State returns session state
func (s *Session) State() State {
	switch {
	case s.count == 0:
		return Idle
	case s.count < homography.Correspondences:
		return Collecting
	}

	return Solved
}

// Points returns collected corners
func (s *Session) Points() []r2.Vec {
	points := make([]r2.Vec, s.count)
	copy(points, s.points[:s.count])

	return points
}

// Target returns the calibration target
func (s *Session) Target() Rect {
	return s.target
}

// Engine returns the engine the session solves into
func (s *Session) Engine() *homography.Engine {
	return s.engine
}

// SubmitPoint appends image corner p.
// Submitting the 4th corner solves the transform and moves the session to Solved
// whether or not the solve succeeds; the solve error is returned.
// It returns ErrSessionComplete if the session is already Solved.
func (s *Session) SubmitPoint(p r2.Vec) error {
	if s.State() == Solved {
		return ErrSessionComplete
	}

	s.points[s.count] = p
	s.count++

	s.log.WithFields(logrus.Fields{
		"corner": s.count - 1,
		"x":      p.X,
		"y":      p.Y,
	}).Debug("calibration corner submitted")

	if s.count == homography.Correspondences {
		return s.Solve()
	}

	return nil
}

// Reset discards collected corners and returns the session to Idle.
// The current transform stays usable.
func (s *Session) Reset() {
	s.count = 0
	s.points = [homography.Correspondences]r2.Vec{}

	s.log.Debug("calibration corners reset")
}

// Solve maps collected corners onto the target corners and solves the transform.
// It returns ErrIncomplete if fewer than 4 corners were collected and
// homography.ErrDegenerateInput if the corners can't determine a transform.
// A failed solve keeps the previous transform.
func (s *Session) Solve() error {
	if s.count != homography.Correspondences {
		return fmt.Errorf("%w: %d of %d corners", ErrIncomplete, s.count, homography.Correspondences)
	}

	if _, err := s.engine.SolveFrom4Points(s.points[:], s.target.Corners()); err != nil {
		s.log.WithField("error", err).Warn("calibration solve failed")
		return err
	}

	solved := s.points
	s.solved = &solved
	s.solvedTarget = s.target

	s.log.WithFields(logrus.Fields{
		"width":  s.target.Width,
		"height": s.target.Height,
	}).Info("calibration solved")

	return nil
}

// IsReady returns true if the engine holds a valid transform
func (s *Session) IsReady() bool {
	return s.engine.IsValid()
}

// Map maps image point p into the plane using the current transform
func (s *Session) Map(p r2.Vec) r2.Vec {
	return s.engine.Map(p)
}

// TryMap maps image point p into the plane using the current transform.
// It returns error if the transform is invalid or p maps towards infinity.
func (s *Session) TryMap(p r2.Vec) (r2.Vec, error) {
	return s.engine.TryMap(p)
}

// Load restores corners and target from the repository and solves the transform.
// It returns false if the repository holds no calibration.
// If the stored corners do not solve, the session is left unchanged.
func (s *Session) Load(ctx context.Context) (bool, error) {
	if s.repo == nil {
		return false, ErrNoRepository
	}

	rec, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.Debug("no stored calibration")
			return false, nil
		}
		return false, fmt.Errorf("failed to load calibration: %w", err)
	}

	if err := rec.Validate(); err != nil {
		return false, fmt.Errorf("invalid stored calibration: %w", err)
	}

	// the session only adopts corners that solve
	if _, err := homography.Solve(rec.Corners[:], rec.Target.Corners()); err != nil {
		return false, fmt.Errorf("failed to solve stored calibration: %w", err)
	}

	s.target = rec.Target
	s.points = rec.Corners
	s.count = homography.Correspondences

	if err := s.Solve(); err != nil {
		return false, fmt.Errorf("failed to solve stored calibration: %w", err)
	}

	s.log.WithField("saved_at", rec.SavedAt).Info("calibration loaded")

	return true, nil
}

// Forget deletes the stored calibration.
// The current transform and collected corners are kept.
func (s *Session) Forget(ctx context.Context) error {
	if s.repo == nil {
		return ErrNoRepository
	}

	if err := s.repo.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete calibration: %w", err)
	}

	s.log.Info("stored calibration deleted")

	return nil
}

// Save persists corners and target of the last successful solve.
// It returns ErrNotReady if no solve has succeeded in this session.
func (s *Session) Save(ctx context.Context) error {
	if s.repo == nil {
		return ErrNoRepository
	}

	if s.solved == nil {
		return ErrNotReady
	}

	rec := &Record{
		Corners: *s.solved,
		Target:  s.solvedTarget,
		SavedAt: time.Now().UTC(),
	}

	if err := s.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save calibration: %w", err)
	}

	s.log.Info("calibration saved")

	return nil
}
