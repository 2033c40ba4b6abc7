package tracker

import (
	"math"
	"os"
	"testing"

	"github.com/milosgajdos/go-planar/calibration"
	"github.com/milosgajdos/go-planar/homography"
	"github.com/milosgajdos/go-planar/kinematic"
	"github.com/milosgajdos/go-planar/landmark"
	"github.com/milosgajdos/go-planar/observation"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	corners []r2.Vec
	table   calibration.Rect
	frame   landmark.Frame
)

func setup() {
	corners = []r2.Vec{{X: 0, Y: 480}, {X: 640, Y: 480}, {X: 640, Y: 0}, {X: 0, Y: 0}}
	table = calibration.Rect{Width: 0.6, Height: 0.4}
	frame = landmark.Frame{Width: 640, Height: 480}
}

func TestMain(m *testing.M) {
	setup()
	os.Exit(m.Run())
}

func newSession(t *testing.T, calibrated bool) *calibration.Session {
	s, err := calibration.NewSession(homography.NewEngine(), table)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if calibrated {
		for _, c := range corners {
			if err := s.SubmitPoint(c); err != nil {
				t.Fatalf("failed to calibrate: %v", err)
			}
		}
	}

	return s
}

func newFilter(t *testing.T, dim int, c kinematic.Config) *kinematic.Filter {
	f, err := kinematic.New(dim, c)
	if err != nil {
		t.Fatalf("failed to create filter: %v", err)
	}

	return f
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	slot := observation.NewSlot()
	s := newSession(t, true)
	f := newFilter(t, 2, kinematic.DefaultConfig())

	tr, err := New(slot, s, f)
	assert.NoError(err)
	assert.Equal(2, tr.Dim())

	tr, err = New(nil, s, f)
	assert.Error(err)
	assert.Nil(tr)

	tr, err = New(slot, s, f, WithFrame(landmark.Frame{}))
	assert.Error(err)
	assert.Nil(tr)

	tr, err = New(slot, s, f, WithPlacement(Placement{AxisX: r3.Vec{X: 1}, AxisY: r3.Vec{X: 2}}))
	assert.ErrorIs(err, ErrInvalidPlacement)
	assert.Nil(tr)
}

func TestTickNoObservation(t *testing.T) {
	assert := assert.New(t)

	tr, err := New(observation.NewSlot(), newSession(t, true), newFilter(t, 2, kinematic.DefaultConfig()))
	assert.NoError(err)

	est, ok, err := tr.Tick(0.01)
	assert.NoError(err)
	assert.False(ok)
	assert.Nil(est)
}

func TestTickNotReady(t *testing.T) {
	assert := assert.New(t)

	slot := observation.NewSlot()
	f := newFilter(t, 2, kinematic.DefaultConfig())
	tr, err := New(slot, newSession(t, false), f)
	assert.NoError(err)

	slot.Offer(observation.New(r2.Vec{X: 320, Y: 240}, false))
	_, ok, err := tr.Tick(0.01)
	assert.NoError(err)
	assert.False(ok)
	assert.False(f.Initialized())
}

func TestTickMapsObservation(t *testing.T) {
	assert := assert.New(t)

	slot := observation.NewSlot()
	tr, err := New(slot, newSession(t, true), newFilter(t, 2, kinematic.DefaultConfig()))
	assert.NoError(err)

	o := observation.New(r2.Vec{X: 320, Y: 240}, false)
	slot.Offer(o)
	est, ok, err := tr.Tick(0.01)
	assert.NoError(err)
	assert.True(ok)
	assert.Equal(o.ID, tr.Last().ID)

	// the first update initializes the filter at the measurement
	pos := est.Position()
	assert.InDelta(0.3, pos.AtVec(0), 1e-9)
	assert.InDelta(0.2, pos.AtVec(1), 1e-9)
	assert.Equal(0.0, mat.Norm(est.Velocity(), 2))

	// observation was consumed
	_, ok, err = tr.Tick(0.01)
	assert.NoError(err)
	assert.False(ok)
}

func TestTickNormalized(t *testing.T) {
	assert := assert.New(t)

	slot := observation.NewSlot()
	s := newSession(t, true)

	tr, err := New(slot, s, newFilter(t, 2, kinematic.DefaultConfig()))
	assert.NoError(err)

	slot.Offer(observation.New(r2.Vec{X: 0.5, Y: 0.5}, true))
	_, ok, err := tr.Tick(0.01)
	assert.ErrorIs(err, ErrNoFrame)
	assert.False(ok)

	tr, err = New(slot, s, newFilter(t, 2, kinematic.DefaultConfig()), WithFrame(frame))
	assert.NoError(err)

	// normalized (1,1) is the top right pixel corner
	slot.Offer(observation.New(r2.Vec{X: 1, Y: 1}, true))
	est, ok, err := tr.Tick(0.01)
	assert.NoError(err)
	assert.True(ok)
	assert.InDelta(0.6, est.Position().AtVec(0), 1e-9)
	assert.InDelta(0.4, est.Position().AtVec(1), 1e-9)
}

func TestTickPlacement(t *testing.T) {
	assert := assert.New(t)

	slot := observation.NewSlot()
	p := DefaultPlacement()
	p.Origin = r3.Vec{X: 1, Y: 0.75, Z: -1}

	tr, err := New(slot, newSession(t, true), newFilter(t, 3, kinematic.DefaultConfig()), WithPlacement(p))
	assert.NoError(err)
	assert.Equal(3, tr.Dim())

	slot.Offer(observation.New(r2.Vec{X: 320, Y: 240}, false))
	est, ok, err := tr.Tick(0.01)
	assert.NoError(err)
	assert.True(ok)

	pos := est.Position()
	assert.InDelta(1.3, pos.AtVec(0), 1e-9)
	assert.InDelta(0.75, pos.AtVec(1), 1e-9)
	assert.InDelta(-0.8, pos.AtVec(2), 1e-9)
}

func TestTickDimMismatch(t *testing.T) {
	assert := assert.New(t)

	slot := observation.NewSlot()
	tr, err := New(slot, newSession(t, true), newFilter(t, 3, kinematic.DefaultConfig()))
	assert.NoError(err)

	slot.Offer(observation.New(r2.Vec{X: 320, Y: 240}, false))
	_, ok, err := tr.Tick(0.01)
	assert.Error(err)
	assert.False(ok)
}

func TestTickElapsed(t *testing.T) {
	assert := assert.New(t)

	slot := observation.NewSlot()
	c := kinematic.Config{MaxDt: 0.1}
	tr, err := New(slot, newSession(t, true), newFilter(t, 2, c))
	assert.NoError(err)

	slot.Offer(observation.New(r2.Vec{X: 0, Y: 480}, false))
	_, ok, err := tr.Tick(0.01)
	assert.NoError(err)
	assert.True(ok)

	// two empty ticks widen the next update interval to 0.03s
	for i := 0; i < 2; i++ {
		_, ok, err = tr.Tick(0.01)
		assert.NoError(err)
		assert.False(ok)
	}

	slot.Offer(observation.New(r2.Vec{X: 640, Y: 480}, false))
	est, ok, err := tr.Tick(0.01)
	assert.NoError(err)
	assert.True(ok)
	assert.InDelta(0.6, est.Position().AtVec(0), 1e-9)
	assert.InDelta(0.6/0.03, est.Velocity().AtVec(0), 1e-6)

	// a long stall resets the filter
	for i := 0; i < 20; i++ {
		_, _, err = tr.Tick(0.01)
		assert.NoError(err)
	}

	slot.Offer(observation.New(r2.Vec{X: 0, Y: 480}, false))
	est, ok, err = tr.Tick(0.01)
	assert.NoError(err)
	assert.True(ok)
	assert.InDelta(0.0, est.Position().AtVec(0), 1e-9)
	assert.Equal(0.0, mat.Norm(est.Velocity(), 2))
}

func TestPlacementWorld(t *testing.T) {
	assert := assert.New(t)

	p := DefaultPlacement()
	assert.NoError(p.Validate())
	assert.Equal(r3.Vec{X: 0.6, Y: 0, Z: 0.4}, p.World(r2.Vec{X: 0.6, Y: 0.4}))
}

func TestPlacementPlane(t *testing.T) {
	assert := assert.New(t)

	p := Placement{
		Origin: r3.Vec{X: 1, Y: 2, Z: 3},
		AxisX:  r3.Vec{X: 2, Y: 0, Z: 0},
		AxisY:  r3.Vec{X: 1, Y: 1, Z: 0},
	}
	assert.NoError(p.Validate())

	v := r2.Vec{X: 0.25, Y: -0.5}
	back := p.Plane(p.World(v))
	assert.InDelta(v.X, back.X, 1e-12)
	assert.InDelta(v.Y, back.Y, 1e-12)
}

func TestTickDegenerateMapping(t *testing.T) {
	assert := assert.New(t)

	// w = 0.001*x + 1 vanishes at x = -1000
	engine := homography.NewEngine()
	s, err := calibration.NewSession(engine, table)
	assert.NoError(err)
	engine.Set(homography.FromCoeffs([8]float64{1, 0, 0, 0, 1, 0, 0.001, 0}))
	assert.True(s.IsReady())

	slot := observation.NewSlot()
	f := newFilter(t, 2, kinematic.Config{MaxDt: 0.1})
	tr, err := New(slot, s, f)
	assert.NoError(err)
	assert.NoError(tr.Reset(mat.NewVecDense(2, []float64{5, 5})))

	slot.Offer(observation.New(r2.Vec{X: -1000, Y: 3}, false))
	est, ok, err := tr.Tick(0.01)
	assert.NoError(err)
	assert.False(ok)
	assert.Nil(est)

	// the filter never saw the point at infinity
	cur := tr.Estimate()
	assert.True(mat.Equal(mat.NewVecDense(2, []float64{5, 5}), cur.Position()))
	assert.Equal(0.0, mat.Norm(cur.Velocity(), 2))
	assert.Equal(0.0, mat.Norm(cur.Acceleration(), 2))

	// the skipped tick still counts towards the next update interval
	slot.Offer(observation.New(r2.Vec{}, false))
	est, ok, err = tr.Tick(0.01)
	assert.NoError(err)
	assert.True(ok)
	assert.InDelta(0.0, est.Position().AtVec(0), 1e-12)
	assert.InDelta(-5/0.02, est.Velocity().AtVec(0), 1e-6)
}

func TestReset(t *testing.T) {
	assert := assert.New(t)

	slot := observation.NewSlot()
	f := newFilter(t, 2, kinematic.DefaultConfig())
	tr, err := New(slot, newSession(t, true), f)
	assert.NoError(err)

	// pending elapsed time is discarded
	_, ok, err := tr.Tick(0.05)
	assert.NoError(err)
	assert.False(ok)

	x := mat.NewVecDense(2, []float64{0.1, 0.2})
	assert.NoError(tr.Reset(x))
	assert.True(f.Initialized())
	assert.True(mat.Equal(x, tr.Estimate().Position()))

	slot.Offer(observation.New(r2.Vec{X: 320, Y: 240}, false))
	est, ok, err := tr.Tick(0.01)
	assert.NoError(err)
	assert.True(ok)
	// a 0.01s step moves a fraction 1-exp(-0.2) of the way to the measurement
	a := 1 - math.Exp(-0.01/0.05)
	assert.InDelta(0.1+a*(0.3-0.1), est.Position().AtVec(0), 1e-9)

	assert.Error(tr.Reset(mat.NewVecDense(3, nil)))
}
