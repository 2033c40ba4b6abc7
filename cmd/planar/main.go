package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/milosgajdos/go-planar"
	"github.com/milosgajdos/go-planar/calibration"
	"github.com/milosgajdos/go-planar/config"
	"github.com/milosgajdos/go-planar/homography"
	"github.com/milosgajdos/go-planar/kinematic"
	"github.com/milosgajdos/go-planar/log"
	"github.com/milosgajdos/go-planar/noise"
	"github.com/milosgajdos/go-planar/observation"
	"github.com/milosgajdos/go-planar/sim"
	"github.com/milosgajdos/go-planar/tracker"
	"github.com/milosgajdos/matrix"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot/vg"
)

// defaultCorners is a camera looking down at the target at an angle
const defaultCorners = "100,400,540,420,500,80,140,60"

var (
	cfgPath  string
	corners  string
	steps    int
	rate     float64
	jitter   float64
	drop     float64
	sigma    float64
	seed     uint64
	prefix   string
	realtime bool
	forget   bool
)

func init() {
	flag.StringVar(&cfgPath, "config", "", "Path to JSON config file")
	flag.StringVar(&corners, "corners", "", "Image corners x0,y0,...,x3,y3 to calibrate and save")
	flag.IntVar(&steps, "steps", 300, "Number of simulated detections")
	flag.Float64Var(&rate, "rate", 30, "Detection rate in Hz")
	flag.Float64Var(&jitter, "jitter", 0.2, "Detection time jitter as a fraction of the detection period")
	flag.Float64Var(&drop, "drop", 0, "Probability of a lost detection")
	flag.Float64Var(&sigma, "noise", 1.5, "Detection noise standard deviation in pixels")
	flag.Uint64Var(&seed, "seed", 1, "Simulation seed")
	flag.StringVar(&prefix, "plot", "", "Plot file prefix, no plots when empty")
	flag.BoolVar(&realtime, "realtime", false, "Replay detections in real time")
	flag.BoolVar(&forget, "forget", false, "Delete the stored calibration before calibrating")
}

// result is a single tracked step
type result struct {
	time     float64
	truth    r2.Vec
	measured r2.Vec
	est      planar.Estimate
}

func main() {
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, cfg, logger)
	stop()

	if err != nil {
		logger.WithError(err).Fatal("planar failed")
	}
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	repo, closeRepo, err := openRepository(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open calibration store: %w", err)
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.WithError(err).Warn("failed to close calibration store")
		}
	}()

	session, err := calibration.NewSession(homography.NewEngine(), cfg.Target,
		calibration.WithRepository(repo),
		calibration.WithLogger(logger))
	if err != nil {
		return err
	}

	if err := calibrate(ctx, session, logger); err != nil {
		return err
	}

	h := session.Engine().Homography()
	fmt.Printf("Homography:\n%v\n", matrix.Format(h.Matrix()))

	samples, err := simulate(cfg, h)
	if err != nil {
		return err
	}

	filter, err := kinematic.New(dim(cfg), cfg.Filter)
	if err != nil {
		return err
	}

	opts := []tracker.Option{
		tracker.WithFrame(cfg.Camera),
		tracker.WithLogger(logger),
	}
	placement := tracker.DefaultPlacement()
	if cfg.Tracker.Placement {
		opts = append(opts, tracker.WithPlacement(placement))
	}

	slot := observation.NewSlot()
	tr, err := tracker.New(slot, session, filter, opts...)
	if err != nil {
		return err
	}

	tick := 1 / cfg.Tracker.TickRate

	var results []result
	if realtime {
		results, err = trackRealtime(ctx, logger, tr, slot, samples, tick)
	} else {
		results, err = trackVirtual(tr, slot, samples, tick)
	}
	if err != nil {
		return err
	}

	// measured plane positions for the plots and statistics
	for i := range results {
		results[i].measured = session.Map(cfg.Camera.ToPixel(results[i].measured))
	}

	report(logger, results, cfg.Tracker.Placement, placement)

	if prefix != "" {
		return plotResults(results, cfg.Tracker.Placement, placement)
	}

	return nil
}

// calibrate calibrates session from the corners flag or loads the stored calibration.
// The forget flag deletes the stored calibration first.
func calibrate(ctx context.Context, session *calibration.Session, logger *logrus.Logger) error {
	if forget {
		if err := session.Forget(ctx); err != nil {
			return err
		}
	}

	if corners == "" {
		ok, err := session.Load(ctx)
		if err != nil {
			return fmt.Errorf("load calibration: %w", err)
		}
		if ok {
			return nil
		}
		logger.WithField("corners", defaultCorners).Warn("no stored calibration, using default corners")
	}

	src := corners
	if src == "" {
		src = defaultCorners
	}

	pts, err := parseCorners(src)
	if err != nil {
		return err
	}

	for _, p := range pts {
		if err := session.SubmitPoint(p); err != nil {
			return fmt.Errorf("calibrate: %w", err)
		}
	}

	if err := session.Save(ctx); err != nil {
		return fmt.Errorf("save calibration: %w", err)
	}

	return nil
}

func dim(cfg config.Config) int {
	if cfg.Tracker.Placement {
		return 3
	}

	return 2
}

// simulate generates detections of a point circling the target centre.
func simulate(cfg config.Config, h homography.Homography) ([]sim.Sample, error) {
	var n planar.Noise
	var err error
	if sigma > 0 {
		n, err = noise.NewIsotropic(2, sigma, noise.WithSeed(seed))
	} else {
		n, err = noise.NewZero(2)
	}
	if err != nil {
		return nil, err
	}

	camera, err := sim.NewCamera(h, sim.WithNoise(n), sim.WithNormalized(cfg.Camera))
	if err != nil {
		return nil, err
	}

	center := r2.Vec{X: cfg.Target.Width / 2, Y: cfg.Target.Height / 2}
	radius := 0.3 * math.Min(cfg.Target.Width, cfg.Target.Height)

	s := sim.Scenario{
		Trajectory: sim.Circle(center, radius, 4),
		Camera:     camera,
		Rate:       rate,
		Jitter:     jitter,
		Drop:       drop,
		Steps:      steps,
		Seed:       seed,
	}

	return s.Samples()
}

// trackVirtual runs the tracker on a simulated clock.
func trackVirtual(tr *tracker.Tracker, slot *observation.Slot, samples []sim.Sample, tick float64) ([]result, error) {
	bySample := index(samples)

	var results []result
	next := 0
	for now := 0.0; next < len(samples); {
		now += tick

		// detections arriving within the tick; the latest one wins
		for next < len(samples) && samples[next].Time <= now {
			slot.Offer(samples[next].Observation)
			next++
		}

		est, ok, err := tr.Tick(tick)
		if err != nil {
			return nil, err
		}
		if ok {
			results = append(results, newResult(now, bySample[tr.Last().ID], est))
		}
	}

	return results, nil
}

// trackRealtime replays detections in real time into a tracker driven by a wall clock ticker.
func trackRealtime(ctx context.Context, logger logrus.FieldLogger, tr *tracker.Tracker, slot *observation.Slot, samples []sim.Sample, tick float64) ([]result, error) {
	bySample := index(samples)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan observation.Observation)
	go func() {
		if err := sim.Replay(ctx, samples, ch); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Warn("detection replay stopped")
		}
	}()

	done := make(chan error, 1)
	go func() { done <- observation.Pump(ctx, ch, slot) }()

	ticker := time.NewTicker(time.Duration(tick * float64(time.Second)))
	defer ticker.Stop()

	start := time.Now()
	last := start

	var results []result
	step := func(now time.Time) error {
		est, ok, err := tr.Tick(now.Sub(last).Seconds())
		last = now
		if err != nil {
			return err
		}
		if ok {
			results = append(results, newResult(now.Sub(start).Seconds(), bySample[tr.Last().ID], est))
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				return nil, err
			}
			// consume the final detection
			if err := step(time.Now()); err != nil {
				return nil, err
			}
			return results, nil
		case now := <-ticker.C:
			if err := step(now); err != nil {
				return nil, err
			}
		}
	}
}

func index(samples []sim.Sample) map[uuid.UUID]sim.Sample {
	m := make(map[uuid.UUID]sim.Sample, len(samples))
	for _, s := range samples {
		m[s.Observation.ID] = s
	}

	return m
}

func newResult(now float64, s sim.Sample, est planar.Estimate) result {
	return result{
		time:  now,
		truth: s.Truth,
		// normalized detection, mapped into the plane once tracking is done
		measured: s.Observation.Point,
		est:      est,
	}
}

// position returns the estimated plane position
func position(r result, placed bool, p tracker.Placement) r2.Vec {
	pos := r.est.Position()
	if placed {
		return p.Plane(r3.Vec{X: pos.AtVec(0), Y: pos.AtVec(1), Z: pos.AtVec(2)})
	}

	return r2.Vec{X: pos.AtVec(0), Y: pos.AtVec(1)}
}

func report(logger *logrus.Logger, results []result, placed bool, p tracker.Placement) {
	if len(results) == 0 {
		logger.Warn("no tracked detections")
		return
	}

	raw := make([]float64, len(results))
	smooth := make([]float64, len(results))
	speed := make([]float64, len(results))
	for i, r := range results {
		raw[i] = r2.Norm(r2.Sub(r.measured, r.truth))
		smooth[i] = r2.Norm(r2.Sub(position(r, placed, p), r.truth))
		speed[i] = mat.Norm(r.est.Velocity(), 2)
	}

	logger.WithFields(log.Fields{
		"updates":      len(results),
		"raw_error":    rms(raw),
		"smooth_error": rms(smooth),
		"mean_speed":   stat.Mean(speed, nil),
	}).Info("tracking finished")
}

func rms(x []float64) float64 {
	sq := make([]float64, len(x))
	for i, v := range x {
		sq[i] = v * v
	}

	return math.Sqrt(stat.Mean(sq, nil))
}

func plotResults(results []result, placed bool, p tracker.Placement) error {
	n := len(results)
	if n == 0 {
		return fmt.Errorf("nothing to plot")
	}

	truth := mat.NewDense(n, 2, nil)
	measured := mat.NewDense(n, 2, nil)
	filtered := mat.NewDense(n, 2, nil)

	times := make([]float64, n)
	speed := make([]float64, n)
	accel := make([]float64, n)

	for i, r := range results {
		pos := position(r, placed, p)
		truth.SetRow(i, []float64{r.truth.X, r.truth.Y})
		measured.SetRow(i, []float64{r.measured.X, r.measured.Y})
		filtered.SetRow(i, []float64{pos.X, pos.Y})

		times[i] = r.time
		speed[i] = mat.Norm(r.est.Velocity(), 2)
		accel[i] = mat.Norm(r.est.Acceleration(), 2)
	}

	traj, err := sim.NewTrajectoryPlot(truth, measured, filtered)
	if err != nil {
		return fmt.Errorf("failed to make trajectory plot: %w", err)
	}

	name := prefix + "-trajectory.png"
	if err := traj.Save(6*vg.Inch, 6*vg.Inch, name); err != nil {
		return fmt.Errorf("failed to save plot to %s: %w", name, err)
	}

	kin, err := sim.NewSeriesPlot("Kinematics", "magnitude", times,
		sim.Series{Name: "speed", Values: speed},
		sim.Series{Name: "acceleration", Values: accel})
	if err != nil {
		return fmt.Errorf("failed to make speed plot: %w", err)
	}

	name = prefix + "-speed.png"
	if err := kin.Save(8*vg.Inch, 4*vg.Inch, name); err != nil {
		return fmt.Errorf("failed to save plot to %s: %w", name, err)
	}

	return nil
}
