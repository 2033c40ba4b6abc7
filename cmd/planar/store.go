package main

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/milosgajdos/go-planar/calibration"
	"github.com/milosgajdos/go-planar/calibration/jsonfile"
	"github.com/milosgajdos/go-planar/calibration/redis"
	"github.com/milosgajdos/go-planar/calibration/sqlite"
	"github.com/milosgajdos/go-planar/config"
	"github.com/milosgajdos/go-planar/homography"
	"gonum.org/v1/gonum/spatial/r2"
)

// openRepository opens the calibration repository selected by c.
// The returned function releases the repository resources.
func openRepository(ctx context.Context, c config.Store) (calibration.Repository, func() error, error) {
	noop := func() error { return nil }

	switch c.Driver {
	case config.DriverMemory:
		return calibration.NewMemoryRepository(), noop, nil
	case config.DriverJSON:
		r, err := jsonfile.New(c.Path)
		if err != nil {
			return nil, nil, err
		}
		return r, noop, nil
	case config.DriverSQLite:
		r, err := sqlite.Open(c.Path, c.Name)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	case config.DriverRedis:
		r, err := redis.Dial(ctx, c.Redis.Address, c.Redis.Password, c.Redis.DB, c.Redis.Key)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	}

	return nil, nil, fmt.Errorf("unsupported store driver: %q", c.Driver)
}

// parseCorners parses four image corners given as "x0,y0,x1,y1,x2,y2,x3,y3"
func parseCorners(s string) ([]r2.Vec, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 2*homography.Correspondences {
		return nil, fmt.Errorf("expected %d coordinates, got %d", 2*homography.Correspondences, len(fields))
	}

	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q: %w", f, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid coordinate %q: not finite", f)
		}
		vals[i] = v
	}

	corners := make([]r2.Vec, homography.Correspondences)
	for i := range corners {
		corners[i] = r2.Vec{X: vals[2*i], Y: vals[2*i+1]}
	}

	return corners, nil
}
