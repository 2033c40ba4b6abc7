// Package sqlite stores calibration records in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/milosgajdos/go-planar/calibration"
	"gonum.org/v1/gonum/spatial/r2"

	_ "modernc.org/sqlite"
)

// DefaultProfile is the profile name used when none is given
const DefaultProfile = "default"

const schema = `
CREATE TABLE IF NOT EXISTS calibrations (
	calibration_id TEXT PRIMARY KEY,
	profile        TEXT NOT NULL UNIQUE,
	width          REAL NOT NULL,
	height         REAL NOT NULL,
	x0 REAL NOT NULL, y0 REAL NOT NULL,
	x1 REAL NOT NULL, y1 REAL NOT NULL,
	x2 REAL NOT NULL, y2 REAL NOT NULL,
	x3 REAL NOT NULL, y3 REAL NOT NULL,
	saved_at_ns    INTEGER NOT NULL
)`

// Repository is a SQLite backed calibration.Repository.
// Each profile holds at most one calibration.
type Repository struct {
	db      *sql.DB
	profile string
}

// Open opens SQLite database at path and returns a Repository for profile.
func Open(path, profile string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open calibration db: %w", err)
	}

	r, err := New(db, profile)
	if err != nil {
		db.Close()
		return nil, err
	}

	return r, nil
}

// New creates the calibration schema in db and returns a Repository for profile.
func New(db *sql.DB, profile string) (*Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("invalid database: %v", db)
	}

	if profile == "" {
		profile = DefaultProfile
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create calibration schema: %w", err)
	}

	return &Repository{db: db, profile: profile}, nil
}

// Profile returns the repository profile
func (r *Repository) Profile() string {
	return r.profile
}

// Close closes the underlying database
func (r *Repository) Close() error {
	return r.db.Close()
}

// Load returns the profile calibration or calibration.ErrNotFound
func (r *Repository) Load(ctx context.Context) (*calibration.Record, error) {
	query := `
		SELECT width, height, x0, y0, x1, y1, x2, y2, x3, y3, saved_at_ns
		FROM calibrations
		WHERE profile = ?
	`

	var (
		rec     calibration.Record
		c       [4]r2.Vec
		savedNs int64
	)

	err := r.db.QueryRowContext(ctx, query, r.profile).Scan(
		&rec.Target.Width, &rec.Target.Height,
		&c[0].X, &c[0].Y,
		&c[1].X, &c[1].Y,
		&c[2].X, &c[2].Y,
		&c[3].X, &c[3].Y,
		&savedNs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, calibration.ErrNotFound
		}
		return nil, fmt.Errorf("select calibration: %w", err)
	}

	rec.Corners = c
	rec.SavedAt = time.Unix(0, savedNs).UTC()

	return &rec, nil
}

// Save upserts rec as the profile calibration
func (r *Repository) Save(ctx context.Context, rec *calibration.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	savedAt := rec.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	query := `
		INSERT INTO calibrations (
			calibration_id, profile, width, height,
			x0, y0, x1, y1, x2, y2, x3, y3, saved_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET
			width = excluded.width,
			height = excluded.height,
			x0 = excluded.x0, y0 = excluded.y0,
			x1 = excluded.x1, y1 = excluded.y1,
			x2 = excluded.x2, y2 = excluded.y2,
			x3 = excluded.x3, y3 = excluded.y3,
			saved_at_ns = excluded.saved_at_ns
	`

	c := rec.Corners
	_, err := r.db.ExecContext(ctx, query,
		uuid.New().String(),
		r.profile,
		rec.Target.Width,
		rec.Target.Height,
		c[0].X, c[0].Y,
		c[1].X, c[1].Y,
		c[2].X, c[2].Y,
		c[3].X, c[3].Y,
		savedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert calibration: %w", err)
	}

	return nil
}

// Delete removes the profile calibration
func (r *Repository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM calibrations WHERE profile = ?`, r.profile); err != nil {
		return fmt.Errorf("delete calibration: %w", err)
	}

	return nil
}
