package calibration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gonum.org/v1/gonum/spatial/r2"
)

// ErrNotFound is returned by repositories which hold no calibration
var ErrNotFound = errors.New("calibration not found")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is the persisted calibration: enough to re-solve the transform on load
type Record struct {
	// Corners are image corners in calibration order
	Corners [4]r2.Vec
	// Target is the physical calibration target
	Target Rect
	// SavedAt is the time the record was saved
	SavedAt time.Time
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type record struct {
	Corners [4]point  `json:"corners"`
	Target  Rect      `json:"target"`
	SavedAt time.Time `json:"saved_at"`
}

// MarshalJSON implements json.Marshaler
func (r Record) MarshalJSON() ([]byte, error) {
	rec := record{Target: r.Target, SavedAt: r.SavedAt}
	for i, c := range r.Corners {
		rec.Corners[i] = point{X: c.X, Y: c.Y}
	}

	return json.Marshal(rec)
}

// UnmarshalJSON implements json.Unmarshaler
func (r *Record) UnmarshalJSON(data []byte) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	for i, c := range rec.Corners {
		r.Corners[i] = r2.Vec{X: c.X, Y: c.Y}
	}
	r.Target = rec.Target
	r.SavedAt = rec.SavedAt

	return nil
}

// Validate returns error if the record target is invalid
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("invalid record: %v", r)
	}

	return r.Target.Validate()
}

// Repository persists calibration records
type Repository interface {
	// Load returns stored record or ErrNotFound
	Load(ctx context.Context) (*Record, error)
	// Save stores record replacing any previous one
	Save(ctx context.Context, r *Record) error
	// Delete removes the stored record; deleting nothing is not an error
	Delete(ctx context.Context) error
}

// MemoryRepository is an in-memory Repository
type MemoryRepository struct {
	mu  sync.Mutex
	rec *Record
}

// NewMemoryRepository creates new empty MemoryRepository and returns it
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Load returns a copy of the stored record or ErrNotFound
func (m *MemoryRepository) Load(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rec == nil {
		return nil, ErrNotFound
	}
	rec := *m.rec

	return &rec, nil
}

// Save stores a copy of r
func (m *MemoryRepository) Save(ctx context.Context, r *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := *r
	m.rec = &rec

	return nil
}

// Delete drops the stored record
func (m *MemoryRepository) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rec = nil

	return nil
}
