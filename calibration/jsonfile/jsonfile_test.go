package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/milosgajdos/go-planar/calibration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func testRecord() *calibration.Record {
	return &calibration.Record{
		Corners: [4]r2.Vec{{X: 0, Y: 480}, {X: 640, Y: 480}, {X: 640, Y: 0}, {X: 0, Y: 0}},
		Target:  calibration.Rect{Width: 0.6, Height: 0.4},
		SavedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	r, err := New("calib.json")
	assert.NotNil(r)
	assert.NoError(err)
	assert.Equal("calib.json", r.Path())

	r, err = New("calib.yaml")
	assert.Nil(r)
	assert.Error(err)
}

func TestSaveLoad(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "nested", "calibration.json")
	r, err := New(path)
	require.NoError(t, err)

	rec, err := r.Load(ctx)
	assert.Nil(rec)
	assert.True(errors.Is(err, calibration.ErrNotFound))

	want := testRecord()
	assert.NoError(r.Save(ctx, want))

	got, err := r.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	// overwrite
	want.Target.Width = 1.2
	assert.NoError(r.Save(ctx, want))
	got, err = r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(1.2, got.Target.Width)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(entries, 1)

	assert.NoError(r.Delete(ctx))
	_, err = r.Load(ctx)
	assert.True(errors.Is(err, calibration.ErrNotFound))
	_, err = os.Stat(path)
	assert.True(errors.Is(err, os.ErrNotExist))

	// deleting a missing file is fine
	assert.NoError(r.Delete(ctx))
}

func TestLoadCorrupt(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "calibration.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	r, err := New(path)
	require.NoError(t, err)

	rec, err := r.Load(context.Background())
	assert.Nil(rec)
	assert.Error(err)
	assert.False(errors.Is(err, calibration.ErrNotFound))
}

func TestSaveInvalid(t *testing.T) {
	assert := assert.New(t)

	r, err := New(filepath.Join(t.TempDir(), "calibration.json"))
	require.NoError(t, err)

	assert.Error(r.Save(context.Background(), &calibration.Record{}))
	assert.Error(r.Save(context.Background(), nil))
}
