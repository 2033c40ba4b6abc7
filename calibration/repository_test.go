package calibration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestRectCorners(t *testing.T) {
	assert := assert.New(t)

	want := []r2.Vec{{X: 0, Y: 0}, {X: 0.6, Y: 0}, {X: 0.6, Y: 0.4}, {X: 0, Y: 0.4}}
	assert.Equal(want, table.Corners())
	assert.NoError(table.Validate())
	assert.Error(Rect{Width: -1, Height: 1}.Validate())
	assert.Error(Rect{Width: 1, Height: 0}.Validate())
}

func TestRecordJSON(t *testing.T) {
	assert := assert.New(t)

	rec := Record{
		Corners: [4]r2.Vec{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}, {X: 7, Y: 8}},
		Target:  table,
		SavedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(rec)
	assert.NoError(err)
	assert.Contains(string(data), `"corners":[{"x":1,"y":2}`)
	assert.Contains(string(data), `"target":{"width":0.6,"height":0.4}`)

	var got Record
	assert.NoError(json.Unmarshal(data, &got))
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	assert.Error(json.Unmarshal([]byte(`{"corners": "nope"}`), &got))
}

func TestMemoryRepository(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	repo := NewMemoryRepository()
	rec, err := repo.Load(ctx)
	assert.Nil(rec)
	assert.True(errors.Is(err, ErrNotFound))

	in := &Record{Corners: [4]r2.Vec{{X: 1, Y: 1}}, Target: table}
	assert.NoError(repo.Save(ctx, in))

	// stored record is a copy
	in.Target.Width = 10
	rec, err = repo.Load(ctx)
	assert.NoError(err)
	assert.Equal(table, rec.Target)

	assert.Error(repo.Save(ctx, &Record{}))
	assert.Error(repo.Save(ctx, nil))

	assert.NoError(repo.Delete(ctx))
	_, err = repo.Load(ctx)
	assert.True(errors.Is(err, ErrNotFound))
	assert.NoError(repo.Delete(ctx))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = repo.Load(cctx)
	assert.True(errors.Is(err, context.Canceled))
}
