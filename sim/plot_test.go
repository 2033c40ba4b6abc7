package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewTrajectoryPlot(t *testing.T) {
	assert := assert.New(t)

	truth := mat.NewDense(3, 2, []float64{0, 0, 1, 1, 2, 2})
	measured := mat.NewDense(3, 2, nil)
	filtered := mat.NewDense(3, 2, nil)

	plt, err := NewTrajectoryPlot(truth, measured, filtered)
	assert.NotNil(plt)
	assert.NoError(err)

	plt, err = NewTrajectoryPlot(nil, nil, nil)
	assert.Nil(plt)
	assert.Error(err)

	plt, err = NewTrajectoryPlot(truth, mat.NewDense(3, 1, nil), filtered)
	assert.Nil(plt)
	assert.Error(err)
}

func TestNewSeriesPlot(t *testing.T) {
	assert := assert.New(t)

	times := []float64{0, 0.1, 0.2}

	plt, err := NewSeriesPlot("Speed", "v", times, Series{Name: "raw", Values: []float64{0, 1, 2}}, Series{Name: "smooth", Values: []float64{0, 0.5, 1}})
	assert.NotNil(plt)
	assert.NoError(err)

	plt, err = NewSeriesPlot("Speed", "v", times)
	assert.Nil(plt)
	assert.Error(err)

	plt, err = NewSeriesPlot("Speed", "v", times, Series{Name: "short", Values: []float64{1}})
	assert.Nil(plt)
	assert.Error(err)
}
