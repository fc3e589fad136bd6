package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataSetReferenceAndRaw(t *testing.T) {
	// GIVEN
	data := NewData()

	// WHEN
	data.SetReference("od_0", "room_temp", 25.0)
	data.SetRaw("od_0", "room_temp", 0.42)

	// THEN
	points := data.CompletePoints()
	assert.Len(t, points, 1)
	assert.Equal(t, "od_0", points[0].SensorId)
	assert.Equal(t, 25.0, *points[0].Reference)
	assert.Equal(t, 0.42, *points[0].Raw)
}

func TestDataOverwriteIsIdempotent(t *testing.T) {
	// GIVEN
	data := NewData()
	data.SetReference("od_0", "room_temp", 25.0)

	// WHEN
	// last write wins
	data.SetReference("od_0", "room_temp", 26.5)

	// THEN
	point := data.Points[PointKey("od_0", "room_temp")]
	assert.Equal(t, 26.5, *point.Reference)
	assert.Len(t, data.Points, 1)
}

func TestDataMutationInvalidatesFit(t *testing.T) {
	// GIVEN
	data := NewData()
	data.SetReference("od_0", "low", 10.0)
	data.SetRaw("od_0", "low", 0.1)
	data.SetReference("od_0", "high", 20.0)
	data.SetRaw("od_0", "high", 0.2)
	_, err := data.TryFit(LinearFit{})
	assert.NoError(t, err)
	assert.NotNil(t, data.FitResult())

	// WHEN
	data.SetRaw("od_0", "low", 0.15)

	// THEN
	assert.Nil(t, data.FitResult())
}

func TestDataTryFitIgnoresIncompletePoints(t *testing.T) {
	// GIVEN
	data := NewData()
	data.SetReference("od_0", "low", 10.0)
	data.SetRaw("od_0", "low", 0.1)
	data.SetReference("od_0", "high", 20.0)
	data.SetRaw("od_0", "high", 0.2)
	// reference without a raw reading
	data.SetReference("od_0", "mid", 15.0)

	// WHEN
	fit, err := data.TryFit(LinearFit{})

	// THEN
	assert.NoError(t, err)
	assert.NotNil(t, fit)
	assert.InDelta(t, 100.0, fit.Parameters[0], 1e-9)
	assert.InDelta(t, 0.0, fit.Parameters[1], 1e-9)
}

func TestDataTryFitInsufficientData(t *testing.T) {
	// GIVEN
	data := NewData()
	data.SetReference("od_0", "low", 10.0)
	data.SetRaw("od_0", "low", 0.1)

	// WHEN
	_, err := data.TryFit(LinearFit{})

	// THEN
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Nil(t, data.FitResult())
}

func TestDataSensorSubset(t *testing.T) {
	// GIVEN
	data := NewData()
	data.SetReference("od_0", "low", 10.0)
	data.SetRaw("od_0", "low", 0.1)
	data.SetReference("od_1", "low", 11.0)

	// WHEN
	subset := data.SensorSubset("od_0")

	// THEN
	assert.Len(t, subset.Points, 1)
	assert.Contains(t, subset.Points, PointKey("od_0", "low"))

	// mutating the subset must not leak into the source
	subset.SetRaw("od_0", "low", 0.9)
	assert.Equal(t, 0.1, *data.Points[PointKey("od_0", "low")].Raw)
}
