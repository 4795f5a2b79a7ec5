package distance

import (
	"context"
	"testing"

	"dispatchsim/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFlatEuclideanOracle_ZeroDistance(t *testing.T) {
	oracle := NewFlatEuclideanOracle(30.0)
	loc := models.Location{Latitude: 34.05, Longitude: -118.25}

	miles, minutes := oracle.Query(context.Background(), loc, loc)

	assert.Zero(t, miles)
	assert.Zero(t, minutes)
}

func TestFlatEuclideanOracle_ScalesWithSpeed(t *testing.T) {
	from := models.Location{Latitude: 34.0, Longitude: -118.0}
	to := models.Location{Latitude: 34.1, Longitude: -118.0}

	slow := NewFlatEuclideanOracle(15.0)
	fast := NewFlatEuclideanOracle(60.0)

	slowMiles, slowMinutes := slow.Query(context.Background(), from, to)
	fastMiles, fastMinutes := fast.Query(context.Background(), from, to)

	assert.Equal(t, slowMiles, fastMiles)
	assert.Greater(t, slowMinutes, fastMinutes)
}

func TestFlatEuclideanOracle_Symmetric(t *testing.T) {
	oracle := NewFlatEuclideanOracle(30.0)
	a := models.Location{Latitude: 34.05, Longitude: -118.25}
	b := models.Location{Latitude: 34.10, Longitude: -118.30}

	milesAB, minutesAB := oracle.Query(context.Background(), a, b)
	milesBA, minutesBA := oracle.Query(context.Background(), b, a)

	assert.InDelta(t, milesAB, milesBA, 1e-9)
	assert.InDelta(t, minutesAB, minutesBA, 1e-9)
}

func TestFlatEuclideanOracle_KnownDegreeDistance(t *testing.T) {
	oracle := NewFlatEuclideanOracle(30.0)
	a := models.Location{Latitude: 34.0, Longitude: -118.0}
	b := models.Location{Latitude: 35.0, Longitude: -118.0}

	miles, _ := oracle.Query(context.Background(), a, b)

	assert.InDelta(t, 69.0, miles, 1e-9)
}

func TestCachingOracle_NilRedisFallsBackToLocal(t *testing.T) {
	underlying := NewFlatEuclideanOracle(30.0)
	cached := NewCachingOracle(underlying, nil, 0, nil)

	a := models.Location{Latitude: 34.05, Longitude: -118.25}
	b := models.Location{Latitude: 34.10, Longitude: -118.30}

	miles1, minutes1 := cached.Query(context.Background(), a, b)
	miles2, minutes2 := cached.Query(context.Background(), a, b)

	assert.Equal(t, miles1, miles2)
	assert.Equal(t, minutes1, minutes2)
}

func TestCachingOracle_RoundedKeysCollide(t *testing.T) {
	a := models.Location{Latitude: 34.050001, Longitude: -118.250001}
	b := models.Location{Latitude: 34.050002, Longitude: -118.250002}

	assert.Equal(t, cacheKey(a, models.Location{}), cacheKey(b, models.Location{}))
}
