package fleet

import (
	"math/rand/v2"
	"testing"

	"dispatchsim/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testZones() ZoneDistribution {
	return ZoneDistribution{
		1: {Latitude: 34.05, Longitude: -118.25, ZoneID: intPtr(1)},
		2: {Latitude: 34.10, Longitude: -118.30, ZoneID: intPtr(2)},
	}
}

func intPtr(i int) *int { return &i }

func TestState_Initialize_CreatesRequestedVehicleCount(t *testing.T) {
	s := New()
	rng := rand.New(rand.NewPCG(1, 2))

	s.Initialize(10, testZones(), 0.2, nil, rng)

	assert.Len(t, s.All(), 10)
}

func TestState_Initialize_WheelchairRatioIsExact(t *testing.T) {
	s := New()
	rng := rand.New(rand.NewPCG(7, 9))

	s.Initialize(20, testZones(), 0.25, nil, rng)

	count := 0
	for _, v := range s.All() {
		if v.WheelchairAccessible {
			count++
		}
	}
	assert.Equal(t, 5, count)
}

func TestState_Initialize_Deterministic(t *testing.T) {
	s1 := New()
	s1.Initialize(15, testZones(), 0.1, nil, rand.New(rand.NewPCG(42, 42)))

	s2 := New()
	s2.Initialize(15, testZones(), 0.1, nil, rand.New(rand.NewPCG(42, 42)))

	assert.Equal(t, s1.All(), s2.All())
}

func TestState_Available_ExcludesOnTripAndOffline(t *testing.T) {
	s := New()
	s.Initialize(3, testZones(), 0, nil, rand.New(rand.NewPCG(1, 1)))

	ok := s.UpdateStatus("vehicle-0", models.VehicleOnTrip, nil, "req-1")
	require.True(t, ok)

	available := s.Available(AvailableQuery{})
	for _, v := range available {
		assert.NotEqual(t, "vehicle-0", v.VehicleID)
	}
	assert.Len(t, available, 2)
}

func TestState_Available_IncludesEnRouteToPickup(t *testing.T) {
	s := New()
	s.Initialize(2, testZones(), 0, nil, rand.New(rand.NewPCG(1, 1)))
	s.UpdateStatus("vehicle-0", models.VehicleEnRouteToPickup, nil, "req-1")

	available := s.Available(AvailableQuery{})

	assert.Len(t, available, 2)
}

func TestState_Available_WheelchairFilter(t *testing.T) {
	s := New()
	s.Initialize(10, testZones(), 1.0, nil, rand.New(rand.NewPCG(3, 3)))

	available := s.Available(AvailableQuery{WheelchairRequired: true})

	assert.Len(t, available, 10)
	for _, v := range available {
		assert.True(t, v.WheelchairAccessible)
	}
}

func TestState_Available_OrdersByDistanceFromCenter(t *testing.T) {
	s := New()
	s.vehicles = map[string]*models.Vehicle{
		"far":  {VehicleID: "far", Status: models.VehicleIdle, CurrentLocation: models.Location{Latitude: 40, Longitude: -118}},
		"near": {VehicleID: "near", Status: models.VehicleIdle, CurrentLocation: models.Location{Latitude: 34.01, Longitude: -118.01}},
	}
	s.order = []string{"far", "near"}

	center := models.Location{Latitude: 34.0, Longitude: -118.0}
	available := s.Available(AvailableQuery{Center: &center})

	require.Len(t, available, 2)
	assert.Equal(t, "near", available[0].VehicleID)
	assert.Equal(t, "far", available[1].VehicleID)
}

func TestState_Available_RadiusExcludesFarVehicles(t *testing.T) {
	s := New()
	s.vehicles = map[string]*models.Vehicle{
		"far":  {VehicleID: "far", Status: models.VehicleIdle, CurrentLocation: models.Location{Latitude: 40, Longitude: -118}},
		"near": {VehicleID: "near", Status: models.VehicleIdle, CurrentLocation: models.Location{Latitude: 34.01, Longitude: -118.01}},
	}
	s.order = []string{"far", "near"}

	center := models.Location{Latitude: 34.0, Longitude: -118.0}
	radius := 5.0
	available := s.Available(AvailableQuery{Center: &center, RadiusMiles: &radius})

	require.Len(t, available, 1)
	assert.Equal(t, "near", available[0].VehicleID)
}

func TestState_UpdateStatus_UnknownVehicleReturnsFalse(t *testing.T) {
	s := New()
	s.Initialize(1, testZones(), 0, nil, rand.New(rand.NewPCG(1, 1)))

	assert.False(t, s.UpdateStatus("does-not-exist", models.VehicleOnTrip, nil, ""))
}

func TestState_RecordCompletedTrip_AccumulatesStats(t *testing.T) {
	s := New()
	s.Initialize(1, testZones(), 0, nil, rand.New(rand.NewPCG(1, 1)))

	s.RecordCompletedTrip("vehicle-0", 12.5, 4.0)
	s.RecordCompletedTrip("vehicle-0", 7.5, 2.0)

	v := s.Get("vehicle-0")
	require.NotNil(t, v)
	assert.Equal(t, 2, v.Stats.TripsCompleted)
	assert.Equal(t, 20.0, v.Stats.RevenueEarned)
	assert.Equal(t, 6.0, v.Stats.MilesDriven)
}

func TestState_Statistics_AggregatesAcrossFleet(t *testing.T) {
	s := New()
	s.Initialize(4, testZones(), 0, nil, rand.New(rand.NewPCG(1, 1)))
	s.UpdateStatus("vehicle-0", models.VehicleOnTrip, nil, "req-1")
	s.UpdateStatus("vehicle-1", models.VehicleEnRouteToPickup, nil, "req-2")
	s.RecordCompletedTrip("vehicle-2", 10.0, 3.0)

	stats := s.Statistics()

	assert.Equal(t, 4, stats.VehicleCount)
	assert.Equal(t, 2, stats.IdleCount)
	assert.Equal(t, 1, stats.EnRouteCount)
	assert.Equal(t, 1, stats.OnTripCount)
	assert.Equal(t, 1, stats.TotalTripsCompleted)
	assert.Equal(t, 10.0, stats.TotalRevenueEarned)
}
