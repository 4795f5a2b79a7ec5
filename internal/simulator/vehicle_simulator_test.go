package simulator

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"dispatchsim/internal/distance"
	"dispatchsim/internal/fleet"
	"dispatchsim/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFare() FareConfig {
	return FareConfig{BaseFare: 2.50, PerMileRate: 2.50, PerMinuteRate: 0.50}
}

func TestFareConfig_Fare_RoundsToTwoDecimals(t *testing.T) {
	fare := testFare()

	rounded := fare.Fare(3.333, 12.0)
	expected := 2.50 + 2.50*3.333 + 0.50*12.0

	assert.InDelta(t, expected, rounded, 0.005)
	assert.Equal(t, 16.83, rounded)
}

func newTestFleet(n int) *fleet.State {
	zones := fleet.ZoneDistribution{1: {Latitude: 34.0, Longitude: -118.0, ZoneID: intPtr(1)}}
	s := fleet.New()
	s.Initialize(n, zones, 0, nil, rand.New(rand.NewPCG(1, 1)))
	return s
}

func intPtr(i int) *int { return &i }

func TestSimulator_ExecuteRoutingDecision_AssignsVehicle(t *testing.T) {
	f := newTestFleet(1)
	oracle := distance.NewFlatEuclideanOracle(30.0)
	sim := New(f, oracle, testFare())

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	pickup := models.Location{Latitude: 34.01, Longitude: -118.0}
	dropoff := models.Location{Latitude: 34.05, Longitude: -118.05}

	result, err := sim.ExecuteRoutingDecision(context.Background(), models.RoutingDecision{
		RequestID: "req-1",
		VehicleID: "vehicle-0",
	}, pickup, dropoff, now)

	require.NoError(t, err)
	assert.True(t, result.EstimatedPickupTime.After(now))
	assert.True(t, result.EstimatedDropoffTime.After(result.EstimatedPickupTime))

	v := f.Get("vehicle-0")
	assert.Equal(t, models.VehicleEnRouteToPickup, v.Status)
	assert.Equal(t, "req-1", v.CurrentTripID)
}

func TestSimulator_ExecuteRoutingDecision_RejectsUnknownVehicle(t *testing.T) {
	f := newTestFleet(1)
	sim := New(f, distance.NewFlatEuclideanOracle(30.0), testFare())

	_, err := sim.ExecuteRoutingDecision(context.Background(), models.RoutingDecision{
		RequestID: "req-1",
		VehicleID: "does-not-exist",
	}, models.Location{}, models.Location{}, time.Now())

	var routeErr *models.AgentRouteError
	assert.ErrorAs(t, err, &routeErr)
}

func TestSimulator_ExecuteRoutingDecision_RejectsBusyVehicle(t *testing.T) {
	f := newTestFleet(1)
	f.UpdateStatus("vehicle-0", models.VehicleOnTrip, nil, "other-req")
	sim := New(f, distance.NewFlatEuclideanOracle(30.0), testFare())

	_, err := sim.ExecuteRoutingDecision(context.Background(), models.RoutingDecision{
		RequestID: "req-1",
		VehicleID: "vehicle-0",
	}, models.Location{}, models.Location{}, time.Now())

	assert.Error(t, err)
}

func TestSimulator_AdvanceTime_ProcessesPickupThenDropoff(t *testing.T) {
	f := newTestFleet(1)
	oracle := distance.NewFlatEuclideanOracle(60.0) // 1 mile = 1 minute
	sim := New(f, oracle, testFare())

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	pickup := models.Location{Latitude: 34.0 + 1.0/69.0, Longitude: -118.0} // ~1 mile away
	dropoff := models.Location{Latitude: 34.0 + 2.0/69.0, Longitude: -118.0}

	_, err := sim.ExecuteRoutingDecision(context.Background(), models.RoutingDecision{
		RequestID: "req-1",
		VehicleID: "vehicle-0",
	}, pickup, dropoff, now)
	require.NoError(t, err)

	// Advance past pickup but not dropoff.
	results := sim.AdvanceTime(now, 90*time.Second)
	assert.Empty(t, results)
	assert.Equal(t, models.VehicleOnTrip, f.Get("vehicle-0").Status)

	// Advance past dropoff.
	results = sim.AdvanceTime(now.Add(90*time.Second), 3*time.Minute)
	require.Len(t, results, 1)
	assert.Equal(t, "req-1", results[0].RequestID)
	assert.Equal(t, models.VehicleIdle, f.Get("vehicle-0").Status)
	assert.Zero(t, sim.ActiveTripCount())
}

func TestSimulator_NextEventTime_NilWhenNoActiveTrips(t *testing.T) {
	f := newTestFleet(1)
	sim := New(f, distance.NewFlatEuclideanOracle(30.0), testFare())

	assert.Nil(t, sim.NextEventTime())
}

func TestSimulator_ForceCompleteAll_BillsEnRouteTripsInFull(t *testing.T) {
	f := newTestFleet(1)
	oracle := distance.NewFlatEuclideanOracle(30.0)
	sim := New(f, oracle, testFare())

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	pickup := models.Location{Latitude: 34.05, Longitude: -118.05}
	dropoff := models.Location{Latitude: 34.10, Longitude: -118.10}

	_, err := sim.ExecuteRoutingDecision(context.Background(), models.RoutingDecision{
		RequestID: "req-1",
		VehicleID: "vehicle-0",
	}, pickup, dropoff, now)
	require.NoError(t, err)

	results := sim.ForceCompleteAll(now.Add(24 * time.Hour))

	require.Len(t, results, 1)
	assert.Greater(t, results[0].Fare, 0.0)
	assert.Zero(t, sim.ActiveTripCount())
}
