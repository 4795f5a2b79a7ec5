package orchestrator

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"dispatchsim/internal/agent"
	"dispatchsim/internal/config"
	"dispatchsim/internal/distance"
	"dispatchsim/internal/evaluator"
	"dispatchsim/internal/eventlog"
	"dispatchsim/internal/fleet"
	"dispatchsim/internal/logging"
	"dispatchsim/internal/models"
	"dispatchsim/internal/simulator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(&config.LoggingConfig{Output: "stdout", Level: "error", Format: "text"})
	require.NoError(t, err)
	return logger
}

type harness struct {
	orch   *Orchestrator
	fleet  *fleet.State
	zones  map[string]models.Location
}

func newHarness(t *testing.T, numVehicles int) *harness {
	t.Helper()

	zoneDist := fleet.ZoneDistribution{
		1: {Latitude: 34.00, Longitude: -118.00, ZoneID: intPtr(1)},
		2: {Latitude: 34.10, Longitude: -118.10, ZoneID: intPtr(2)},
	}
	zoneCentroids := map[string]models.Location{
		"zone-1": zoneDist[1],
		"zone-2": zoneDist[2],
	}

	initialLocations := make([]models.Location, numVehicles)
	for i := range initialLocations {
		initialLocations[i] = zoneDist[1]
	}
	fleetState := fleet.New()
	fleetState.Initialize(numVehicles, zoneDist, 0, initialLocations, rand.New(rand.NewPCG(1, 1)))

	oracle := distance.NewFlatEuclideanOracle(30.0)
	sim := simulator.New(fleetState, oracle, simulator.FareConfig{BaseFare: 2.50, PerMileRate: 2.50, PerMinuteRate: 0.50})
	eval := evaluator.New(0.50)
	recorder := eventlog.New(eventlog.NoopSink{}, testLogger(t))

	orch := New(fleetState, sim, eval, recorder, testLogger(t), nil)

	return &harness{orch: orch, fleet: fleetState, zones: zoneCentroids}
}

func groundTruthRequest(id string, requestTime time.Time, origin, dest models.Location) models.NaturalLanguageRequest {
	ground := models.StructuredRequest{
		RequestID:      id,
		RequestTime:    requestTime,
		Origin:         origin,
		Destination:    dest,
		PassengerCount: 1,
	}
	return models.NaturalLanguageRequest{RequestID: id, RequestTime: requestTime, GroundTruth: &ground}
}

func TestRunEvaluation_SingleRequestCompletesSuccessfully(t *testing.T) {
	h := newHarness(t, 2)
	ag := agent.NewNearestVehicleAgent(h.zones, h.zones["zone-1"])

	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	requests := []models.NaturalLanguageRequest{
		groundTruthRequest("req-1", start, h.zones["zone-1"], h.zones["zone-2"]),
	}

	result, err := h.orch.RunEvaluation(context.Background(), "run-1", "nearest_vehicle", ag, requests, nil, nil, 2*time.Hour, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedRequests)
	assert.Equal(t, 1, result.SuccessfulCount)
	assert.Zero(t, result.FailedCount)
	assert.Equal(t, 1, result.Summary.ScoredRequests)
	assert.Greater(t, result.Summary.TotalRevenue, 0.0)
}

func TestRunEvaluation_NoRequestsReturnsError(t *testing.T) {
	h := newHarness(t, 1)
	ag := agent.NewNearestVehicleAgent(h.zones, h.zones["zone-1"])

	_, err := h.orch.RunEvaluation(context.Background(), "run-1", "nearest_vehicle", ag, nil, nil, nil, time.Hour, 0)

	assert.Error(t, err)
}

func TestRunEvaluation_ExhaustedFleetFailsExcessRequests(t *testing.T) {
	h := newHarness(t, 1)
	ag := agent.NewNearestVehicleAgent(h.zones, h.zones["zone-1"])

	// The lone vehicle starts exactly at zone-1 (zero pickup distance), so
	// req-1's trip (zone-1 -> zone-2, ~9.8 miles at 30mph, ~19.5 minutes)
	// is already on_trip by the time req-2 arrives 5 minutes later,
	// leaving no vehicle for Route to select.
	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	requests := []models.NaturalLanguageRequest{
		groundTruthRequest("req-1", start, h.zones["zone-1"], h.zones["zone-2"]),
		groundTruthRequest("req-2", start.Add(5*time.Minute), h.zones["zone-1"], h.zones["zone-2"]),
	}

	result, err := h.orch.RunEvaluation(context.Background(), "run-1", "nearest_vehicle", ag, requests, nil, nil, 2*time.Hour, 0)

	require.NoError(t, err)
	assert.Equal(t, 2, result.ProcessedRequests)
	assert.Equal(t, 1, result.SuccessfulCount)
	assert.Equal(t, 1, result.FailedCount)
}

func TestRunEvaluation_EndOfSimForceCompletesActiveTrips(t *testing.T) {
	h := newHarness(t, 1)
	ag := agent.NewNearestVehicleAgent(h.zones, h.zones["zone-1"])

	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	requests := []models.NaturalLanguageRequest{
		groundTruthRequest("req-1", start, h.zones["zone-1"], h.zones["zone-2"]),
	}

	// Padding of 1 second is too short for the trip to complete naturally;
	// ForceCompleteAll must still bill and score it (scenario: trips still
	// in flight at evaluation end).
	result, err := h.orch.RunEvaluation(context.Background(), "run-1", "nearest_vehicle", ag, requests, nil, nil, time.Second, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessfulCount)
	assert.Zero(t, h.orch.sim.ActiveTripCount())
}

func TestRunEvaluation_EventsAreSequencedAndNonDecreasing(t *testing.T) {
	h := newHarness(t, 3)
	ag := agent.NewNearestVehicleAgent(h.zones, h.zones["zone-1"])

	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	requests := []models.NaturalLanguageRequest{
		groundTruthRequest("req-1", start, h.zones["zone-1"], h.zones["zone-2"]),
		groundTruthRequest("req-2", start.Add(10*time.Minute), h.zones["zone-2"], h.zones["zone-1"]),
		groundTruthRequest("req-3", start.Add(20*time.Minute), h.zones["zone-1"], h.zones["zone-2"]),
	}

	result, err := h.orch.RunEvaluation(context.Background(), "run-1", "nearest_vehicle", ag, requests, nil, nil, 2*time.Hour, 0)
	require.NoError(t, err)

	events := result.Events
	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.Less(t, events[i-1].Seq, events[i].Seq)
		assert.False(t, events[i].Timestamp.Before(events[i-1].Timestamp.Add(-time.Nanosecond)))
	}
}

func TestRunEvaluation_DeterministicAcrossIdenticalRuns(t *testing.T) {
	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

	run := func() evaluator.Summary {
		h := newHarness(t, 3)
		ag := agent.NewNearestVehicleAgent(h.zones, h.zones["zone-1"])
		requests := []models.NaturalLanguageRequest{
			groundTruthRequest("req-1", start, h.zones["zone-1"], h.zones["zone-2"]),
			groundTruthRequest("req-2", start.Add(10*time.Minute), h.zones["zone-2"], h.zones["zone-1"]),
		}
		result, err := h.orch.RunEvaluation(context.Background(), "run-1", "nearest_vehicle", ag, requests, nil, nil, 2*time.Hour, 0)
		require.NoError(t, err)
		return result.Summary
	}

	first := run()
	second := run()

	assert.Equal(t, first, second)
}

func TestRunEvaluation_VehicleAssignedEventCarriesSpecFields(t *testing.T) {
	h := newHarness(t, 2)
	ag := agent.NewNearestVehicleAgent(h.zones, h.zones["zone-1"])

	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	requests := []models.NaturalLanguageRequest{
		groundTruthRequest("req-1", start, h.zones["zone-1"], h.zones["zone-2"]),
	}

	result, err := h.orch.RunEvaluation(context.Background(), "run-1", "nearest_vehicle", ag, requests, nil, nil, 2*time.Hour, 0)
	require.NoError(t, err)

	var assigned *models.Event
	for i := range result.Events {
		if result.Events[i].Type == models.EventVehicleAssigned {
			assigned = &result.Events[i]
			break
		}
	}
	require.NotNil(t, assigned)
	assert.Contains(t, assigned.Payload, "assignment_time")
	assert.Contains(t, assigned.Payload, "vehicle_location")
	assert.Contains(t, assigned.Payload, "pickup_location")
	assert.Contains(t, assigned.Payload, "estimated_pickup_minutes")
}
