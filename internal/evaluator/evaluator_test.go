package evaluator

import (
	"testing"
	"time"

	"dispatchsim/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestEvaluator_EvaluateRequest_ParseCorrectScoresTripShare(t *testing.T) {
	e := New(0.50)

	requestTime := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	origin := models.Location{Latitude: 34.0, Longitude: -118.0, ZoneID: intPtr(1)}
	dest := models.Location{Latitude: 34.1, Longitude: -118.1, ZoneID: intPtr(2)}

	ground := models.StructuredRequest{Origin: origin, Destination: dest}
	nlReq := models.NaturalLanguageRequest{RequestID: "req-1", RequestTime: requestTime, GroundTruth: &ground}
	parsed := models.StructuredRequest{Origin: origin, Destination: dest}

	result := models.TripResult{
		RequestID:        "req-1",
		ActualPickupTime: requestTime.Add(5 * time.Minute),
		TripDistance:     8.0,
		DeadheadMiles:    2.0,
		Fare:             25.0,
	}

	score := e.EvaluateRequest(nlReq, parsed, result)

	assert.True(t, score.ParseCorrect)
	assert.True(t, score.HasGroundTruth)
	assert.InDelta(t, 0.8, score.TripShare, 1e-9)
	assert.InDelta(t, 0.8, score.PerRequestScore, 1e-9)
	assert.InDelta(t, 5.0, score.PickupWaitMinutes, 1e-9)
}

func TestEvaluator_EvaluateRequest_WrongZoneScoresZero(t *testing.T) {
	e := New(0.50)

	origin := models.Location{ZoneID: intPtr(1)}
	dest := models.Location{ZoneID: intPtr(2)}
	wrongOrigin := models.Location{ZoneID: intPtr(9)}

	ground := models.StructuredRequest{Origin: origin, Destination: dest}
	nlReq := models.NaturalLanguageRequest{RequestID: "req-1", GroundTruth: &ground}
	parsed := models.StructuredRequest{Origin: wrongOrigin, Destination: dest}

	score := e.EvaluateRequest(nlReq, parsed, models.TripResult{RequestID: "req-1", TripDistance: 5, DeadheadMiles: 1})

	assert.False(t, score.ParseCorrect)
	assert.Zero(t, score.PerRequestScore)
}

func TestEvaluator_EvaluateRequest_NoGroundTruthStillScoresRouting(t *testing.T) {
	e := New(0.50)

	nlReq := models.NaturalLanguageRequest{RequestID: "req-1"}
	score := e.EvaluateRequest(nlReq, models.StructuredRequest{}, models.TripResult{RequestID: "req-1", TripDistance: 4, DeadheadMiles: 1})

	assert.False(t, score.HasGroundTruth)
	assert.False(t, score.ParseCorrect)
	assert.InDelta(t, 0.8, score.TripShare, 1e-9)
}

func TestEvaluator_RecordFailure_CountsTowardTotalButNotScored(t *testing.T) {
	e := New(0.50)
	e.RecordFailure()
	e.RecordFailure()

	summary := e.GetSummary()

	assert.Equal(t, 2, summary.TotalRequests)
	assert.Equal(t, 2, summary.FailedRequests)
	assert.Zero(t, summary.ScoredRequests)
}

func TestEvaluator_GetSummary_ParsingAccuracyAveragesGroundTruthRequests(t *testing.T) {
	e := New(0.0)

	correctZone := intPtr(1)
	wrongZone := intPtr(2)
	ground := models.StructuredRequest{Origin: models.Location{ZoneID: correctZone}, Destination: models.Location{ZoneID: correctZone}}

	e.EvaluateRequest(
		models.NaturalLanguageRequest{RequestID: "a", GroundTruth: &ground},
		models.StructuredRequest{Origin: models.Location{ZoneID: correctZone}, Destination: models.Location{ZoneID: correctZone}},
		models.TripResult{RequestID: "a", TripDistance: 1},
	)
	e.EvaluateRequest(
		models.NaturalLanguageRequest{RequestID: "b", GroundTruth: &ground},
		models.StructuredRequest{Origin: models.Location{ZoneID: wrongZone}, Destination: models.Location{ZoneID: correctZone}},
		models.TripResult{RequestID: "b", TripDistance: 1},
	)

	summary := e.GetSummary()

	assert.InDelta(t, 0.5, summary.ParsingAccuracy, 1e-9)
}

func TestEvaluator_GetSummary_OverallScoreMonotoneInComponents(t *testing.T) {
	low := New(0.50)
	high := New(0.50)

	ground := models.StructuredRequest{Origin: models.Location{ZoneID: intPtr(1)}, Destination: models.Location{ZoneID: intPtr(1)}}

	// "low" evaluator gets a wrong-zone parse and low net revenue.
	low.EvaluateRequest(
		models.NaturalLanguageRequest{RequestID: "a", GroundTruth: &ground},
		models.StructuredRequest{Origin: models.Location{ZoneID: intPtr(9)}, Destination: models.Location{ZoneID: intPtr(1)}},
		models.TripResult{RequestID: "a", TripDistance: 1, DeadheadMiles: 10, Fare: 1},
	)

	// "high" evaluator gets a correct parse and much better revenue mix.
	high.EvaluateRequest(
		models.NaturalLanguageRequest{RequestID: "a", GroundTruth: &ground},
		models.StructuredRequest{Origin: models.Location{ZoneID: intPtr(1)}, Destination: models.Location{ZoneID: intPtr(1)}},
		models.TripResult{RequestID: "a", TripDistance: 10, DeadheadMiles: 1, Fare: 30},
	)

	lowSummary := low.GetSummary()
	highSummary := high.GetSummary()

	assert.Greater(t, highSummary.OverallScore, lowSummary.OverallScore)
}

func TestEvaluator_Reset_WipesAccumulators(t *testing.T) {
	e := New(0.5)
	e.RecordFailure()
	e.EvaluateRequest(models.NaturalLanguageRequest{RequestID: "a"}, models.StructuredRequest{}, models.TripResult{RequestID: "a", Fare: 10})

	e.Reset()

	summary := e.GetSummary()
	require.Zero(t, summary.TotalRequests)
	assert.Zero(t, summary.TotalRevenue)
}
