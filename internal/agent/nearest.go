package agent

import (
	"context"
	"fmt"
	"math"
	"time"

	"dispatchsim/internal/fleet"
	"dispatchsim/internal/models"
)

func durationFromMinutes(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}

// NearestVehicleAgent is the reference RoutingAgent (spec §4.G reference
// implementation), grounded on original_source/src/white_agent/baseline_agents.py's
// RegexBaselineAgent and base_agent.py's DummyWhiteAgent:
//   - Parse returns ground truth verbatim when the request carries it
//     (DummyWhiteAgent's "cheating" shortcut, intentionally kept here since
//     this agent exists to exercise the Orchestrator/Evaluator pipeline,
//     not to demonstrate NLP); otherwise it uses ZoneCentroids[""] if
//     present, else DefaultCentroid, for both origin and destination. The
//     request text is not parsed and no zone name is read from it.
//   - Route selects the nearest available vehicle within range, falling
//     back to the globally nearest vehicle when none are within range
//     (DummyWhiteAgent's radius-then-global-fallback shape).
type NearestVehicleAgent struct {
	// ZoneCentroids maps a zone name to its canonical Location, used when
	// a NaturalLanguageRequest has no ground truth to pass through.
	ZoneCentroids map[string]models.Location

	// DefaultCentroid is returned when a request names no zone this
	// agent recognizes.
	DefaultCentroid models.Location

	// SearchRadiusMiles bounds the first-pass nearest-vehicle search;
	// zero or negative disables the radius and searches the whole fleet.
	SearchRadiusMiles float64
}

// NewNearestVehicleAgent constructs an agent with the given zone
// centroids and a 10-mile search radius, matching DummyWhiteAgent's
// radius_miles=10.0 default.
func NewNearestVehicleAgent(zoneCentroids map[string]models.Location, defaultCentroid models.Location) *NearestVehicleAgent {
	return &NearestVehicleAgent{
		ZoneCentroids:     zoneCentroids,
		DefaultCentroid:   defaultCentroid,
		SearchRadiusMiles: 10.0,
	}
}

func (a *NearestVehicleAgent) Parse(_ context.Context, nlReq models.NaturalLanguageRequest) (models.StructuredRequest, error) {
	if nlReq.Text == "" && nlReq.GroundTruth == nil {
		return models.StructuredRequest{}, &models.AgentParseError{
			RequestID: nlReq.RequestID,
			Cause:     fmt.Errorf("empty request text and no ground truth"),
		}
	}

	if nlReq.GroundTruth != nil {
		return *nlReq.GroundTruth, nil
	}

	return models.StructuredRequest{
		RequestID:      nlReq.RequestID,
		RequestTime:    nlReq.RequestTime,
		Origin:         a.centroidFor(""),
		Destination:    a.centroidFor(""),
		PassengerCount: 1,
	}, nil
}

func (a *NearestVehicleAgent) centroidFor(zoneName string) models.Location {
	if loc, ok := a.ZoneCentroids[zoneName]; ok {
		return loc
	}
	return a.DefaultCentroid
}

func (a *NearestVehicleAgent) Route(_ context.Context, req models.StructuredRequest, fleetView *fleet.State) (models.RoutingDecision, error) {
	origin := req.Origin
	radius := a.SearchRadiusMiles

	query := fleet.AvailableQuery{
		Center:             &origin,
		WheelchairRequired: req.WheelchairAccessible,
		MaxCount:           1,
	}
	if radius > 0 {
		query.RadiusMiles = &radius
	}

	candidates := fleetView.Available(query)
	if len(candidates) == 0 {
		// Fall back to a global search, same shape as every candidate
		// exceeding the radius found in DummyWhiteAgent.
		candidates = fleetView.Available(fleet.AvailableQuery{
			Center:             &origin,
			WheelchairRequired: req.WheelchairAccessible,
			MaxCount:           1,
		})
	}
	if len(candidates) == 0 {
		return models.RoutingDecision{}, &models.AgentRouteError{
			RequestID: req.RequestID,
			Cause:     fmt.Errorf("no available vehicles matching requirements"),
		}
	}

	selected := candidates[0]
	ctx := context.Background()
	pickupMiles, pickupMinutes, _ := a.QueryDistanceAndTime(ctx, selected.CurrentLocation, origin)
	tripMiles, tripMinutes, _ := a.QueryDistanceAndTime(ctx, origin, req.Destination)

	baseTime := req.RequestTime
	if req.RequestedPickupTime != nil {
		baseTime = *req.RequestedPickupTime
	}
	pickupTime := baseTime.Add(durationFromMinutes(pickupMinutes))
	dropoffTime := pickupTime.Add(durationFromMinutes(tripMinutes))

	return models.RoutingDecision{
		RequestID:                    req.RequestID,
		VehicleID:                    selected.VehicleID,
		EstimatedPickupTime:          pickupTime,
		EstimatedDropoffTime:         dropoffTime,
		EstimatedPickupDistanceMiles: pickupMiles,
		EstimatedTripDistanceMiles:   tripMiles,
		DecisionRationale:            fmt.Sprintf("nearest available vehicle %s", selected.VehicleID),
	}, nil
}

// QueryDistanceAndTime uses a flat-Euclidean estimate at a fixed 30mph,
// deliberately independent of the Simulator's configured DistanceOracle
// (spec §4.A note): an agent's internal estimate of travel time is
// allowed to diverge from the fare-determining oracle.
func (a *NearestVehicleAgent) QueryDistanceAndTime(_ context.Context, from, to models.Location) (float64, float64, error) {
	dLat := to.Latitude - from.Latitude
	dLon := to.Longitude - from.Longitude
	miles := math.Sqrt(dLat*dLat+dLon*dLon) * 69.0
	minutes := (miles / 30.0) * 60.0
	return miles, minutes, nil
}
