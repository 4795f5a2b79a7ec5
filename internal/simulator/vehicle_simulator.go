// Package simulator implements VehicleSimulator (spec §4.C): the
// central hardest-engineering component besides the clock itself. It
// owns ActiveTrips, executes routing decisions against FleetState, and
// advances trips through pickup/dropoff events at their exact scheduled
// timestamps. CPU-pure: no I/O, no suspension (spec §5).
package simulator

import (
	"context"
	"math"
	"sort"
	"time"

	"dispatchsim/internal/distance"
	"dispatchsim/internal/fleet"
	"dispatchsim/internal/models"
)

// FareConfig mirrors the fare-formula constants of spec §6.
type FareConfig struct {
	BaseFare      float64
	PerMileRate   float64
	PerMinuteRate float64
}

// Fare computes the bit-exact fare formula, rounded to two decimals at
// emission (spec §6, testable property §8.5). Callers that need
// un-rounded aggregates must recompute from trip_distance/trip_minutes.
func (f FareConfig) Fare(tripDistanceMiles, tripMinutes float64) float64 {
	raw := f.BaseFare + f.PerMileRate*tripDistanceMiles + f.PerMinuteRate*tripMinutes
	return math.Round(raw*100) / 100
}

// ExecutionResult is returned by ExecuteRoutingDecision on success.
type ExecutionResult struct {
	EstimatedPickupTime  time.Time
	EstimatedDropoffTime time.Time
	PickupDistanceMiles  float64
	TripDistanceMiles    float64
}

// Simulator owns all ActiveTrips and borrows FleetState to mutate
// vehicle status/location. Only the Orchestrator calls its methods; it
// never advances time on its own.
type Simulator struct {
	fleet   *fleet.State
	oracle  distance.Oracle
	fare    FareConfig
	trips   map[string]*models.ActiveTrip // keyed by request_id
}

// New constructs a Simulator bound to a FleetState, a DistanceOracle and
// the configured fare constants.
func New(fleetState *fleet.State, oracle distance.Oracle, fare FareConfig) *Simulator {
	return &Simulator{
		fleet:  fleetState,
		oracle: oracle,
		fare:   fare,
		trips:  make(map[string]*models.ActiveTrip),
	}
}

// ExecuteRoutingDecision implements spec §4.C step 1-7.
func (s *Simulator) ExecuteRoutingDecision(ctx context.Context, decision models.RoutingDecision, pickup, dropoff models.Location, now time.Time) (ExecutionResult, error) {
	v := s.fleet.Get(decision.VehicleID)
	if v == nil {
		return ExecutionResult{}, &models.AgentRouteError{
			RequestID: decision.RequestID,
			VehicleID: decision.VehicleID,
		}
	}
	if v.Status != models.VehicleIdle && v.Status != models.VehicleEnRouteToPickup {
		return ExecutionResult{}, &models.VehicleUnavailableError{
			RequestID: decision.RequestID,
			VehicleID: decision.VehicleID,
			Status:    v.Status,
		}
	}

	pickupDistance, pickupMinutes := s.oracle.Query(ctx, v.CurrentLocation, pickup)
	tripDistance, tripMinutes := s.oracle.Query(ctx, pickup, dropoff)

	estimatedPickupTime := now.Add(time.Duration(pickupMinutes * float64(time.Minute)))
	estimatedDropoffTime := estimatedPickupTime.Add(time.Duration(tripMinutes * float64(time.Minute)))

	s.trips[decision.RequestID] = &models.ActiveTrip{
		RequestID:            decision.RequestID,
		VehicleID:            decision.VehicleID,
		PickupLocation:       pickup,
		DropoffLocation:      dropoff,
		AssignmentTime:       now,
		EstimatedPickupTime:  estimatedPickupTime,
		EstimatedDropoffTime: estimatedDropoffTime,
		Status:               models.TripEnRouteToPickup,
		PickupDistanceMiles:  pickupDistance,
		TripDistanceMiles:    tripDistance,
	}

	s.fleet.UpdateStatus(decision.VehicleID, models.VehicleEnRouteToPickup, nil, decision.RequestID)

	return ExecutionResult{
		EstimatedPickupTime:  estimatedPickupTime,
		EstimatedDropoffTime: estimatedDropoffTime,
		PickupDistanceMiles:  pickupDistance,
		TripDistanceMiles:    tripDistance,
	}, nil
}

// NextEventTime returns the earliest scheduled pickup/dropoff time among
// all ActiveTrips, or nil if there are none. Exported for the Orchestrator's
// AdvanceToWithEvents loop (spec §4.F).
func (s *Simulator) NextEventTime() *time.Time {
	var earliest *time.Time
	for _, t := range s.trips {
		var scheduled time.Time
		switch t.Status {
		case models.TripEnRouteToPickup:
			scheduled = t.EstimatedPickupTime
		case models.TripOnTrip:
			scheduled = t.EstimatedDropoffTime
		}
		if earliest == nil || scheduled.Before(*earliest) {
			ts := scheduled
			earliest = &ts
		}
	}
	return earliest
}

type scheduledEvent struct {
	trip      *models.ActiveTrip
	scheduled time.Time
	isPickup  bool
}

// AdvanceTime processes every pickup/dropoff event scheduled in
// (currentTime, currentTime+delta], in ascending scheduled-time order,
// ties broken by request_id ascending (spec §4.C, §5 ordering
// guarantee). Never fails: purely internal mutation.
func (s *Simulator) AdvanceTime(currentTime time.Time, delta time.Duration) []models.TripResult {
	newTime := currentTime.Add(delta)

	var events []scheduledEvent
	for _, t := range s.trips {
		switch t.Status {
		case models.TripEnRouteToPickup:
			if !t.EstimatedPickupTime.After(newTime) {
				events = append(events, scheduledEvent{trip: t, scheduled: t.EstimatedPickupTime, isPickup: true})
			}
		case models.TripOnTrip:
			if !t.EstimatedDropoffTime.After(newTime) {
				events = append(events, scheduledEvent{trip: t, scheduled: t.EstimatedDropoffTime, isPickup: false})
			}
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].scheduled.Equal(events[j].scheduled) {
			return events[i].scheduled.Before(events[j].scheduled)
		}
		return events[i].trip.RequestID < events[j].trip.RequestID
	})

	var results []models.TripResult
	for _, evt := range events {
		t := evt.trip
		if evt.isPickup {
			if t.Status != models.TripEnRouteToPickup {
				continue // already advanced by an earlier event in this batch
			}
			s.fleet.AddDeadheadMiles(t.VehicleID, t.PickupDistanceMiles)
			loc := t.PickupLocation
			s.fleet.UpdateStatus(t.VehicleID, models.VehicleOnTrip, &loc, t.RequestID)
			t.Status = models.TripOnTrip
			continue
		}

		if t.Status != models.TripOnTrip {
			continue
		}
		results = append(results, s.completeTrip(t, t.EstimatedDropoffTime))
	}

	return results
}

// completeTrip finalizes a dropoff: updates vehicle location/stats,
// computes fare, removes the ActiveTrip, and returns the TripResult.
func (s *Simulator) completeTrip(t *models.ActiveTrip, completionTime time.Time) models.TripResult {
	tripMinutes := t.EstimatedDropoffTime.Sub(t.EstimatedPickupTime).Minutes()
	fare := s.fare.Fare(t.TripDistanceMiles, tripMinutes)

	loc := t.DropoffLocation
	s.fleet.UpdateStatus(t.VehicleID, models.VehicleIdle, &loc, "")
	s.fleet.RecordCompletedTrip(t.VehicleID, fare, t.TripDistanceMiles)

	delete(s.trips, t.RequestID)

	return models.TripResult{
		RequestID:        t.RequestID,
		VehicleID:        t.VehicleID,
		ActualPickupTime: t.EstimatedPickupTime,
		CompletionTime:   completionTime,
		TripDistance:     t.TripDistanceMiles,
		DeadheadMiles:    t.PickupDistanceMiles,
		TripTimeMinutes:  tripMinutes,
		Fare:             fare,
	}
}

// ForceCompleteAll finalizes every remaining ActiveTrip as if it
// completed exactly at horizonTime (spec §4.C, used at end of
// simulation). Trips still en route to pickup are also force-completed:
// their deadhead miles are credited and the dropoff is billed as normal,
// matching the "full fare billed as if completed" behavior required by
// scenario S5.
func (s *Simulator) ForceCompleteAll(horizonTime time.Time) []models.TripResult {
	var ids []string
	for id := range s.trips {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var results []models.TripResult
	for _, id := range ids {
		t := s.trips[id]
		if t.Status == models.TripEnRouteToPickup {
			s.fleet.AddDeadheadMiles(t.VehicleID, t.PickupDistanceMiles)
			t.Status = models.TripOnTrip
		}
		results = append(results, s.completeTrip(t, horizonTime))
	}
	return results
}

// ActiveTripCount reports the number of in-flight trips; used by tests.
func (s *Simulator) ActiveTripCount() int {
	return len(s.trips)
}
