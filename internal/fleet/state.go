// Package fleet implements FleetState (spec §4.B): the in-memory
// catalog of Vehicles and the spatial/availability queries the
// Orchestrator and RoutingAgent read from it.
package fleet

import (
	"math"
	"math/rand/v2"
	"sort"

	"dispatchsim/internal/models"
)

// ZoneDistribution maps a zone ID to a centroid Location, used when
// Initialize samples initial vehicle placement without explicit
// coordinates. A uniform distribution over all known zones is the
// default, to avoid a single-zone clustering bias.
type ZoneDistribution map[int]models.Location

// State is the exclusive owner of all Vehicles. Its mutators
// (UpdateStatus, RecordCompletedTrip, AddDeadheadMiles) are called only by
// VehicleSimulator (§3 ownership rules; no locking needed given the
// single-threaded cooperative model).
type State struct {
	vehicles map[string]*models.Vehicle
	order    []string // insertion order, for the stable-order fallback in Available
}

// New constructs an empty FleetState.
func New() *State {
	return &State{vehicles: make(map[string]*models.Vehicle)}
}

// Initialize creates n vehicles. If initialLocations is non-empty it is
// used (cycling through the slice); otherwise locations are sampled from
// zoneDistribution, uniformly across zones.
// Exactly round(n * wheelchairRatio) vehicles get WheelchairAccessible =
// true. rng drives all placement/ratio randomness so two States built
// with the same *rand.Rand produce identical fleets (spec §5 determinism).
func (s *State) Initialize(n int, zoneDistribution ZoneDistribution, wheelchairRatio float64, initialLocations []models.Location, rng *rand.Rand) {
	s.vehicles = make(map[string]*models.Vehicle, n)
	s.order = make([]string, 0, n)

	wheelchairCount := int(math.Round(float64(n) * wheelchairRatio))
	wheelchairIdx := make(map[int]bool, wheelchairCount)
	if n > 0 && wheelchairCount > 0 {
		perm := rng.Perm(n)
		for _, idx := range perm[:wheelchairCount] {
			wheelchairIdx[idx] = true
		}
	}

	zoneIDs := make([]int, 0, len(zoneDistribution))
	for id := range zoneDistribution {
		zoneIDs = append(zoneIDs, id)
	}
	sort.Ints(zoneIDs)

	for i := 0; i < n; i++ {
		var loc models.Location
		switch {
		case len(initialLocations) > 0:
			loc = initialLocations[i%len(initialLocations)]
		case len(zoneIDs) > 0:
			zoneID := zoneIDs[rng.IntN(len(zoneIDs))]
			loc = zoneDistribution[zoneID]
		}

		id := vehicleID(i)
		s.vehicles[id] = &models.Vehicle{
			VehicleID:            id,
			CurrentLocation:      loc,
			Status:               models.VehicleIdle,
			WheelchairAccessible: wheelchairIdx[i],
			Capacity:             4,
		}
		s.order = append(s.order, id)
	}
}

func vehicleID(i int) string {
	return "vehicle-" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}

// Get returns the vehicle with the given ID, or nil if unknown.
func (s *State) Get(id string) *models.Vehicle {
	return s.vehicles[id]
}

// All returns every vehicle in stable insertion order.
func (s *State) All() []models.Vehicle {
	result := make([]models.Vehicle, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, *s.vehicles[id])
	}
	return result
}

// AvailableQuery bundles the optional filters accepted by Available.
type AvailableQuery struct {
	Center               *models.Location
	RadiusMiles          *float64
	MaxCount              int // 0 means unlimited
	WheelchairRequired    bool
}

// Available returns vehicles whose status is idle or en_route_to_pickup
// (VehicleSimulator's ExecuteRoutingDecision accepts both and rejects
// on_trip and offline vehicles). Ordering is
// ascending Euclidean distance from Center when provided, otherwise
// stable insertion order. Filters apply conjunctively.
func (s *State) Available(q AvailableQuery) []models.Vehicle {
	var candidates []models.Vehicle
	for _, id := range s.order {
		v := s.vehicles[id]
		if v.Status != models.VehicleIdle && v.Status != models.VehicleEnRouteToPickup {
			continue
		}
		if q.WheelchairRequired && !v.WheelchairAccessible {
			continue
		}
		if q.RadiusMiles != nil && q.Center != nil {
			d := euclideanMiles(*q.Center, v.CurrentLocation)
			if d > *q.RadiusMiles {
				continue
			}
		}
		candidates = append(candidates, *v)
	}

	if q.Center != nil {
		center := *q.Center
		sort.SliceStable(candidates, func(i, j int) bool {
			return euclideanMiles(center, candidates[i].CurrentLocation) < euclideanMiles(center, candidates[j].CurrentLocation)
		})
	}

	if q.MaxCount > 0 && len(candidates) > q.MaxCount {
		candidates = candidates[:q.MaxCount]
	}

	return candidates
}

func euclideanMiles(a, b models.Location) float64 {
	dLat := b.Latitude - a.Latitude
	dLon := b.Longitude - a.Longitude
	return math.Sqrt(dLat*dLat+dLon*dLon) * 69.0
}

// UpdateStatus atomically mutates a vehicle's status/location/trip
// assignment. The only mutator of status, location and trip assignment;
// cumulative stats change via RecordCompletedTrip and AddDeadheadMiles.
func (s *State) UpdateStatus(id string, status models.VehicleStatus, location *models.Location, tripID string) bool {
	v, ok := s.vehicles[id]
	if !ok {
		return false
	}
	v.Status = status
	if location != nil {
		v.CurrentLocation = *location
	}
	v.CurrentTripID = tripID
	return true
}

// RecordCompletedTrip updates a vehicle's cumulative stats when a trip
// finishes: trips_completed += 1, revenue_earned += fare, miles_driven +=
// trip_distance (spec §4.C dropoff-event bookkeeping). Deadhead miles are
// accumulated separately, at the pickup event, via AddDeadheadMiles.
func (s *State) RecordCompletedTrip(id string, fare, tripMiles float64) {
	v, ok := s.vehicles[id]
	if !ok {
		return
	}
	v.Stats.TripsCompleted++
	v.Stats.RevenueEarned += fare
	v.Stats.MilesDriven += tripMiles
}

// AddDeadheadMiles increments a vehicle's deadhead mileage at pickup time.
func (s *State) AddDeadheadMiles(id string, miles float64) {
	if v, ok := s.vehicles[id]; ok {
		v.Stats.DeadheadMiles += miles
	}
}

// Statistics aggregates Vehicle stats across the whole fleet (§4.B).
func (s *State) Statistics() models.FleetStats {
	var stats models.FleetStats
	for _, v := range s.vehicles {
		stats.VehicleCount++
		switch v.Status {
		case models.VehicleIdle:
			stats.IdleCount++
		case models.VehicleEnRouteToPickup:
			stats.EnRouteCount++
		case models.VehicleOnTrip:
			stats.OnTripCount++
		case models.VehicleOffline:
			stats.OfflineCount++
		}
		stats.TotalTripsCompleted += v.Stats.TripsCompleted
		stats.TotalRevenueEarned += v.Stats.RevenueEarned
		stats.TotalMilesDriven += v.Stats.MilesDriven
		stats.TotalDeadheadMiles += v.Stats.DeadheadMiles
	}
	return stats
}
