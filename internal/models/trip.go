package models

import "time"

// RoutingDecision is the agent's assignment of a vehicle to a request.
type RoutingDecision struct {
	RequestID                   string     `json:"request_id"`
	VehicleID                   string     `json:"vehicle_id"`
	EstimatedPickupTime         time.Time  `json:"estimated_pickup_time"`
	EstimatedDropoffTime        time.Time  `json:"estimated_dropoff_time"`
	EstimatedPickupDistanceMiles float64   `json:"estimated_pickup_distance_miles"`
	EstimatedTripDistanceMiles  float64    `json:"estimated_trip_distance_miles"`
	DecisionRationale           string     `json:"decision_rationale,omitempty"`

	// Supplemented (original_source RoutingDecision.waypoints). Not
	// consumed by VehicleSimulator distance math; recorded for the
	// event log and downstream visualization only.
	Waypoints []Location `json:"waypoints,omitempty"`
}

// ActiveTripStatus is internal to VehicleSimulator.
type ActiveTripStatus string

const (
	TripEnRouteToPickup ActiveTripStatus = "en_route_to_pickup"
	TripOnTrip          ActiveTripStatus = "on_trip"
)

// ActiveTrip tracks one in-flight assignment inside VehicleSimulator.
// EstimatedPickupTime/EstimatedDropoffTime are computed from the
// DistanceOracle at assignment time, never copied from the agent's
// own estimates in RoutingDecision.
type ActiveTrip struct {
	RequestID            string
	VehicleID            string
	PickupLocation       Location
	DropoffLocation      Location
	AssignmentTime       time.Time
	EstimatedPickupTime  time.Time
	EstimatedDropoffTime time.Time
	Status               ActiveTripStatus

	PickupDistanceMiles float64
	TripDistanceMiles   float64
}

// TripResult is produced when an ActiveTrip completes (normally, or via
// VehicleSimulator.ForceCompleteAll).
type TripResult struct {
	RequestID        string    `json:"request_id"`
	VehicleID        string    `json:"vehicle_id"`
	ActualPickupTime time.Time `json:"actual_pickup_time"`
	CompletionTime   time.Time `json:"completion_time"`
	TripDistance     float64   `json:"trip_distance"`
	DeadheadMiles    float64   `json:"deadhead_miles"`
	TripTimeMinutes  float64   `json:"trip_time_minutes"`
	Fare             float64   `json:"fare"`
}
