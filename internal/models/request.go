package models

import "time"

// RequestPriority mirrors the priority levels carried by the original
// request dataclass; the core does not schedule on it, only records it.
type RequestPriority string

const (
	PriorityNormal    RequestPriority = "normal"
	PriorityUrgent    RequestPriority = "urgent"
	PriorityScheduled RequestPriority = "scheduled"
)

// NaturalLanguageRequest is the input unit into the dispatch pipeline.
type NaturalLanguageRequest struct {
	RequestID    string               `json:"request_id"`
	RequestTime  time.Time            `json:"request_time"`
	Text         string               `json:"natural_language_text"`
	GroundTruth  *StructuredRequest   `json:"ground_truth,omitempty"`
}

// StructuredRequest is the agent's interpretation of a request.
type StructuredRequest struct {
	RequestID            string          `json:"request_id"`
	RequestTime          time.Time       `json:"request_time"`
	Origin               Location        `json:"origin"`
	Destination          Location        `json:"destination"`
	RequestedPickupTime  *time.Time      `json:"requested_pickup_time,omitempty"`
	RequestedDropoffTime *time.Time      `json:"requested_dropoff_time,omitempty"`
	HasArrivalConstraint bool            `json:"has_arrival_constraint"`
	PassengerCount       int             `json:"passenger_count"`
	WheelchairAccessible bool            `json:"wheelchair_accessible"`
	SharedRideOK         bool            `json:"shared_ride_ok"`
	CustomerID           string          `json:"customer_id,omitempty"`

	// Supplemented fields (original_source/src/white_agent/data_structures.py).
	PickupTimeWindowMinutes  *int            `json:"pickup_time_window_minutes,omitempty"`
	DropoffTimeWindowMinutes *int            `json:"dropoff_time_window_minutes,omitempty"`
	LuggageCount             int             `json:"luggage_count,omitempty"`
	Priority                 RequestPriority `json:"priority,omitempty"`
	AdditionalNotes          string          `json:"additional_notes,omitempty"`
}
