package models

import "time"

// EventType enumerates the EventRecorder's tagged record kinds (spec §4.E).
type EventType string

const (
	EventEvaluationStart   EventType = "EVALUATION_START"
	EventEvaluationEnd     EventType = "EVALUATION_END"
	EventVehicleInitialized EventType = "VEHICLE_INITIALIZED"
	EventRequestArrived    EventType = "REQUEST_ARRIVED"
	EventParsingResult     EventType = "PARSING_RESULT"
	EventRoutingDecision   EventType = "ROUTING_DECISION"
	EventVehicleAssigned   EventType = "VEHICLE_ASSIGNED"
	EventTripCompleted     EventType = "TRIP_COMPLETED"
	EventRequestScore      EventType = "REQUEST_SCORE"
	EventError             EventType = "ERROR"
)

// Event is one append-only, ordered record in the EventRecorder log.
// Payload field names are snake_case and mirror the dataclass fields of
// spec §3/§4.E; it is stored as a map so JSON export needs no per-type
// marshaling logic.
type Event struct {
	Seq       int64                  `json:"seq"`
	Timestamp time.Time              `json:"timestamp"`
	Type      EventType              `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
}
