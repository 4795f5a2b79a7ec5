package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions with no request/vehicle-specific payload.
var (
	// ErrAgentParse is wrapped by AgentParseError.
	ErrAgentParse = errors.New("agent parse failed")
	// ErrAgentRoute is wrapped by AgentRouteError.
	ErrAgentRoute = errors.New("agent route failed")
	// ErrVehicleUnavailable is wrapped by VehicleUnavailableError.
	ErrVehicleUnavailable = errors.New("vehicle unavailable")
	// ErrInvalidEventTime marks an internal clock inconsistency.
	ErrInvalidEventTime = errors.New("invalid event time")
	// ErrRequestValidation is wrapped by RequestValidationError.
	ErrRequestValidation = errors.New("request validation failed")
)

// AgentParseError records a request whose agent.Parse call raised.
type AgentParseError struct {
	RequestID string
	Cause     error
}

func (e *AgentParseError) Error() string {
	return fmt.Sprintf("parse request %s: %v", e.RequestID, e.Cause)
}

func (e *AgentParseError) Unwrap() error { return ErrAgentParse }

// AgentRouteError records a request whose agent.Route call raised, or
// returned a vehicle_id unknown to the fleet.
type AgentRouteError struct {
	RequestID string
	VehicleID string
	Cause     error
}

func (e *AgentRouteError) Error() string {
	if e.VehicleID != "" {
		return fmt.Sprintf("route request %s: unknown vehicle %s", e.RequestID, e.VehicleID)
	}
	return fmt.Sprintf("route request %s: %v", e.RequestID, e.Cause)
}

func (e *AgentRouteError) Unwrap() error { return ErrAgentRoute }

// VehicleUnavailableError records a routing decision that targeted a
// vehicle whose status is on_trip or offline.
type VehicleUnavailableError struct {
	RequestID string
	VehicleID string
	Status    VehicleStatus
}

func (e *VehicleUnavailableError) Error() string {
	return fmt.Sprintf("vehicle %s unavailable (status=%s) for request %s", e.VehicleID, e.Status, e.RequestID)
}

func (e *VehicleUnavailableError) Unwrap() error { return ErrVehicleUnavailable }

// InvalidEventTimeError records an internal scheduling inconsistency;
// the simulation logs it and continues.
type InvalidEventTimeError struct {
	VehicleID string
	RequestID string
	Detail    string
}

func (e *InvalidEventTimeError) Error() string {
	return fmt.Sprintf("invalid event time for vehicle %s (request %s): %s", e.VehicleID, e.RequestID, e.Detail)
}

func (e *InvalidEventTimeError) Unwrap() error { return ErrInvalidEventTime }

// RequestValidationError records a malformed NL request, skipped entirely.
type RequestValidationError struct {
	RequestID string
	Detail    string
}

func (e *RequestValidationError) Error() string {
	return fmt.Sprintf("request %s invalid: %s", e.RequestID, e.Detail)
}

func (e *RequestValidationError) Unwrap() error { return ErrRequestValidation }
