package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentParseError_UnwrapsToSentinel(t *testing.T) {
	err := &AgentParseError{RequestID: "req-1", Cause: errors.New("boom")}

	assert.True(t, errors.Is(err, ErrAgentParse))
	assert.Contains(t, err.Error(), "req-1")
}

func TestVehicleUnavailableError_UnwrapsToSentinel(t *testing.T) {
	err := &VehicleUnavailableError{RequestID: "req-1", VehicleID: "vehicle-0", Status: VehicleOnTrip}

	assert.True(t, errors.Is(err, ErrVehicleUnavailable))
	assert.Contains(t, err.Error(), "vehicle-0")
	assert.Contains(t, err.Error(), "on_trip")
}

func TestAgentRouteError_KnownVehiclePrefersVehicleMessage(t *testing.T) {
	err := &AgentRouteError{RequestID: "req-2", VehicleID: "vehicle-9"}

	assert.Contains(t, err.Error(), "vehicle-9")
	assert.True(t, errors.Is(err, ErrAgentRoute))
}
