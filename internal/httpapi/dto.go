package httpapi

import (
	"time"

	"dispatchsim/internal/models"
)

// ZoneSeed is one entry of the caller-supplied zone distribution used
// for fleet placement (spec §4.B Initialize).
type ZoneSeed struct {
	ZoneID    int     `json:"zone_id" binding:"required"`
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
}

// FleetSeed describes how to build the FleetState for a run.
type FleetSeed struct {
	VehicleCount             int        `json:"vehicle_count" binding:"required,min=1"`
	WheelchairAccessibleRatio *float64  `json:"wheelchair_accessible_ratio,omitempty"`
	Zones                    []ZoneSeed `json:"zones,omitempty"`
}

// SubmitEvaluationRequest is the POST /api/v1/evaluations payload.
type SubmitEvaluationRequest struct {
	AgentName         string                          `json:"agent_name"`
	Fleet             FleetSeed                        `json:"fleet" binding:"required"`
	Requests          []models.NaturalLanguageRequest `json:"requests" binding:"required,min=1"`
	StartTime         *time.Time                       `json:"start_time,omitempty"`
	EndTime           *time.Time                       `json:"end_time,omitempty"`
	RandomSeed        *int64                           `json:"random_seed,omitempty"`
}

// SubmitEvaluationResponse acknowledges a submitted run.
type SubmitEvaluationResponse struct {
	RunID  string    `json:"run_id"`
	Status RunStatus `json:"status"`
}

// RunSummaryResponse is the GET /api/v1/evaluations/:id payload.
type RunSummaryResponse struct {
	RunID      string      `json:"run_id"`
	AgentName  string      `json:"agent_name"`
	Status     RunStatus   `json:"status"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Result     interface{} `json:"result,omitempty"`
}

func toRunSummary(rec *RunRecord) RunSummaryResponse {
	resp := RunSummaryResponse{
		RunID:     rec.RunID,
		AgentName: rec.AgentName,
		Status:    rec.Status,
		Error:     rec.Error,
		CreatedAt: rec.CreatedAt,
	}
	if !rec.FinishedAt.IsZero() {
		finished := rec.FinishedAt
		resp.FinishedAt = &finished
	}
	if rec.Result != nil {
		resp.Result = rec.Result
	}
	return resp
}
