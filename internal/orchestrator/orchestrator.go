// Package orchestrator implements the Orchestrator and its
// event-driven simulation clock (spec §4.F): the component that drives
// a complete evaluation run end to end. It is a direct, idiomatic
// translation of GreenAgentEnvironment.run_evaluation /
// _advance_to_time_with_events / _get_next_vehicle_event_time, with
// structs and explicit error returns replacing the exception-driven
// original.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"dispatchsim/internal/agent"
	"dispatchsim/internal/evaluator"
	"dispatchsim/internal/eventlog"
	"dispatchsim/internal/fleet"
	"dispatchsim/internal/logging"
	"dispatchsim/internal/models"
	"dispatchsim/internal/simulator"

	"golang.org/x/time/rate"
)

// Metrics receives orchestrator lifecycle signals. A nil Metrics is
// replaced with noopMetrics; the telemetry package supplies a
// Prometheus/OTel-backed implementation, but the core algorithm below
// never depends on one being configured (spec §4.F ambient note).
type Metrics interface {
	RequestProcessed(ctx context.Context, outcome string, agentLatency time.Duration)
	TripCompleted(ctx context.Context, fare, deadheadMiles float64)
	EvaluationCompleted(ctx context.Context, overallScore float64)
}

type noopMetrics struct{}

func (noopMetrics) RequestProcessed(context.Context, string, time.Duration) {}
func (noopMetrics) TripCompleted(context.Context, float64, float64)         {}
func (noopMetrics) EvaluationCompleted(context.Context, float64)            {}

// RequestOutcome is one line of the run's processed-request ledger
// (spec §4.F return value: processed_requests/successful/failed counts).
type RequestOutcome struct {
	RequestID string
	Success   bool
	Error     string
}

// Result is the full return value of RunEvaluation (spec §4.F, §6).
type Result struct {
	RunID             string
	AgentName         string
	Summary           evaluator.Summary
	Outcomes          []RequestOutcome
	ProcessedRequests int
	SuccessfulCount   int
	FailedCount       int
	FleetStats        models.FleetStats
	Events            []models.Event
}

type assignment struct {
	nlReq    models.NaturalLanguageRequest
	parsed   models.StructuredRequest
	decision models.RoutingDecision
}

// Orchestrator owns one evaluation run's wiring: a FleetState, a
// Simulator bound to it, an Evaluator, an EventRecorder, and the
// simulation clock. RunEvaluation resets the clock, active assignments,
// outcomes and Evaluator, but not the FleetState or Simulator, so a fresh
// Orchestrator is required per run.
type Orchestrator struct {
	fleet     *fleet.State
	sim       *simulator.Simulator
	eval      *evaluator.Evaluator
	recorder  *eventlog.Recorder
	logger    *logging.Logger
	metrics   Metrics
	clock     clock
	active    map[string]*assignment
	outcomes  []RequestOutcome
}

// New wires an Orchestrator from already-constructed components. The
// caller is responsible for fleet initialization (fleet.State.Initialize)
// before the first RunEvaluation call.
func New(fleetState *fleet.State, sim *simulator.Simulator, eval *evaluator.Evaluator, recorder *eventlog.Recorder, logger *logging.Logger, metrics Metrics) *Orchestrator {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Orchestrator{
		fleet:    fleetState,
		sim:      sim,
		eval:     eval,
		recorder: recorder,
		logger:   logger,
		metrics:  metrics,
		active:   make(map[string]*assignment),
	}
}

// RunEvaluation drives one full evaluation of agent against requests
// (spec §4.F). startTime/endTime default to the first/last request's
// request_time (end padded by simEndPadding) when nil, mirroring
// run_evaluation's defaults. interRequestDelay paces wall-clock
// submission between requests (spec §6 inter_request_delay_seconds);
// it never affects simulation time.
func (o *Orchestrator) RunEvaluation(
	ctx context.Context,
	runID, agentName string,
	ag agent.RoutingAgent,
	requests []models.NaturalLanguageRequest,
	startTime, endTime *time.Time,
	simEndPadding time.Duration,
	interRequestDelay time.Duration,
) (Result, error) {
	if len(requests) == 0 {
		return Result{}, fmt.Errorf("orchestrator: no requests provided for evaluation")
	}

	sorted := make([]models.NaturalLanguageRequest, len(requests))
	copy(sorted, requests)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RequestTime.Before(sorted[j].RequestTime)
	})

	simStart := sorted[0].RequestTime
	if startTime != nil {
		simStart = *startTime
	}
	simEnd := sorted[len(sorted)-1].RequestTime.Add(simEndPadding)
	if endTime != nil {
		simEnd = *endTime
	}

	o.clock = clock{}
	o.clock.set(simStart)
	o.active = make(map[string]*assignment)
	o.outcomes = nil
	o.eval.Reset()

	log := o.logger.WithRun(runID)
	log.LogSimulationEvent(runID, "evaluation_start", logging.Fields{
		"agent_name":  agentName,
		"num_requests": len(sorted),
		"num_vehicles": len(o.fleet.All()),
	})
	o.recorder.Emit(ctx, simStart, models.EventEvaluationStart, map[string]interface{}{
		"agent_name":   agentName,
		"num_requests": len(sorted),
		"num_vehicles": len(o.fleet.All()),
		"start_time":   simStart,
		"end_time":     simEnd,
	})
	for _, v := range o.fleet.All() {
		o.recorder.Emit(ctx, simStart, models.EventVehicleInitialized, map[string]interface{}{
			"vehicle_id":             v.VehicleID,
			"latitude":               v.CurrentLocation.Latitude,
			"longitude":              v.CurrentLocation.Longitude,
			"wheelchair_accessible": v.WheelchairAccessible,
		})
	}

	var limiter *rate.Limiter
	if interRequestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(interRequestDelay), 1)
	}

	for i, nlReq := range sorted {
		o.advanceToWithEvents(ctx, nlReq.RequestTime)

		o.recorder.Emit(ctx, o.clock.now(), models.EventRequestArrived, map[string]interface{}{
			"request_id":   nlReq.RequestID,
			"request_time": nlReq.RequestTime,
		})

		o.processRequest(ctx, ag, nlReq)

		if limiter != nil && i+1 < len(sorted) {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}
	}

	o.advanceToWithEvents(ctx, simEnd)

	for _, result := range o.sim.ForceCompleteAll(simEnd) {
		o.finalizeTrip(ctx, result)
	}

	summary := o.eval.GetSummary()
	o.metrics.EvaluationCompleted(ctx, summary.OverallScore)

	o.recorder.Emit(ctx, simEnd, models.EventEvaluationEnd, map[string]interface{}{
		"agent_name":    agentName,
		"overall_score": summary.OverallScore,
	})
	log.LogSimulationEvent(runID, "evaluation_end", logging.Fields{
		"overall_score": summary.OverallScore,
	})

	successCount := 0
	for _, outcome := range o.outcomes {
		if outcome.Success {
			successCount++
		}
	}

	return Result{
		RunID:             runID,
		AgentName:         agentName,
		Summary:           summary,
		Outcomes:          o.outcomes,
		ProcessedRequests: len(o.outcomes),
		SuccessfulCount:   successCount,
		FailedCount:       len(o.outcomes) - successCount,
		FleetStats:        o.fleet.Statistics(),
		Events:            o.recorder.Events(),
	}, nil
}

// processRequest runs one request through Parse -> Route -> Execute,
// recording failures without aborting the run (spec §4.F error
// handling: one bad request never halts the evaluation).
func (o *Orchestrator) processRequest(ctx context.Context, ag agent.RoutingAgent, nlReq models.NaturalLanguageRequest) {
	parseStart := time.Now()
	parsed, err := ag.Parse(ctx, nlReq)
	parseLatency := time.Since(parseStart)

	if err != nil {
		o.recordFailure(ctx, nlReq.RequestID, err)
		o.metrics.RequestProcessed(ctx, "parse_error", parseLatency)
		return
	}

	o.recorder.Emit(ctx, o.clock.now(), models.EventParsingResult, map[string]interface{}{
		"request_id":     nlReq.RequestID,
		"parsing_time_ms": parseLatency.Milliseconds(),
	})

	routeStart := time.Now()
	decision, err := ag.Route(ctx, parsed, o.fleet)
	agentLatency := parseLatency + time.Since(routeStart)
	if err != nil {
		o.recordFailure(ctx, nlReq.RequestID, err)
		o.metrics.RequestProcessed(ctx, "route_error", agentLatency)
		return
	}

	o.recorder.Emit(ctx, o.clock.now(), models.EventRoutingDecision, map[string]interface{}{
		"request_id": nlReq.RequestID,
		"vehicle_id": decision.VehicleID,
	})

	execResult, err := o.sim.ExecuteRoutingDecision(ctx, decision, parsed.Origin, parsed.Destination, o.clock.now())
	if err != nil {
		o.recordFailure(ctx, nlReq.RequestID, err)
		o.metrics.RequestProcessed(ctx, "execution_error", agentLatency)
		return
	}

	vehicleLocation := models.Location{}
	if v := o.fleet.Get(decision.VehicleID); v != nil {
		vehicleLocation = v.CurrentLocation
	}
	o.recorder.Emit(ctx, o.clock.now(), models.EventVehicleAssigned, map[string]interface{}{
		"request_id":                nlReq.RequestID,
		"vehicle_id":                decision.VehicleID,
		"assignment_time":           o.clock.now(),
		"vehicle_location":          vehicleLocation,
		"pickup_location":           parsed.Origin,
		"estimated_pickup_distance": execResult.PickupDistanceMiles,
		"estimated_pickup_minutes":  execResult.EstimatedPickupTime.Sub(o.clock.now()).Minutes(),
	})

	o.active[nlReq.RequestID] = &assignment{nlReq: nlReq, parsed: parsed, decision: decision}
	o.metrics.RequestProcessed(ctx, "assigned", agentLatency)
}

func (o *Orchestrator) recordFailure(ctx context.Context, requestID string, err error) {
	o.eval.RecordFailure()
	o.outcomes = append(o.outcomes, RequestOutcome{RequestID: requestID, Success: false, Error: err.Error()})
	o.recorder.Emit(ctx, o.clock.now(), models.EventError, map[string]interface{}{
		"request_id": requestID,
		"error":      err.Error(),
	})
	o.logger.WithRequest(requestID).WithError(err).Warn("request processing failed")
}

// finalizeTrip handles the bookkeeping/logging/evaluation done when a
// trip completes (spec §4.F FinalizeTrip, grounded on
// _finalize_completed_trip).
func (o *Orchestrator) finalizeTrip(ctx context.Context, result models.TripResult) {
	a, ok := o.active[result.RequestID]
	if !ok {
		return
	}
	delete(o.active, result.RequestID)

	o.recorder.Emit(ctx, result.CompletionTime, models.EventTripCompleted, map[string]interface{}{
		"request_id":     result.RequestID,
		"vehicle_id":      result.VehicleID,
		"trip_distance":   result.TripDistance,
		"deadhead_miles":  result.DeadheadMiles,
		"fare":            result.Fare,
	})
	o.metrics.TripCompleted(ctx, result.Fare, result.DeadheadMiles)

	score := o.eval.EvaluateRequest(a.nlReq, a.parsed, result)
	o.recorder.Emit(ctx, result.CompletionTime, models.EventRequestScore, map[string]interface{}{
		"request_id":        result.RequestID,
		"per_request_score": score.PerRequestScore,
		"parse_correct":      score.ParseCorrect,
	})

	o.outcomes = append(o.outcomes, RequestOutcome{RequestID: result.RequestID, Success: true})
}

// advanceToWithEvents is the exact translation of
// _advance_to_time_with_events: it advances the clock to targetTime in
// increments bounded by the next scheduled vehicle event, so every
// pickup/dropoff is processed at its own exact timestamp instead of
// being collapsed onto the request-arrival grid (spec §4.F core
// algorithm).
func (o *Orchestrator) advanceToWithEvents(ctx context.Context, targetTime time.Time) {
	if !o.clock.started {
		o.clock.set(targetTime)
		return
	}
	if targetTime.Before(o.clock.now()) {
		return
	}

	for o.clock.now().Before(targetTime) {
		next := o.sim.NextEventTime()

		if next == nil || !next.Before(targetTime) {
			o.advanceTo(ctx, targetTime)
			break
		}

		if next.Before(o.clock.now()) {
			o.recorder.Emit(ctx, o.clock.now(), models.EventError, map[string]interface{}{
				"error_type": "INVALID_EVENT_TIME",
				"next_event_time": *next,
				"current_time":    o.clock.now(),
			})
			o.logger.WithComponent("orchestrator").Warn("next event time precedes current clock; advancing directly to target")
			o.advanceTo(ctx, targetTime)
			break
		}

		if next.Equal(o.clock.now()) {
			o.advanceTo(ctx, o.clock.now())
			continue
		}

		o.advanceTo(ctx, *next)
	}
}

// advanceTo processes every event in (current, t], moves the clock to
// t, and finalizes any trips that completed in that window.
func (o *Orchestrator) advanceTo(ctx context.Context, t time.Time) {
	delta := t.Sub(o.clock.now())
	results := o.sim.AdvanceTime(o.clock.now(), delta)
	o.clock.advanceTo(t)
	for _, result := range results {
		o.finalizeTrip(ctx, result)
	}
}
