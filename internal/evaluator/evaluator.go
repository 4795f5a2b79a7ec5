// Package evaluator implements the Evaluator (spec §4.D): per-request
// scoring against ground truth plus fleet-level revenue aggregates.
package evaluator

import (
	"dispatchsim/internal/models"
)

// DeadheadCostPerMile is injected by the caller (config.Simulation);
// kept as a field rather than a package constant so two Evaluators with
// different configs never share state.

// RequestScore is the per-request scoring breakdown (spec §4.D).
type RequestScore struct {
	RequestID                  string
	ParseCorrect                bool
	HasGroundTruth               bool
	OriginDistanceErrorMiles    float64
	DestinationDistanceErrorMiles float64
	TimeConstraintAccurate     bool
	SpecialRequirementsAccurate bool
	Fare                       float64
	DeadheadMiles              float64
	PickupWaitMinutes          float64
	TripShare                  float64
	PerRequestScore            float64
}

// Summary is the aggregate produced by GetSummary (spec §4.D).
type Summary struct {
	TotalRequests      int
	FailedRequests     int
	ScoredRequests     int
	ParsingAccuracy    float64
	MeanOriginDistanceErrorMiles float64
	MeanDestinationDistanceErrorMiles float64
	TotalRevenue       float64
	TotalIdleCost      float64
	NetRevenue         float64
	DeadheadRatio      float64
	MeanPickupWaitMinutes float64
	RevenuePerMile     float64
	OverallScore       float64
}

// Evaluator accumulates per-request scores and produces the final
// Summary. Reset wipes all accumulators; called at the start of every run.
type Evaluator struct {
	deadheadCostPerMile float64

	scores         []RequestScore
	failedRequests int

	sumOriginError      float64
	sumDestinationError float64
	countWithGroundTruth int
	countParseCorrect    int

	totalRevenue      float64
	totalDeadheadMiles float64
	totalTripMiles     float64
	sumPickupWait      float64
}

// New constructs an Evaluator using the configured idle-cost constant.
func New(deadheadCostPerMile float64) *Evaluator {
	return &Evaluator{deadheadCostPerMile: deadheadCostPerMile}
}

// Reset wipes all accumulators (spec §4.D Reset).
func (e *Evaluator) Reset() {
	*e = Evaluator{deadheadCostPerMile: e.deadheadCostPerMile}
}

// RecordFailure counts a request that never produced a TripResult
// (AgentParseError, AgentRouteError, VehicleUnavailable, etc.). Failed
// requests are counted in TotalRequests and FailedRequests only; they do
// not enter ParsingAccuracy, the distance-error means or OverallScore,
// which are computed over scored requests alone.
func (e *Evaluator) RecordFailure() {
	e.failedRequests++
}

// EvaluateRequest scores one completed request against its ground truth
// (if present) and its TripResult (spec §4.D). Ground truth is required
// to produce parsing metrics; routing metrics are always computable.
func (e *Evaluator) EvaluateRequest(nlReq models.NaturalLanguageRequest, parsed models.StructuredRequest, result models.TripResult) RequestScore {
	score := RequestScore{
		RequestID: nlReq.RequestID,
		Fare:      result.Fare,
		DeadheadMiles: result.DeadheadMiles,
	}

	score.PickupWaitMinutes = result.ActualPickupTime.Sub(nlReq.RequestTime).Minutes()

	denominator := result.TripDistance + result.DeadheadMiles
	if denominator > 0 {
		score.TripShare = result.TripDistance / denominator
	}

	if gt := nlReq.GroundTruth; gt != nil {
		score.HasGroundTruth = true
		score.ParseCorrect = zoneIDEqual(parsed.Origin.ZoneID, gt.Origin.ZoneID) &&
			zoneIDEqual(parsed.Destination.ZoneID, gt.Destination.ZoneID)
		score.OriginDistanceErrorMiles = parsed.Origin.HaversineMiles(gt.Origin)
		score.DestinationDistanceErrorMiles = parsed.Destination.HaversineMiles(gt.Destination)
		score.TimeConstraintAccurate = parsed.HasArrivalConstraint == gt.HasArrivalConstraint
		score.SpecialRequirementsAccurate = parsed.WheelchairAccessible == gt.WheelchairAccessible &&
			parsed.SharedRideOK == gt.SharedRideOK

		e.countWithGroundTruth++
		e.sumOriginError += score.OriginDistanceErrorMiles
		e.sumDestinationError += score.DestinationDistanceErrorMiles
		if score.ParseCorrect {
			e.countParseCorrect++
		}
	}

	if score.ParseCorrect {
		score.PerRequestScore = score.TripShare
	}

	e.scores = append(e.scores, score)
	e.totalRevenue += result.Fare
	e.totalDeadheadMiles += result.DeadheadMiles
	e.totalTripMiles += result.TripDistance
	e.sumPickupWait += score.PickupWaitMinutes

	return score
}

func zoneIDEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// GetSummary produces the aggregate summary (spec §4.D). overall_score is
// documented in DESIGN.md's Open Question 2: 100 * (0.5*parsing_accuracy +
// 0.5*revenue_efficiency), monotone nondecreasing in both components.
func (e *Evaluator) GetSummary() Summary {
	scored := len(e.scores)
	summary := Summary{
		TotalRequests:  scored + e.failedRequests,
		FailedRequests: e.failedRequests,
		ScoredRequests: scored,
		TotalRevenue:   e.totalRevenue,
	}

	if e.countWithGroundTruth > 0 {
		summary.ParsingAccuracy = float64(e.countParseCorrect) / float64(e.countWithGroundTruth)
		summary.MeanOriginDistanceErrorMiles = e.sumOriginError / float64(e.countWithGroundTruth)
		summary.MeanDestinationDistanceErrorMiles = e.sumDestinationError / float64(e.countWithGroundTruth)
	}

	summary.TotalIdleCost = e.totalDeadheadMiles * e.deadheadCostPerMile
	summary.NetRevenue = e.totalRevenue - summary.TotalIdleCost

	totalMiles := e.totalTripMiles + e.totalDeadheadMiles
	if totalMiles > 0 {
		summary.DeadheadRatio = e.totalDeadheadMiles / totalMiles
		summary.RevenuePerMile = e.totalRevenue / totalMiles
	}

	if scored > 0 {
		summary.MeanPickupWaitMinutes = e.sumPickupWait / float64(scored)
	}

	revenueEfficiency := 0.0
	denom := summary.NetRevenue + summary.TotalIdleCost
	if denom > 0 {
		revenueEfficiency = summary.NetRevenue / denom
		if revenueEfficiency < 0 {
			revenueEfficiency = 0
		}
		if revenueEfficiency > 1 {
			revenueEfficiency = 1
		}
	}
	summary.OverallScore = 100 * (0.5*summary.ParsingAccuracy + 0.5*revenueEfficiency)

	return summary
}
