// Package agent defines the RoutingAgent plugin contract (spec §4.G):
// the pluggable decision-maker the Orchestrator calls into at each
// NaturalLanguageRequest arrival. Agent calls and the Orchestrator's
// inter-request pacing wait are the simulation's only suspension points;
// everything else runs CPU-pure (spec §5).
package agent

import (
	"context"

	"dispatchsim/internal/fleet"
	"dispatchsim/internal/models"
)

// RoutingAgent mirrors the teacher's actor message-handler contract
// (internal/actor/passenger_actor.go's request/response shape), adapted
// to three synchronous calls instead of mailbox messages. Implementations
// must treat all three as potentially slow (network-bound, LLM-bound) —
// the Orchestrator measures wall-clock latency around its Parse and Route
// calls (it does not call QueryDistanceAndTime) but never lets it
// influence simulation time.
type RoutingAgent interface {
	// Parse turns free-text into a StructuredRequest. Implementations
	// that cannot confidently extract an origin/destination should fall
	// back to a best-effort guess rather than erroring; Parse only
	// returns an error for conditions that make the request entirely
	// unroutable (empty text, malformed payload).
	Parse(ctx context.Context, nlReq models.NaturalLanguageRequest) (models.StructuredRequest, error)

	// Route selects a vehicle and produces a RoutingDecision. fleetView
	// is read-only: agents must not mutate fleet state directly.
	Route(ctx context.Context, req models.StructuredRequest, fleetView *fleet.State) (models.RoutingDecision, error)

	// QueryDistanceAndTime lets an agent estimate miles/minutes between
	// two points using its own model of the road network, independent of
	// the DistanceOracle the Simulator uses internally (spec §4.A note:
	// these two are allowed to diverge; only the Simulator's oracle
	// determines billed fares and trip timing).
	QueryDistanceAndTime(ctx context.Context, from, to models.Location) (miles, minutes float64, err error)
}
