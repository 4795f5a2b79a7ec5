// Package distance implements the DistanceOracle contract (spec §4.A):
// a pure, deterministic (miles, minutes) function between two points,
// plus an optional memoizing decorator.
package distance

import (
	"context"
	"math"

	"dispatchsim/internal/models"
)

const milesPerDegree = 69.0

// Oracle is the single operation VehicleSimulator and Evaluator rely on
// for trip distance/time math. Implementations must be deterministic and
// symmetric for identical inputs within one simulation run, and must
// never fail: a zero-distance query returns (0, 0).
type Oracle interface {
	Query(ctx context.Context, from, to models.Location) (miles, minutes float64)
}

// FlatEuclideanOracle is the default implementation: a flat-Euclidean
// approximation scaled by 69 miles/degree, valid at city scale (spec §4.A,
// §9 design notes — not a global-distance substitute for Haversine).
type FlatEuclideanOracle struct {
	AvgSpeedMPH float64
}

// NewFlatEuclideanOracle constructs an oracle with the given average
// travel speed; avgSpeedMPH must be positive (config.Validate enforces this).
func NewFlatEuclideanOracle(avgSpeedMPH float64) *FlatEuclideanOracle {
	return &FlatEuclideanOracle{AvgSpeedMPH: avgSpeedMPH}
}

// Query implements Oracle.
func (o *FlatEuclideanOracle) Query(_ context.Context, from, to models.Location) (float64, float64) {
	dLat := to.Latitude - from.Latitude
	dLon := to.Longitude - from.Longitude
	miles := math.Sqrt(dLat*dLat+dLon*dLon) * milesPerDegree
	minutes := (miles / o.AvgSpeedMPH) * 60.0
	return miles, minutes
}
