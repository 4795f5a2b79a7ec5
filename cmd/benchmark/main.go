// Command benchmark drives the dispatch-evaluation core directly
// (no HTTP hop) against a synthetic request stream, reporting
// wall-clock throughput alongside the evaluator's summary. It is the
// direct-RunEvaluation counterpart to the load-testing tools the
// teacher ships for its actor-vs-traditional comparison: here there is
// only one dispatch core to measure, so the tool calls
// orchestrator.RunEvaluation in-process instead of firing HTTP
// requests at a running server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"dispatchsim/internal/agent"
	"dispatchsim/internal/config"
	"dispatchsim/internal/distance"
	"dispatchsim/internal/evaluator"
	"dispatchsim/internal/eventlog"
	"dispatchsim/internal/fleet"
	"dispatchsim/internal/logging"
	"dispatchsim/internal/models"
	"dispatchsim/internal/orchestrator"
	"dispatchsim/internal/simulator"
)

// BenchmarkReport is the JSON artifact saved at the end of a run,
// shaped after the teacher's TestResult: wall-clock throughput plus
// the dispatch-specific outcome counts and score.
type BenchmarkReport struct {
	NumVehicles       int           `json:"num_vehicles"`
	NumRequests       int           `json:"num_requests"`
	RandomSeed        uint64        `json:"random_seed"`
	WallDuration      time.Duration `json:"wall_duration_ns"`
	RequestsPerSecond float64       `json:"requests_per_second"`
	ProcessedRequests int           `json:"processed_requests"`
	SuccessfulCount   int           `json:"successful_count"`
	FailedCount       int           `json:"failed_count"`
	OverallScore      float64       `json:"overall_score"`
	ParsingAccuracy   float64       `json:"parsing_accuracy"`
	NetRevenue        float64       `json:"net_revenue"`
	TotalRevenue      float64       `json:"total_revenue"`
	DeadheadRatio     float64       `json:"deadhead_ratio"`
}

func main() {
	var (
		numVehicles  = flag.Int("vehicles", 50, "Number of vehicles in the synthetic fleet")
		numRequests  = flag.Int("requests", 500, "Number of synthetic ride requests to generate")
		seedFlag     = flag.Uint64("seed", 42, "Random seed for synthetic request/fleet generation")
		spanMinutes  = flag.Int("span-minutes", 240, "Minutes over which synthetic requests are spread")
		output       = flag.String("output", "", "Path to save the JSON report (default: benchmark_<timestamp>.json)")
	)
	flag.Parse()

	logger, err := logging.NewLogger(&config.LoggingConfig{Output: "stdout", Level: "warn", Format: "json"})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	cfg := config.Development()
	rng := rand.New(rand.NewPCG(*seedFlag, *seedFlag^0x2545f4914f6cdd1d))

	zoneDist, zoneCentroids := syntheticZones()
	fleetState := fleet.New()
	fleetState.Initialize(*numVehicles, zoneDist, cfg.Simulation.WheelchairAccessibleRatio, nil, rng)

	oracle := distance.NewFlatEuclideanOracle(cfg.Simulation.AvgSpeedMPH)
	sim := simulator.New(fleetState, oracle, simulator.FareConfig{
		BaseFare:      cfg.Simulation.BaseFare,
		PerMileRate:   cfg.Simulation.PerMileRate,
		PerMinuteRate: cfg.Simulation.PerMinuteRate,
	})
	eval := evaluator.New(cfg.Simulation.DeadheadCostPerMile)
	recorder := eventlog.New(eventlog.NoopSink{}, logger)
	orch := orchestrator.New(fleetState, sim, eval, recorder, logger, nil)

	var defaultCentroid models.Location
	for _, loc := range zoneCentroids {
		defaultCentroid = loc
		break
	}
	ag := agent.NewNearestVehicleAgent(zoneCentroids, defaultCentroid)

	requests := syntheticRequests(*numRequests, *spanMinutes, zoneDist, rng)

	start := time.Now()
	result, err := orch.RunEvaluation(context.Background(), "benchmark-run", "nearest_vehicle", ag, requests, nil, nil,
		time.Duration(cfg.Simulation.DefaultSimEndPaddingMinutes)*time.Minute, 0)
	wall := time.Since(start)
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}

	report := BenchmarkReport{
		NumVehicles:        *numVehicles,
		NumRequests:        *numRequests,
		RandomSeed:         *seedFlag,
		WallDuration:       wall,
		RequestsPerSecond:  float64(result.ProcessedRequests) / wall.Seconds(),
		ProcessedRequests:  result.ProcessedRequests,
		SuccessfulCount:    result.SuccessfulCount,
		FailedCount:        result.FailedCount,
		OverallScore:       result.Summary.OverallScore,
		ParsingAccuracy:    result.Summary.ParsingAccuracy,
		NetRevenue:         result.Summary.NetRevenue,
		TotalRevenue:       result.Summary.TotalRevenue,
		DeadheadRatio:      result.Summary.DeadheadRatio,
	}

	printReport(&report)

	path := *output
	if path == "" {
		path = fmt.Sprintf("benchmark_%d.json", time.Now().UnixNano())
	}
	if err := saveReport(&report, path); err != nil {
		log.Fatalf("failed to save report: %v", err)
	}
	fmt.Printf("report saved to %s\n", path)
}

func printReport(r *BenchmarkReport) {
	fmt.Println("=== Dispatch Evaluation Benchmark ===")
	fmt.Printf("Vehicles:            %d\n", r.NumVehicles)
	fmt.Printf("Requests:            %d\n", r.NumRequests)
	fmt.Printf("Wall duration:       %s\n", r.WallDuration)
	fmt.Printf("Throughput:          %.1f req/s\n", r.RequestsPerSecond)
	fmt.Printf("Processed:           %d (success=%d fail=%d)\n", r.ProcessedRequests, r.SuccessfulCount, r.FailedCount)
	fmt.Printf("Overall score:       %.2f\n", r.OverallScore)
	fmt.Printf("Parsing accuracy:    %.2f\n", r.ParsingAccuracy)
	fmt.Printf("Net revenue:         $%.2f\n", r.NetRevenue)
	fmt.Printf("Total revenue:       $%.2f\n", r.TotalRevenue)
	fmt.Printf("Deadhead ratio:      %.2f\n", r.DeadheadRatio)
}

func saveReport(r *BenchmarkReport, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// syntheticZones lays out a small grid of pickup zones around downtown
// Los Angeles coordinates, mirroring the zone-distribution shape
// FleetState.Initialize expects (spec §4.B).
func syntheticZones() (fleet.ZoneDistribution, map[string]models.Location) {
	baseLat, baseLon := 34.05, -118.25
	zoneDist := make(fleet.ZoneDistribution)
	zoneCentroids := make(map[string]models.Location)

	zoneID := 1
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			loc := models.Location{
				Latitude:  baseLat + float64(dy)*0.05,
				Longitude: baseLon + float64(dx)*0.05,
				ZoneID:    intPtr(zoneID),
			}
			zoneDist[zoneID] = loc
			zoneCentroids[fmt.Sprintf("zone-%d", zoneID)] = loc
			zoneID++
		}
	}
	return zoneDist, zoneCentroids
}

// syntheticRequests generates a ground-truth-attached request stream
// at random whole-minute offsets within spanMinutes, with origin/destination drawn from
// distinct zones so the agent always has a real trip to route (spec
// §1 non-goal: NL generation/parsing from historical data is out of
// scope for the core, so this stays a direct StructuredRequest feed
// rather than a natural-language corpus).
func syntheticRequests(n, spanMinutes int, zones fleet.ZoneDistribution, rng *rand.Rand) []models.NaturalLanguageRequest {
	zoneIDs := make([]int, 0, len(zones))
	for id := range zones {
		zoneIDs = append(zoneIDs, id)
	}

	start := time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)
	out := make([]models.NaturalLanguageRequest, 0, n)
	for i := 0; i < n; i++ {
		originZone := zoneIDs[rng.IntN(len(zoneIDs))]
		destZone := zoneIDs[rng.IntN(len(zoneIDs))]
		for destZone == originZone && len(zoneIDs) > 1 {
			destZone = zoneIDs[rng.IntN(len(zoneIDs))]
		}

		requestTime := start.Add(time.Duration(rng.IntN(spanMinutes)) * time.Minute)
		origin := zones[originZone]
		dest := zones[destZone]

		ground := models.StructuredRequest{
			RequestID:            fmt.Sprintf("req-%04d", i),
			RequestTime:           requestTime,
			Origin:                origin,
			Destination:           dest,
			PassengerCount:        1 + rng.IntN(3),
			WheelchairAccessible:  rng.Float64() < 0.1,
			SharedRideOK:          rng.Float64() < 0.3,
		}

		out = append(out, models.NaturalLanguageRequest{
			RequestID:   ground.RequestID,
			RequestTime: requestTime,
			Text:        fmt.Sprintf("pick me up in zone %d and take me to zone %d", originZone, destZone),
			GroundTruth: &ground,
		})
	}
	return out
}

func intPtr(i int) *int { return &i }
