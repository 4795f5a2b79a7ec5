package httpapi

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
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

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AgentFactory builds a RoutingAgent given the zone centroids carried in
// a submitted run's fleet seed. Only the in-process reference agent is
// registered by default (spec §4.G: remote agents are just another
// implementation of the same interface; wiring one in here is a
// deployment concern, not a core one).
type AgentFactory func(zoneCentroids map[string]models.Location) agent.RoutingAgent

// EvaluationsHandler runs evaluations against the dispatch-evaluation
// core and tracks them in a RunStore (spec §4.F RunEvaluation, exposed
// over HTTP). Grounded on the teacher's RideHandler shape: thin
// handlers delegating to a service-like dependency, here the
// orchestrator package directly.
type EvaluationsHandler struct {
	cfg      *config.SimulationConfig
	oracle   distance.Oracle
	sink     eventlog.Sink
	logger   *logging.Logger
	metrics  orchestrator.Metrics
	store    *RunStore
	agents   map[string]AgentFactory
}

// NewEvaluationsHandler wires a handler. sink and metrics may be nil
// (NoopSink / nil metrics are substituted).
func NewEvaluationsHandler(cfg *config.SimulationConfig, oracle distance.Oracle, sink eventlog.Sink, logger *logging.Logger, metrics orchestrator.Metrics, store *RunStore) *EvaluationsHandler {
	h := &EvaluationsHandler{
		cfg:     cfg,
		oracle:  oracle,
		sink:    sink,
		logger:  logger,
		metrics: metrics,
		store:   store,
		agents:  make(map[string]AgentFactory),
	}
	h.RegisterAgent("nearest_vehicle", func(zoneCentroids map[string]models.Location) agent.RoutingAgent {
		var defaultCentroid models.Location
		for _, loc := range zoneCentroids {
			defaultCentroid = loc
			break
		}
		return agent.NewNearestVehicleAgent(zoneCentroids, defaultCentroid)
	})
	return h
}

// RegisterAgent adds a named agent factory, letting a deployment plug
// in a remote or alternative RoutingAgent without changing this handler.
func (h *EvaluationsHandler) RegisterAgent(name string, factory AgentFactory) {
	h.agents[name] = factory
}

// Submit starts a new dispatch evaluation run
//
// @Summary Submit an evaluation run
// @Description builds a fresh fleet and core, then runs RunEvaluation in the background
// @Tags evaluations
// @Accept json
// @Produce json
// @Param request body SubmitEvaluationRequest true "Fleet seed, agent name, and request stream"
// @Success 202 {object} SubmitEvaluationResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/evaluations [post]
//
// Submit handles POST /api/v1/evaluations: builds a fresh fleet and
// core, then runs RunEvaluation in the background and returns a run ID
// immediately (spec §5: the simulation's only suspension points are
// agent calls and inter-request pacing, which can be slow; the HTTP
// worker should not block on them for a large request set).
func (h *EvaluationsHandler) Submit(c *gin.Context) {
	var req SubmitEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}

	agentName := req.AgentName
	if agentName == "" {
		agentName = "nearest_vehicle"
	}
	factory, ok := h.agents[agentName]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown agent", "message": fmt.Sprintf("no agent registered as %q", agentName)})
		return
	}

	runID := uuid.New().String()
	rec := &RunRecord{RunID: runID, AgentName: agentName, Status: RunPending, CreatedAt: time.Now()}
	h.store.Put(rec)

	go h.run(rec, factory, req)

	c.JSON(http.StatusAccepted, SubmitEvaluationResponse{RunID: runID, Status: RunPending})
}

func (h *EvaluationsHandler) run(rec *RunRecord, factory AgentFactory, req SubmitEvaluationRequest) {
	rec.Status = RunRunning
	h.store.Put(rec)

	seed := uint64(time.Now().UnixNano())
	if h.cfg.RandomSeedSet {
		seed = uint64(h.cfg.RandomSeed)
	}
	if req.RandomSeed != nil {
		seed = uint64(*req.RandomSeed)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	zoneDist := make(fleet.ZoneDistribution, len(req.Fleet.Zones))
	zoneCentroids := make(map[string]models.Location, len(req.Fleet.Zones))
	for _, z := range req.Fleet.Zones {
		loc := models.Location{Latitude: z.Latitude, Longitude: z.Longitude, ZoneID: intPtr(z.ZoneID)}
		zoneDist[z.ZoneID] = loc
		zoneCentroids[fmt.Sprintf("zone-%d", z.ZoneID)] = loc
	}

	wheelchairRatio := h.cfg.WheelchairAccessibleRatio
	if req.Fleet.WheelchairAccessibleRatio != nil {
		wheelchairRatio = *req.Fleet.WheelchairAccessibleRatio
	}

	fleetState := fleet.New()
	fleetState.Initialize(req.Fleet.VehicleCount, zoneDist, wheelchairRatio, nil, rng)

	sim := simulator.New(fleetState, h.oracle, simulator.FareConfig{
		BaseFare:      h.cfg.BaseFare,
		PerMileRate:   h.cfg.PerMileRate,
		PerMinuteRate: h.cfg.PerMinuteRate,
	})
	eval := evaluator.New(h.cfg.DeadheadCostPerMile)
	recorder := eventlog.New(h.sink, h.logger)

	orch := orchestrator.New(fleetState, sim, eval, recorder, h.logger, h.metrics)
	ag := factory(zoneCentroids)

	simEndPadding := time.Duration(h.cfg.DefaultSimEndPaddingMinutes) * time.Minute
	interRequestDelay := time.Duration(h.cfg.InterRequestDelaySeconds * float64(time.Second))

	result, err := orch.RunEvaluation(context.Background(), rec.RunID, rec.AgentName, ag, req.Requests, req.StartTime, req.EndTime, simEndPadding, interRequestDelay)

	rec.FinishedAt = time.Now()
	if err != nil {
		rec.Status = RunFailed
		rec.Error = err.Error()
		h.store.Put(rec)
		return
	}

	rec.Status = RunSucceeded
	rec.Result = &result
	h.store.Put(rec)
}

// Get fetches one evaluation run's status and result
//
// @Summary Get an evaluation run
// @Tags evaluations
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} RunSummaryResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/evaluations/{id} [get]
//
// Get handles GET /api/v1/evaluations/:id.
func (h *EvaluationsHandler) Get(c *gin.Context) {
	runID := c.Param("id")
	rec := h.store.Get(runID)
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, toRunSummary(rec))
}

// List fetches every evaluation run's status
//
// @Summary List evaluation runs
// @Tags evaluations
// @Produce json
// @Success 200 {object} map[string][]RunSummaryResponse
// @Router /api/v1/evaluations [get]
//
// List handles GET /api/v1/evaluations.
func (h *EvaluationsHandler) List(c *gin.Context) {
	recs := h.store.List()
	out := make([]RunSummaryResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, toRunSummary(r))
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func intPtr(i int) *int { return &i }
