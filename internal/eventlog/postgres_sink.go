package eventlog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"dispatchsim/internal/logging"
	"dispatchsim/internal/models"

	"github.com/jmoiron/sqlx"
)

// PostgresSink batches events and flushes them to Postgres on an
// interval, mirroring the teacher's MetricsCollector batched-insert
// pattern (internal/observability/collector.go: in-memory slice +
// periodic sqlx.NamedExec flush). A side channel only: flush errors are
// logged, never returned to the Orchestrator.
type PostgresSink struct {
	db     *sqlx.DB
	runID  string
	logger *logging.Logger

	mu      sync.Mutex
	pending []sinkRow

	flushInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
}

type sinkRow struct {
	RunID     string    `db:"run_id"`
	Seq       int64     `db:"seq"`
	Timestamp time.Time `db:"timestamp"`
	EventType string    `db:"event_type"`
	Payload   []byte    `db:"payload"`
}

// NewPostgresSink wraps an existing *sqlx.DB (see database.NewPostgresConnection)
// and starts its background flush loop.
func NewPostgresSink(db *sqlx.DB, runID string, flushInterval time.Duration, logger *logging.Logger) *PostgresSink {
	s := &PostgresSink{
		db:            db,
		runID:         runID,
		logger:        logger,
		flushInterval: flushInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go s.flushLoop()
	return s
}

func (s *PostgresSink) Record(_ context.Context, evt models.Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pending = append(s.pending, sinkRow{
		RunID:     s.runID,
		Seq:       evt.Seq,
		Timestamp: evt.Timestamp,
		EventType: string(evt.Type),
		Payload:   payload,
	})
	s.mu.Unlock()
	return nil
}

func (s *PostgresSink) flushLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.stop:
			s.flush()
			return
		}
	}
}

func (s *PostgresSink) flush() {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	_, err := s.db.NamedExec(
		`INSERT INTO event_logs (run_id, seq, timestamp, event_type, payload)
		 VALUES (:run_id, :seq, :timestamp, :event_type, :payload)`,
		batch,
	)
	if err != nil && s.logger != nil {
		s.logger.WithComponent("eventlog_sink").WithError(err).Warn("batch insert failed")
	}
}

// Close stops the flush loop, flushing any pending batch first.
func (s *PostgresSink) Close() error {
	close(s.stop)
	<-s.done
	return nil
}
