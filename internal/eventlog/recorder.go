// Package eventlog implements the EventRecorder (spec §4.E): an
// append-only, strictly-ordered event log with JSON export and an
// optional durable side-channel sink.
package eventlog

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"dispatchsim/internal/logging"
	"dispatchsim/internal/models"
)

// Sink mirrors emitted events out-of-band. Implementations must never
// block the Orchestrator's single logical thread on a failure: Record
// errors are logged and otherwise ignored (spec §4.E treats the
// in-memory log as authoritative).
type Sink interface {
	Record(ctx context.Context, evt models.Event) error
	Close() error
}

// NoopSink is the default Sink: it does nothing. Used whenever no
// durable event sink is configured (the common case).
type NoopSink struct{}

func (NoopSink) Record(context.Context, models.Event) error { return nil }
func (NoopSink) Close() error                                { return nil }

// Recorder is the append-only in-memory event log. Every event carries a
// monotonically increasing sequence number and a timestamp (spec §5,
// §8.1-2 ordering guarantees).
type Recorder struct {
	seq    int64
	events []models.Event
	sink   Sink
	logger *logging.Logger
}

// New constructs a Recorder. sink may be NoopSink{}.
func New(sink Sink, logger *logging.Logger) *Recorder {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Recorder{sink: sink, logger: logger}
}

// Emit appends a new event with the next sequence number and mirrors it
// to the configured Sink, best-effort.
func (r *Recorder) Emit(ctx context.Context, ts time.Time, eventType models.EventType, payload map[string]interface{}) models.Event {
	seq := atomic.AddInt64(&r.seq, 1)
	evt := models.Event{
		Seq:       seq,
		Timestamp: ts,
		Type:      eventType,
		Payload:   payload,
	}
	r.events = append(r.events, evt)

	if err := r.sink.Record(ctx, evt); err != nil && r.logger != nil {
		r.logger.WithComponent("eventlog").WithError(err).Warn("event sink write failed")
	}

	return evt
}

// Events returns the full ordered event log.
func (r *Recorder) Events() []models.Event {
	return r.events
}

// ExportJSON produces the stable, ordered JSON array described in spec §6.
func (r *Recorder) ExportJSON() ([]byte, error) {
	return json.Marshal(r.events)
}

// Close releases the underlying sink's resources, if any.
func (r *Recorder) Close() error {
	return r.sink.Close()
}
