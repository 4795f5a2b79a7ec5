package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dispatchsim/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []models.Event
	err    error
	closed bool
}

func (s *recordingSink) Record(_ context.Context, evt models.Event) error {
	s.events = append(s.events, evt)
	return s.err
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestRecorder_Emit_AssignsMonotonicSequenceNumbers(t *testing.T) {
	r := New(NoopSink{}, nil)
	ts := time.Now()

	first := r.Emit(context.Background(), ts, models.EventRequestArrived, nil)
	second := r.Emit(context.Background(), ts, models.EventRequestArrived, nil)
	third := r.Emit(context.Background(), ts, models.EventRequestArrived, nil)

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, int64(3), third.Seq)
}

func TestRecorder_Emit_MirrorsToSink(t *testing.T) {
	sink := &recordingSink{}
	r := New(sink, nil)

	r.Emit(context.Background(), time.Now(), models.EventTripCompleted, map[string]interface{}{"request_id": "req-1"})

	require.Len(t, sink.events, 1)
	assert.Equal(t, models.EventTripCompleted, sink.events[0].Type)
}

func TestRecorder_Emit_SinkErrorDoesNotAbortRecording(t *testing.T) {
	sink := &recordingSink{err: errors.New("write failed")}
	r := New(sink, nil)

	evt := r.Emit(context.Background(), time.Now(), models.EventError, nil)

	assert.Equal(t, int64(1), evt.Seq)
	assert.Len(t, r.Events(), 1)
}

func TestRecorder_Events_PreservesOrder(t *testing.T) {
	r := New(NoopSink{}, nil)
	r.Emit(context.Background(), time.Now(), models.EventEvaluationStart, nil)
	r.Emit(context.Background(), time.Now(), models.EventRequestArrived, nil)

	events := r.Events()

	require.Len(t, events, 2)
	assert.Equal(t, models.EventEvaluationStart, events[0].Type)
	assert.Equal(t, models.EventRequestArrived, events[1].Type)
}

func TestRecorder_ExportJSON_ProducesValidArray(t *testing.T) {
	r := New(NoopSink{}, nil)
	r.Emit(context.Background(), time.Now(), models.EventEvaluationStart, map[string]interface{}{"agent_name": "nearest_vehicle"})

	data, err := r.ExportJSON()
	require.NoError(t, err)

	var decoded []models.Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, models.EventEvaluationStart, decoded[0].Type)
}

func TestRecorder_Close_ClosesSink(t *testing.T) {
	sink := &recordingSink{}
	r := New(sink, nil)

	require.NoError(t, r.Close())
	assert.True(t, sink.closed)
}
