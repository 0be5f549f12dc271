package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Pub/sub channels for operational event streams.
const (
	ChannelStageCompleted = "events.pipeline.stage_completed"
	ChannelPipelineError  = "events.pipeline.error"
	ChannelSyncCompleted  = "events.calendarsync.completed"
)

// Stage status values.
const (
	StageStatusCompleted = "completed"
	StageStatusFailed    = "failed"
	StageStatusSkipped   = "skipped"
)

// Stage names, matching the six stages of the pipeline orchestrator.
const (
	StageResolveSource = "resolve_source"
	StageOCR           = "ocr"
	StageExtract       = "extract"
	StageMerge         = "merge"
	StagePersist       = "persist"
	StageFinalize      = "finalize"
)

// StageResult describes one completed pipeline stage;
// Emitter.EmitStageCompleted publishes it on ChannelStageCompleted, giving
// operators a per-stage audit trail independent of the metrics counters.
type StageResult struct {
	EventID    string    `json:"event_id"`
	MessageID  string    `json:"message_id"`
	OwnerID    string    `json:"owner_id"`
	Stage      string    `json:"stage"`
	Status     string    `json:"status"`
	DurationMs int64     `json:"duration_ms"`
	Detail     string    `json:"detail,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewStageResult creates a StageResult with a generated ID and timestamp.
func NewStageResult(messageID, ownerID, stage, status string, durationMs int64, detail string) *StageResult {
	return &StageResult{
		EventID:    uuid.New().String(),
		MessageID:  messageID,
		OwnerID:    ownerID,
		Stage:      stage,
		Status:     status,
		DurationMs: durationMs,
		Detail:     detail,
		Timestamp:  time.Now(),
	}
}

// PipelineErrorEvent is emitted when a pipeline stage fails.
type PipelineErrorEvent struct {
	EventID      string    `json:"event_id"`
	MessageID    string    `json:"message_id"`
	Stage        string    `json:"stage"`
	ErrorMessage string    `json:"error_message"`
	Retryable    bool      `json:"retryable"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewPipelineErrorEvent(messageID, stage, errMsg string, retryable bool) *PipelineErrorEvent {
	return &PipelineErrorEvent{
		EventID:      uuid.New().String(),
		MessageID:    messageID,
		Stage:        stage,
		ErrorMessage: errMsg,
		Retryable:    retryable,
		Timestamp:    time.Now(),
	}
}

// SyncCompletedEvent is emitted after a calendar sync attempt finishes.
type SyncCompletedEvent struct {
	EventID         string    `json:"event_id"`
	CalendarEventID string    `json:"event_id_in_system"`
	ExternalEventID string    `json:"external_event_id,omitempty"`
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
}

func NewSyncCompletedEvent(eventID, externalEventID, status string) *SyncCompletedEvent {
	return &SyncCompletedEvent{
		EventID:         uuid.New().String(),
		CalendarEventID: eventID,
		ExternalEventID: externalEventID,
		Status:          status,
		Timestamp:       time.Now(),
	}
}

// EventPublisher publishes operational events to a pub/sub channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, event interface{}) error
	Close() error
}

// RedisEventPublisher publishes via an injected publish function, so this
// package never imports the Redis client directly.
type RedisEventPublisher struct {
	publish func(ctx context.Context, channel string, message interface{}) error
}

func NewRedisEventPublisher(publishFn func(ctx context.Context, channel string, message interface{}) error) *RedisEventPublisher {
	return &RedisEventPublisher{publish: publishFn}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, channel string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.publish(ctx, channel, data)
}

func (p *RedisEventPublisher) Close() error { return nil }

// NoOpEventPublisher discards all events, used when observability is
// disabled or in tests.
type NoOpEventPublisher struct{}

func (p *NoOpEventPublisher) Publish(ctx context.Context, channel string, event interface{}) error {
	return nil
}

func (p *NoOpEventPublisher) Close() error { return nil }

// Emitter provides convenience methods for emitting pipeline/sync events.
type Emitter struct {
	publisher EventPublisher
}

func NewEmitter(publisher EventPublisher) *Emitter {
	return &Emitter{publisher: publisher}
}

func (e *Emitter) EmitStageCompleted(ctx context.Context, result *StageResult) error {
	return e.publisher.Publish(ctx, ChannelStageCompleted, result)
}

func (e *Emitter) EmitPipelineError(ctx context.Context, event *PipelineErrorEvent) error {
	return e.publisher.Publish(ctx, ChannelPipelineError, event)
}

func (e *Emitter) EmitSyncCompleted(ctx context.Context, event *SyncCompletedEvent) error {
	return e.publisher.Publish(ctx, ChannelSyncCompleted, event)
}

func (e *Emitter) Close() error {
	return e.publisher.Close()
}
