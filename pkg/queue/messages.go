// Package queue provides the persistent job queue between the ingestion
// pipeline and the calendar sync engine (spec §5/§5a): two job kinds,
// dispatched through a priority-ordered, visibility-timeout-protected
// queue with retry and dead-letter handling.
package queue

import (
	"encoding/json"
	"time"
)

// Priority levels for queued jobs.
type Priority int

const (
	PriorityLow    Priority = 0 // janitorial sweeps, backfills
	PriorityNormal Priority = 1 // pipeline jobs from newly ingested messages
	PriorityHigh   Priority = 2 // sync jobs, so an approval is reflected promptly
)

// JobKind identifies the type of queued job. The spec names exactly two:
// a pipeline job (process one message) and a sync job (push one event).
type JobKind string

const (
	JobKindPipeline JobKind = "pipeline"
	JobKindSync     JobKind = "sync"
)

// Job is the base interface for all queued jobs.
type Job interface {
	// GetKind returns the job kind.
	GetKind() JobKind
	// GetPriority returns the job's queue priority.
	GetPriority() Priority
}

// PipelineJob triggers the ingestion pipeline orchestrator (spec C5) for
// one already-stored message.
type PipelineJob struct {
	MessageID string    `json:"message_id"`
	Priority  Priority  `json:"priority"`
	QueuedAt  time.Time `json:"queued_at"`
}

func (j *PipelineJob) GetKind() JobKind      { return JobKindPipeline }
func (j *PipelineJob) GetPriority() Priority { return j.Priority }

// SyncJob triggers the calendar sync engine (spec C6) for one approved
// event. CalendarID is optional; when empty the sync engine resolves the
// user's default active calendar.
type SyncJob struct {
	EventID    string    `json:"event_id"`
	CalendarID string    `json:"calendar_id,omitempty"`
	Priority   Priority  `json:"priority"`
	QueuedAt   time.Time `json:"queued_at"`
}

func (j *SyncJob) GetKind() JobKind     { return JobKindSync }
func (j *SyncJob) GetPriority() Priority { return j.Priority }

// QueuedJob wraps a Job with queue metadata: identity, retry bookkeeping,
// and the visibility-timeout deadline used for stale-message recovery.
type QueuedJob struct {
	ID           string          `json:"id"`
	Job          json.RawMessage `json:"job"`
	Kind         JobKind         `json:"kind"`
	Priority     Priority        `json:"priority"`
	RetryCount   int             `json:"retry_count"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
	VisibleAfter time.Time       `json:"visible_after,omitempty"`
}

// ParseJob decodes the wrapped payload based on Kind.
func (qj *QueuedJob) ParseJob() (Job, error) {
	switch qj.Kind {
	case JobKindPipeline:
		var j PipelineJob
		if err := json.Unmarshal(qj.Job, &j); err != nil {
			return nil, err
		}
		return &j, nil
	case JobKindSync:
		var j SyncJob
		if err := json.Unmarshal(qj.Job, &j); err != nil {
			return nil, err
		}
		return &j, nil
	default:
		return nil, ErrUnknownJobKind
	}
}

// Queue is the persistent job queue interface, implemented by RedisQueue.
type Queue interface {
	Name() string
	Enqueue(job Job) error
	Dequeue(maxJobs int, timeout time.Duration) ([]*QueuedJob, error)
	Ack(jobID string) error
	Nack(jobID string) error
	MoveToDeadLetter(jobID string, reason string) error
	Depth() (int64, error)
	Close() error
}

// Config configures a named queue's retry/visibility behavior.
type Config struct {
	Name              string
	VisibilityTimeout time.Duration
	MaxRetries        int
	RetentionPeriod   time.Duration
}

// DefaultConfigs returns the default configuration for the pipeline and
// sync queues named in spec.md §6a.
func DefaultConfigs() map[string]Config {
	return map[string]Config{
		"pipeline": {
			Name:              "pipeline",
			VisibilityTimeout: 120 * time.Second,
			MaxRetries:        3,
			RetentionPeriod:   24 * time.Hour,
		},
		"sync": {
			Name:              "sync",
			VisibilityTimeout: 60 * time.Second,
			MaxRetries:        3,
			RetentionPeriod:   24 * time.Hour,
		},
	}
}

var _ Job = (*PipelineJob)(nil)
var _ Job = (*SyncJob)(nil)
