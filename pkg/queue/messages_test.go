package queue

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPipelineJob_KindAndPriority(t *testing.T) {
	j := &PipelineJob{MessageID: "msg-1", Priority: PriorityNormal, QueuedAt: time.Now()}
	if j.GetKind() != JobKindPipeline {
		t.Fatalf("got kind %v, want %v", j.GetKind(), JobKindPipeline)
	}
	if j.GetPriority() != PriorityNormal {
		t.Fatalf("got priority %v, want %v", j.GetPriority(), PriorityNormal)
	}
}

func TestSyncJob_KindAndPriority(t *testing.T) {
	j := &SyncJob{EventID: "evt-1", Priority: PriorityHigh, QueuedAt: time.Now()}
	if j.GetKind() != JobKindSync {
		t.Fatalf("got kind %v, want %v", j.GetKind(), JobKindSync)
	}
	if j.GetPriority() != PriorityHigh {
		t.Fatalf("got priority %v, want %v", j.GetPriority(), PriorityHigh)
	}
}

func TestQueuedJob_ParseJob_Pipeline(t *testing.T) {
	payload, _ := json.Marshal(&PipelineJob{MessageID: "msg-1", Priority: PriorityNormal, QueuedAt: time.Now()})
	qj := &QueuedJob{Kind: JobKindPipeline, Job: payload}

	job, err := qj.ParseJob()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pj, ok := job.(*PipelineJob)
	if !ok {
		t.Fatalf("got %T, want *PipelineJob", job)
	}
	if pj.MessageID != "msg-1" {
		t.Fatalf("got message id %q, want %q", pj.MessageID, "msg-1")
	}
}

func TestQueuedJob_ParseJob_Sync(t *testing.T) {
	payload, _ := json.Marshal(&SyncJob{EventID: "evt-1", Priority: PriorityHigh, QueuedAt: time.Now()})
	qj := &QueuedJob{Kind: JobKindSync, Job: payload}

	job, err := qj.ParseJob()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sj, ok := job.(*SyncJob)
	if !ok {
		t.Fatalf("got %T, want *SyncJob", job)
	}
	if sj.EventID != "evt-1" {
		t.Fatalf("got event id %q, want %q", sj.EventID, "evt-1")
	}
}

func TestQueuedJob_ParseJob_UnknownKind(t *testing.T) {
	qj := &QueuedJob{Kind: JobKind("bogus"), Job: json.RawMessage(`{}`)}

	_, err := qj.ParseJob()
	if err != ErrUnknownJobKind {
		t.Fatalf("got err %v, want %v", err, ErrUnknownJobKind)
	}
}

func TestDefaultConfigs_HasPipelineAndSync(t *testing.T) {
	configs := DefaultConfigs()

	pipeline, ok := configs["pipeline"]
	if !ok {
		t.Fatal("missing pipeline queue config")
	}
	if pipeline.VisibilityTimeout != 120*time.Second {
		t.Fatalf("got pipeline visibility timeout %v, want 120s", pipeline.VisibilityTimeout)
	}
	if pipeline.MaxRetries != 3 {
		t.Fatalf("got pipeline max retries %d, want 3", pipeline.MaxRetries)
	}

	sync, ok := configs["sync"]
	if !ok {
		t.Fatal("missing sync queue config")
	}
	if sync.VisibilityTimeout != 60*time.Second {
		t.Fatalf("got sync visibility timeout %v, want 60s", sync.VisibilityTimeout)
	}
	if sync.MaxRetries != 3 {
		t.Fatalf("got sync max retries %d, want 3", sync.MaxRetries)
	}
}
