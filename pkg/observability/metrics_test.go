package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordPipelineJob_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordPipelineJob("processed")
	m.RecordPipelineJob("processed")
	m.RecordPipelineJob("failed")

	got := testutil.ToFloat64(m.PipelineJobsTotal.WithLabelValues("processed"))
	if got != 2 {
		t.Fatalf("got %v processed jobs, want 2", got)
	}
}

func TestMetrics_RecordSyncJob_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordSyncJob("synced")

	got := testutil.ToFloat64(m.SyncJobsTotal.WithLabelValues("synced"))
	if got != 1 {
		t.Fatalf("got %v synced jobs, want 1", got)
	}
}

func TestMetrics_SetQueueDepth_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetQueueDepth("pipeline", 7)

	got := testutil.ToFloat64(m.QueueDepth.WithLabelValues("pipeline"))
	if got != 7 {
		t.Fatalf("got queue depth %v, want 7", got)
	}
}

func TestMetrics_RecordStage_ObservesDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordStage(StageOCR, StageStatusCompleted, 0.25)

	count := testutil.CollectAndCount(m.PipelineStageDuration)
	if count == 0 {
		t.Fatal("expected pipeline_stage_duration_seconds to have at least one observation")
	}
}
