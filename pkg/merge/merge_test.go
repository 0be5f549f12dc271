package merge

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Csabesz1130/eventhint/pkg/model"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parsing time %q: %v", s, err)
	}
	return tm
}

func TestMergeAndValidate_SameEventDifferentSources(t *testing.T) {
	start := mustParse(t, "2026-03-05T10:00:00Z")
	msgID := uuid.New()

	deterministic := Draft{
		Source: model.MethodDeterministic,
		Event: model.Event{
			Title:           "Algebra Midterm Exam",
			Start:           start,
			Timezone:        "Europe/Budapest",
			Labels:          []string{model.LabelExam},
			Method:          model.MethodDeterministic,
			SourceMessageID: msgID,
		},
	}
	llm := Draft{
		Source: model.MethodLLM,
		Event: model.Event{
			Title:           "Algebra Midterm",
			Start:           start.Add(2 * time.Minute),
			Location:        "Room 204",
			Timezone:        "Europe/Budapest",
			Notes:           "Bring calculator",
			Method:          model.MethodLLM,
			SourceMessageID: msgID,
		},
	}

	merged := MergeAndValidate([]Draft{deterministic, llm})
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged event, got %d", len(merged))
	}

	ev := merged[0]
	if ev.Title != "Algebra Midterm Exam" {
		t.Errorf("expected deterministic title to win as base, got %q", ev.Title)
	}
	if ev.Location != "Room 204" {
		t.Errorf("expected location filled from llm draft, got %q", ev.Location)
	}
	if ev.Method != model.MethodHybrid {
		t.Errorf("expected method hybrid after merging two sources, got %s", ev.Method)
	}
	if ev.Notes != "Bring calculator" {
		t.Errorf("expected notes carried from llm draft, got %q", ev.Notes)
	}
}

func TestMergeAndValidate_DistinctEventsNotMerged(t *testing.T) {
	start := mustParse(t, "2026-03-05T10:00:00Z")

	a := Draft{Source: model.MethodDeterministic, Event: model.Event{
		Title: "Algebra Exam", Start: start, Timezone: "UTC",
	}}
	b := Draft{Source: model.MethodLLM, Event: model.Event{
		Title: "Team Standup", Start: start, Timezone: "UTC",
	}}

	merged := MergeAndValidate([]Draft{a, b})
	if len(merged) != 2 {
		t.Fatalf("expected 2 distinct events, got %d", len(merged))
	}
}

func TestMergeAndValidate_DifferentBucketsNotMerged(t *testing.T) {
	start := mustParse(t, "2026-03-05T10:00:00Z")

	a := Draft{Source: model.MethodDeterministic, Event: model.Event{
		Title: "Algebra Exam", Start: start, Timezone: "UTC",
	}}
	b := Draft{Source: model.MethodDeterministic, Event: model.Event{
		Title: "Algebra Exam", Start: start.Add(20 * time.Minute), Timezone: "UTC",
	}}

	merged := MergeAndValidate([]Draft{a, b})
	if len(merged) != 2 {
		t.Fatalf("expected 2 events for drafts in different 15-minute buckets, got %d", len(merged))
	}
}

func TestMergeAndValidate_InvalidDraftDropped(t *testing.T) {
	start := mustParse(t, "2026-03-05T10:00:00Z")

	invalid := Draft{Source: model.MethodDeterministic, Event: model.Event{
		Title: "A", // too short
		Start: start,
	}}

	merged := MergeAndValidate([]Draft{invalid})
	if len(merged) != 0 {
		t.Fatalf("expected invalid draft to be dropped, got %d events", len(merged))
	}
}

func TestMergeAndValidate_RemindersDedupedByMinutes(t *testing.T) {
	start := mustParse(t, "2026-03-05T10:00:00Z")

	a := Draft{Source: model.MethodDeterministic, Event: model.Event{
		Title: "Flight to Budapest", Start: start, Timezone: "UTC",
		Reminders: []model.Reminder{{Method: model.ReminderPopup, Minutes: 60}},
	}}
	b := Draft{Source: model.MethodLLM, Event: model.Event{
		Title: "Flight to Budapest", Start: start, Timezone: "UTC",
		Reminders: []model.Reminder{
			{Method: model.ReminderEmail, Minutes: 60},
			{Method: model.ReminderPopup, Minutes: 1440},
		},
	}}

	merged := MergeAndValidate([]Draft{a, b})
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged event, got %d", len(merged))
	}
	if len(merged[0].Reminders) != 2 {
		t.Fatalf("expected reminders deduped by minutes to 2 entries, got %d", len(merged[0].Reminders))
	}
}

func TestCalculateConfidence(t *testing.T) {
	end := mustParse(t, "2026-03-05T11:00:00Z")
	ev := model.Event{
		Title:    "Algebra Midterm Exam",
		Start:    mustParse(t, "2026-03-05T10:00:00Z"),
		End:      &end,
		Location: "Room 204",
		Method:   model.MethodDeterministic,
	}

	got := CalculateConfidence(ev, ConfidenceInput{TrustedSender: true, OCRConfidence: 1.0})
	want := 0.3 + 0.05 + 0.2 + 0.1 + 0.2 + 0.05 // 0.9
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected confidence %.3f, got %.3f", want, got)
	}
}

func TestCalculateConfidence_ScaledByOCRConfidence(t *testing.T) {
	ev := model.Event{
		Title:  "Algebra Midterm Exam",
		Start:  mustParse(t, "2026-03-05T10:00:00Z"),
		Method: model.MethodDeterministic,
	}

	full := CalculateConfidence(ev, ConfidenceInput{OCRConfidence: 1.0})
	scaled := CalculateConfidence(ev, ConfidenceInput{OCRConfidence: 0.5})

	if scaled >= full {
		t.Errorf("expected OCR confidence < 1.0 to scale score down: full=%.3f scaled=%.3f", full, scaled)
	}
	if diff := scaled - full*0.5; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected scaled score to equal full*0.5 (%.3f), got %.3f", full*0.5, scaled)
	}
}

func TestCalculateConfidence_CappedAtOne(t *testing.T) {
	end := mustParse(t, "2026-03-05T11:00:00Z")
	ev := model.Event{
		Title:    "Algebra Midterm Exam With Room",
		Start:    mustParse(t, "2026-03-05T10:00:00Z"),
		End:      &end,
		Location: "Room 204",
		Method:   model.MethodHybrid,
	}

	got := CalculateConfidence(ev, ConfidenceInput{TrustedSender: true, OCRConfidence: 1.0})
	if got > 1.0 {
		t.Errorf("expected confidence capped at 1.0, got %.3f", got)
	}
}

func TestShouldAutoApprove(t *testing.T) {
	tests := []struct {
		name          string
		autoApprove   bool
		confidence    float64
		trustedSender bool
		want          bool
	}{
		{"auto-approve disabled", false, 0.99, true, false},
		{"high confidence", true, 0.9, false, true},
		{"moderate confidence untrusted", true, 0.8, false, false},
		{"moderate confidence trusted", true, 0.7, true, true},
		{"low confidence trusted", true, 0.6, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := model.User{AutoApproveEnabled: tt.autoApprove}
			got := ShouldAutoApprove(user, tt.confidence, tt.trustedSender)
			if got != tt.want {
				t.Errorf("ShouldAutoApprove() = %v, want %v", got, tt.want)
			}
		})
	}
}
