package model

import (
	"strings"
	"time"

	pipelineerrors "github.com/Csabesz1130/eventhint/pkg/errors"
)

// Validate checks the invariants from SPEC_FULL.md §3: a title of at least
// two trimmed characters, a non-zero start, end (if present) not before
// start, and a type normalized to event/task. It does not touch Status —
// callers decide when a draft becomes PENDING_APPROVAL.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" || len(strings.TrimSpace(e.Title)) < 2 {
		return pipelineerrors.ErrValidation
	}
	if e.Start.IsZero() {
		return pipelineerrors.ErrValidation
	}
	if e.End != nil && e.End.Before(e.Start) {
		return pipelineerrors.ErrValidation
	}
	switch e.Type {
	case EventTypeEvent, EventTypeTask:
	case "":
		e.Type = EventTypeEvent
	default:
		return pipelineerrors.ErrValidation
	}
	if e.Timezone == "" {
		e.Timezone = "UTC"
	}
	if e.Attendees == nil {
		e.Attendees = []Attendee{}
	}
	if e.Reminders == nil {
		e.Reminders = []Reminder{}
	}
	if e.Labels == nil {
		e.Labels = []string{}
	}
	return nil
}

// IsSynced reports whether the event is SYNCED and carries a non-empty
// ExternalEventID. The full iff check of I1 is done by CheckInvariants.
func (e *Event) IsSynced() bool {
	return e.Status == StatusSynced && e.ExternalEventID != ""
}

// CheckInvariants validates I1-I2 from spec.md §3 for an already-persisted
// Event. I3 (status transitions) is enforced by pkg/lifecycle, not here.
func (e *Event) CheckInvariants() error {
	if (e.ExternalEventID != "") != (e.Status == StatusSynced) {
		return pipelineerrors.ErrInvalidState
	}
	if e.ApprovedAt == nil && (e.Status == StatusApproved || e.Status == StatusSynced) {
		return pipelineerrors.ErrInvalidState
	}
	return nil
}

// MarkProcessed sets Message.processed and its paired fields, enforcing
// that a processed message always carries either events or an error (the
// invariant from spec.md §3).
func (m *Message) MarkProcessed(now time.Time, hadEvents bool, procErr string) {
	m.Processed = true
	m.ProcessedAt = &now
	if !hadEvents && procErr == "" {
		procErr = "no events extracted"
	}
	if procErr != "" {
		m.ProcessingError = procErr
	}
}
