// Package lifecycle implements the Event state machine and approval policy
// (spec C7): legal transitions between PENDING_APPROVAL, APPROVED, REJECTED,
// SYNCED, and ERROR, the auto-approval decision, and the janitorial sweep
// that prunes old rejected events.
package lifecycle

import (
	"time"

	pipelineerrors "github.com/Csabesz1130/eventhint/pkg/errors"
	"github.com/Csabesz1130/eventhint/pkg/merge"
	"github.com/Csabesz1130/eventhint/pkg/model"
)

// RejectedRetention is how long a REJECTED event is kept before the
// janitorial sweep deletes it.
const RejectedRetention = 30 * 24 * time.Hour

// transitions enumerates the legal successor states for each status. A
// status absent from the map (REJECTED, SYNCED) has no further transitions;
// ERROR recovers to APPROVED or REJECTED.
var transitions = map[model.EventStatus][]model.EventStatus{
	model.StatusPendingApproval: {model.StatusApproved, model.StatusRejected},
	model.StatusApproved:        {model.StatusSynced, model.StatusError},
	model.StatusError:           {model.StatusApproved, model.StatusRejected},
}

// CanTransitionTo reports whether moving an Event from `from` to `to` is a
// legal transition under I3.
func CanTransitionTo(from, to model.EventStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether status has no further outbound transitions
// (REJECTED and SYNCED are terminal; ERROR is recoverable).
func IsTerminal(status model.EventStatus) bool {
	return status == model.StatusRejected || status == model.StatusSynced
}

// IsRecoverable reports whether an Event in this status can still be
// approved or rejected (ERROR can; REJECTED/SYNCED cannot).
func IsRecoverable(status model.EventStatus) bool {
	return status == model.StatusError || status == model.StatusPendingApproval
}

func transition(ev *model.Event, to model.EventStatus, now time.Time) error {
	if !CanTransitionTo(ev.Status, to) {
		return pipelineerrors.ErrInvalidState
	}
	ev.Status = to
	ev.UpdatedAt = now
	return nil
}

// Approve moves an Event from PENDING_APPROVAL or ERROR to APPROVED,
// stamping ApprovedAt (I2).
func Approve(ev *model.Event, now time.Time) error {
	if err := transition(ev, model.StatusApproved, now); err != nil {
		return err
	}
	ev.ApprovedAt = &now
	return nil
}

// Reject moves an Event to REJECTED, stamping RejectedAt.
func Reject(ev *model.Event, now time.Time) error {
	if err := transition(ev, model.StatusRejected, now); err != nil {
		return err
	}
	ev.RejectedAt = &now
	return nil
}

// MarkSynced moves an approved Event to SYNCED, recording the provider's
// external id (I1).
func MarkSynced(ev *model.Event, externalEventID string, now time.Time) error {
	if err := transition(ev, model.StatusSynced, now); err != nil {
		return err
	}
	ev.ExternalEventID = externalEventID
	ev.SyncedAt = &now
	return nil
}

// MarkError moves an approved Event to ERROR after a failed sync attempt,
// leaving it eligible for a later Approve retry.
func MarkError(ev *model.Event, now time.Time) error {
	return transition(ev, model.StatusError, now)
}

// MaybeAutoApprove applies the auto-approval policy from merge.ShouldAutoApprove:
// if the owning user has opted in and the event's confidence (plus sender
// trust) clears the bar, the event is approved immediately instead of being
// left PENDING_APPROVAL.
func MaybeAutoApprove(ev *model.Event, owner model.User, trustedSender bool, now time.Time) error {
	if ev.Status != model.StatusPendingApproval {
		return nil
	}
	if !merge.ShouldAutoApprove(owner, ev.Confidence, trustedSender) {
		return nil
	}
	return Approve(ev, now)
}

// ExpiredRejected reports whether a REJECTED event is older than
// RejectedRetention and eligible for the janitorial sweep to delete.
func ExpiredRejected(ev model.Event, now time.Time) bool {
	if ev.Status != model.StatusRejected || ev.RejectedAt == nil {
		return false
	}
	return now.Sub(*ev.RejectedAt) >= RejectedRetention
}

// SweepExpiredRejected filters events down to those the janitor should
// delete.
func SweepExpiredRejected(events []model.Event, now time.Time) []model.Event {
	due := make([]model.Event, 0)
	for _, ev := range events {
		if ExpiredRejected(ev, now) {
			due = append(due, ev)
		}
	}
	return due
}
