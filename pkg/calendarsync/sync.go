package calendarsync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pipelineerrors "github.com/Csabesz1130/eventhint/pkg/errors"
	"github.com/Csabesz1130/eventhint/pkg/lifecycle"
	"github.com/Csabesz1130/eventhint/pkg/logging"
	"github.com/Csabesz1130/eventhint/pkg/model"
	"github.com/Csabesz1130/eventhint/pkg/providers"
)

// ProviderClient is the subset of providers.CalendarClient CalendarSync
// needs, so tests can substitute a fake without a real HTTP round trip.
type ProviderClient interface {
	CreateEvent(ctx context.Context, gcalEvent providers.GCalEvent) (string, error)
	UpdateEvent(ctx context.Context, externalID string, gcalEvent providers.GCalEvent) error
	DeleteEvent(ctx context.Context, externalID string) error
}

// EventDeleter removes an event's local record, the last step of Undo.
type EventDeleter interface {
	DeleteEvent(ctx context.Context, id uuid.UUID) error
}

// Syncer pushes approved events to their target calendar, tracking
// external_event_id for idempotency. A Sync call on an already-SYNCED
// event (a redelivered job) is a no-op, checked before any external call;
// an event that already carries an external id when it's still APPROVED
// (a retry after the previous attempt's local persist failed) updates in
// place rather than creating a duplicate.
type Syncer struct {
	Client ProviderClient
	Events EventDeleter
}

// Sync pushes ev to the provider: if it has no external_event_id yet,
// creates it; otherwise updates the existing provider event. On success
// it transitions ev to SYNCED via pkg/lifecycle. On failure it marks the
// event ERROR so a later retry can pick it back up, and returns the
// error. Sync enforces the §4.6 precondition that ev is APPROVED before
// making any external call; an already-SYNCED event is a no-op and any
// other status is rejected.
func (s *Syncer) Sync(ctx context.Context, ev *model.Event, now time.Time) error {
	if ev.Status == model.StatusSynced {
		return nil
	}
	if ev.Status != model.StatusApproved {
		return fmt.Errorf("syncing event in status %s: %w", ev.Status, pipelineerrors.ErrInvalidState)
	}

	if err := ValidateRRule(ev.RRule); err != nil {
		return err
	}

	gcalEvent := ToProviderEvent(*ev)
	log := logging.Global()

	if ev.ExternalEventID == "" {
		externalID, err := s.Client.CreateEvent(ctx, gcalEvent)
		if err != nil {
			_ = lifecycle.MarkError(ev, now)
			return fmt.Errorf("creating provider event: %w", err)
		}
		if err := lifecycle.MarkSynced(ev, externalID, now); err != nil {
			return err
		}
		log.Info("event synced (created)", logging.F("event_id", ev.ID), logging.F("external_event_id", externalID))
		return nil
	}

	if err := s.Client.UpdateEvent(ctx, ev.ExternalEventID, gcalEvent); err != nil {
		_ = lifecycle.MarkError(ev, now)
		return fmt.Errorf("updating provider event: %w", err)
	}
	if err := lifecycle.MarkSynced(ev, ev.ExternalEventID, now); err != nil {
		return err
	}
	log.Info("event synced (updated)", logging.F("event_id", ev.ID), logging.F("external_event_id", ev.ExternalEventID))
	return nil
}

// Undo reverses a sync per §4.6: delete the provider event (logging but
// not failing on error, since a provider-side 404 shouldn't block undoing
// locally), then delete the local event record entirely.
func (s *Syncer) Undo(ctx context.Context, ev *model.Event, now time.Time) error {
	if ev.ExternalEventID != "" {
		if err := s.Client.DeleteEvent(ctx, ev.ExternalEventID); err != nil {
			logging.Global().Warn("deleting provider event failed, undoing locally anyway",
				logging.F("event_id", ev.ID), logging.Err(err))
		}
	}
	if s.Events != nil {
		if err := s.Events.DeleteEvent(ctx, ev.ID); err != nil {
			return fmt.Errorf("deleting local event: %w", err)
		}
	}
	return nil
}
