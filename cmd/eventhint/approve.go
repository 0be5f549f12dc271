package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Csabesz1130/eventhint/pkg/config"
	"github.com/Csabesz1130/eventhint/pkg/db"
	"github.com/Csabesz1130/eventhint/pkg/lifecycle"
	"github.com/Csabesz1130/eventhint/pkg/logging"
	"github.com/Csabesz1130/eventhint/pkg/model"
	"github.com/Csabesz1130/eventhint/pkg/queue"
)

// newApproveCmd drives pkg/lifecycle.Approve directly against the
// database, mirroring the approve endpoint's semantics for local testing
// and operator use, then enqueues the same SyncJob the approve endpoint
// would (§4.5 stage 5, §4.7) so manual approval also reaches the sync
// worker.
func newApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <event-id>",
		Short: "approve a pending event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transitionEvent(args[0], lifecycle.Approve, enqueueSyncAfterApprove)
		},
	}
	return cmd
}

// newRejectCmd drives pkg/lifecycle.Reject directly against the database.
// A rejected event never syncs, so no queue is involved.
func newRejectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject <event-id>",
		Short: "reject a pending event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transitionEvent(args[0], lifecycle.Reject, nil)
		},
	}
	return cmd
}

// transitionEvent loads the event named by eventIDStr, applies transition,
// persists the resulting status, and, when afterPersist is non-nil, runs it
// with the same database/config/context the transition used.
func transitionEvent(eventIDStr string, transition func(ev *model.Event, now time.Time) error, afterPersist func(ctx context.Context, cfg *config.Config, repo *model.Repository, ev *model.Event) error) error {
	eventID, err := uuid.Parse(eventIDStr)
	if err != nil {
		return fmt.Errorf("event id must be a valid UUID: %w", err)
	}

	cfg := loadConfigOrExit()
	log := logging.Global()

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := db.ConnectWithRetry(ctx, &db.Config{RawURL: cfg.DatabaseURL}, 5, 0)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	repo := model.NewRepository(pool, log)

	ev, err := repo.GetEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("loading event: %w", err)
	}

	if err := transition(ev, time.Now()); err != nil {
		return fmt.Errorf("transitioning event: %w", err)
	}

	if err := repo.UpdateEventStatus(ctx, ev); err != nil {
		return fmt.Errorf("persisting event status: %w", err)
	}

	if afterPersist != nil {
		if err := afterPersist(ctx, cfg, repo, ev); err != nil {
			return err
		}
	}

	fmt.Printf("event %s is now %s\n", ev.ID, ev.Status)
	return nil
}

// enqueueSyncAfterApprove pushes a SyncJob for ev onto the redis sync
// queue, the same path pkg/pipeline's auto-approval takes.
func enqueueSyncAfterApprove(ctx context.Context, cfg *config.Config, repo *model.Repository, ev *model.Event) error {
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr(cfg.RedisURL)})
	defer redisClient.Close()

	q := queue.NewRedisQueue(redisClient, queue.DefaultConfigs()["sync"])
	defer q.Close()

	enqueuer := repoSyncEnqueuer{queue: q}
	if err := enqueuer.EnqueueSync(ctx, ev.ID, nil); err != nil {
		return fmt.Errorf("enqueueing sync job: %w", err)
	}
	return nil
}
