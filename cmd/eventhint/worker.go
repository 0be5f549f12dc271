package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Csabesz1130/eventhint/pkg/calendarsync"
	"github.com/Csabesz1130/eventhint/pkg/config"
	"github.com/Csabesz1130/eventhint/pkg/db"
	"github.com/Csabesz1130/eventhint/pkg/extraction"
	"github.com/Csabesz1130/eventhint/pkg/lifecycle"
	"github.com/Csabesz1130/eventhint/pkg/logging"
	"github.com/Csabesz1130/eventhint/pkg/model"
	"github.com/Csabesz1130/eventhint/pkg/ocr"
	"github.com/Csabesz1130/eventhint/pkg/pipeline"
	"github.com/Csabesz1130/eventhint/pkg/providers"
	"github.com/Csabesz1130/eventhint/pkg/queue"
	"github.com/Csabesz1130/eventhint/pkg/worker"
)

// newWorkerCmd runs the pipeline or sync worker pool against the
// pipeline/sync queues, grounded on the teacher's pkg/enrichment/workers
// pool plus its cmd-level start-and-wait-for-signal shape.
func newWorkerCmd() *cobra.Command {
	var queueName string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "run the pipeline or sync worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			if queueName != "pipeline" && queueName != "sync" {
				return fmt.Errorf("--queue must be \"pipeline\" or \"sync\", got %q", queueName)
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

			redisClient := redis.NewClient(&redis.Options{Addr: redisAddr(cfg.RedisURL)})
			defer redisClient.Close()

			queueConfigs := queue.DefaultConfigs()
			poolConfigs := worker.DefaultConfigs()

			q := queue.NewRedisQueue(redisClient, queueConfigs[queueName])
			if err := q.RecoverStaleJobs(); err != nil {
				log.Warn("recovering stale jobs failed", logging.Err(err))
			}

			var handler worker.JobHandler
			switch queueName {
			case "pipeline":
				syncQueue := queue.NewRedisQueue(redisClient, queueConfigs["sync"])
				defer syncQueue.Close()
				handler = pipelineHandler(repo, cfg, syncQueue)
			case "sync":
				handler = syncHandler(repo)
			}

			wp := worker.NewPool(poolConfigs[queueName], q, handler)
			wp.Start()
			log.Info("worker pool started", logging.F("queue", queueName), logging.F("workers", poolConfigs[queueName].Count))

			<-ctx.Done()
			log.Info("shutdown signal received, draining workers")
			wp.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&queueName, "queue", "", "queue to drain: pipeline or sync")
	cmd.MarkFlagRequired("queue")
	return cmd
}

// redisAddr strips a redis:// scheme prefix since go-redis's Options.Addr
// wants host:port, not a full URL.
func redisAddr(rawURL string) string {
	const prefix = "redis://"
	if len(rawURL) > len(prefix) && rawURL[:len(prefix)] == prefix {
		return rawURL[len(prefix):]
	}
	return rawURL
}

// pipelineHandler wraps pkg/pipeline.Pipeline.Process as a worker.JobHandler
// for PipelineJob payloads. syncQueue is the redis sync queue the pipeline
// enqueues a SyncJob onto when an event auto-approves (§4.5 stage 5).
func pipelineHandler(repo *model.Repository, cfg *config.Config, syncQueue queue.Queue) worker.JobHandler {
	p := &pipeline.Pipeline{
		Scraper: &providers.Scraper{},
		OCR: &ocr.Router{
			Free:                &ocr.TesseractProvider{},
			Premium:             &ocr.VisionProvider{},
			PreferFree:          true,
			PremiumEnabled:      cfg.EnableGoogleVision,
			ConfidenceThreshold: cfg.OCRConfidenceThreshold,
		},
		LLM: &extraction.LLMExtractor{
			Enabled:   cfg.EnableLLMFallback,
			Model:     cfg.OpenAIModel,
			MaxTokens: cfg.OpenAIMaxTokens,
		},
		Events:      repo,
		Sync:        repoSyncEnqueuer{queue: syncQueue},
		Attachments: localAttachmentReader{uploadDir: cfg.UploadDir},
	}

	return func(ctx context.Context, job queue.Job) error {
		pj, ok := job.(*queue.PipelineJob)
		if !ok {
			return fmt.Errorf("worker: expected *queue.PipelineJob, got %T", job)
		}
		msgID, err := uuid.Parse(pj.MessageID)
		if err != nil {
			return fmt.Errorf("parsing message id: %w", err)
		}
		msg, err := repo.GetMessage(ctx, msgID)
		if err != nil {
			return fmt.Errorf("loading message: %w", err)
		}
		owner, err := repo.GetUser(ctx, msg.OwnerID)
		if err != nil {
			return fmt.Errorf("loading owner: %w", err)
		}
		if err := p.Process(ctx, msg, *owner, msg.Provider == model.ProviderGmail, time.Now()); err != nil {
			return err
		}
		return repo.MarkMessageProcessed(ctx, msg)
	}
}

// syncHandler wraps pkg/calendarsync.Syncer.Sync as a worker.JobHandler for
// SyncJob payloads, resolving the job's explicit calendar_id when present,
// else the owner's default active calendar; when neither resolves the
// event is set to ERROR rather than the job failing (§4.6).
func syncHandler(repo *model.Repository) worker.JobHandler {
	return func(ctx context.Context, job queue.Job) error {
		sj, ok := job.(*queue.SyncJob)
		if !ok {
			return fmt.Errorf("worker: expected *queue.SyncJob, got %T", job)
		}
		evID, err := uuid.Parse(sj.EventID)
		if err != nil {
			return fmt.Errorf("parsing event id: %w", err)
		}
		ev, err := repo.GetEvent(ctx, evID)
		if err != nil {
			return fmt.Errorf("loading event: %w", err)
		}

		cal, err := resolveCalendar(ctx, repo, ev.OwnerID, sj.CalendarID)
		if err != nil {
			log := logging.Global()
			log.Warn("no calendar resolved for sync job, marking event ERROR",
				logging.F("event_id", ev.ID), logging.Err(err))
			_ = lifecycle.MarkError(ev, time.Now())
			return repo.UpdateEventStatus(ctx, ev)
		}

		syncer := &calendarsync.Syncer{
			Client: &providers.CalendarClient{CalendarID: cal.ExternalID},
			Events: repo,
		}
		if err := syncer.Sync(ctx, ev, time.Now()); err != nil {
			return err
		}
		return repo.UpdateEventStatus(ctx, ev)
	}
}

// resolveCalendar honors an explicit calendar_id from the job first, falling
// back to the owner's default active calendar, per §4.6.
func resolveCalendar(ctx context.Context, repo *model.Repository, ownerID uuid.UUID, calendarID string) (*model.Calendar, error) {
	if calendarID != "" {
		calID, err := uuid.Parse(calendarID)
		if err != nil {
			return nil, fmt.Errorf("parsing calendar id: %w", err)
		}
		return repo.GetCalendar(ctx, calID)
	}
	return repo.GetDefaultCalendar(ctx, ownerID)
}

// repoSyncEnqueuer enqueues a SyncJob on the redis sync queue, the real
// production Sync enqueuer wired into pkg/pipeline's stage 5 auto-approval
// and the approve command's manual approval.
type repoSyncEnqueuer struct {
	queue queue.Queue
}

func (r repoSyncEnqueuer) EnqueueSync(ctx context.Context, eventID uuid.UUID, calendarID *uuid.UUID) error {
	sj := &queue.SyncJob{
		EventID:  eventID.String(),
		Priority: queue.PriorityHigh,
		QueuedAt: time.Now(),
	}
	if calendarID != nil {
		sj.CalendarID = calendarID.String()
	}
	return r.queue.Enqueue(sj)
}

// localAttachmentReader reads attachment bytes from the local upload
// directory, the storage backend used by the "upload" provider.
type localAttachmentReader struct {
	uploadDir string
}

func (l localAttachmentReader) ReadAttachment(ctx context.Context, storagePath string) ([]byte, error) {
	return readUploadedFile(l.uploadDir, storagePath)
}
