package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Csabesz1130/eventhint/pkg/db"
	"github.com/Csabesz1130/eventhint/pkg/logging"
	"github.com/Csabesz1130/eventhint/pkg/model"
	"github.com/Csabesz1130/eventhint/pkg/queue"
)

// newIngestCmd stores an uploaded file as a Message and enqueues a
// pipeline job, mirroring POST /api/ingestion/upload's semantics (the
// MAX_UPLOAD_SIZE check included) without serving HTTP, for local testing.
func newIngestCmd() *cobra.Command {
	var provider, path, ownerID string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "ingest a message for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider != string(model.ProviderUpload) {
				return fmt.Errorf("ingest: only --provider=upload is supported, got %q", provider)
			}
			if path == "" {
				return fmt.Errorf("ingest: --path is required")
			}
			owner, err := uuid.Parse(ownerID)
			if err != nil {
				return fmt.Errorf("ingest: --owner must be a valid UUID: %w", err)
			}

			cfg := loadConfigOrExit()
			log := logging.Global()

			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("reading upload: %w", err)
			}
			if info.Size() > cfg.MaxUploadSize {
				return fmt.Errorf("ingest: file is %d bytes, exceeds MAX_UPLOAD_SIZE of %d", info.Size(), cfg.MaxUploadSize)
			}

			ctx, cancel := signalContext()
			defer cancel()

			pool, err := db.ConnectWithRetry(ctx, &db.Config{RawURL: cfg.DatabaseURL}, 5, 0)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer pool.Close()

			repo := model.NewRepository(pool, log)

			storagePath, err := storeUpload(cfg.UploadDir, path)
			if err != nil {
				return fmt.Errorf("storing upload: %w", err)
			}

			msg := &model.Message{
				ID:         uuid.New(),
				OwnerID:    owner,
				Provider:   model.ProviderUpload,
				Subject:    filepath.Base(path),
				ReceivedAt: time.Now(),
				Attachments: []model.Attachment{{
					Filename:    filepath.Base(path),
					SizeBytes:   info.Size(),
					StoragePath: storagePath,
				}},
			}
			if err := repo.CreateMessage(ctx, msg); err != nil {
				return fmt.Errorf("storing message: %w", err)
			}

			redisClient := redis.NewClient(&redis.Options{Addr: redisAddr(cfg.RedisURL)})
			defer redisClient.Close()

			q := queue.NewRedisQueue(redisClient, queue.DefaultConfigs()["pipeline"])
			if err := q.Enqueue(&queue.PipelineJob{
				MessageID: msg.ID.String(),
				Priority:  queue.PriorityNormal,
				QueuedAt:  time.Now(),
			}); err != nil {
				return fmt.Errorf("enqueuing pipeline job: %w", err)
			}

			fmt.Printf("ingested message %s, enqueued for pipeline processing\n", msg.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "upload", "ingestion provider (only \"upload\" is supported locally)")
	cmd.Flags().StringVar(&path, "path", "", "path to the file to ingest")
	cmd.Flags().StringVar(&ownerID, "owner", "", "owner user id (UUID)")
	cmd.MarkFlagRequired("path")
	cmd.MarkFlagRequired("owner")
	return cmd
}

// storeUpload copies src into uploadDir under a random name and returns
// the path the AttachmentReader should read back.
func storeUpload(uploadDir, src string) (string, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(uploadDir, uuid.NewString()+filepath.Ext(src))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

// readUploadedFile reads back a file previously stored by storeUpload.
// storagePath is already an absolute-or-relative path under uploadDir, so
// uploadDir itself is unused here; it's kept as a parameter so callers
// don't need to know that storeUpload returns a fully qualified path.
func readUploadedFile(uploadDir, storagePath string) ([]byte, error) {
	return os.ReadFile(storagePath)
}
