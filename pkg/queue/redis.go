package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue implements Queue over a Redis sorted set per named queue
// ("pipeline" or "sync"), a parallel sorted set tracking in-flight jobs by
// visibility deadline, and a dead-letter sorted set, grounded on
// pkg/enrichment/queues/redis.go's ZADD/ZPopMax design.
type RedisQueue struct {
	client     *redis.Client
	name       string
	config     Config
	ctx        context.Context
	cancelFunc context.CancelFunc
}

func NewRedisQueue(client *redis.Client, config Config) *RedisQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisQueue{client: client, name: config.Name, config: config, ctx: ctx, cancelFunc: cancel}
}

const (
	keyPrefixQueue      = "eventhint:queue:"
	keyPrefixProcessing = "eventhint:processing:"
	keyPrefixJob        = "eventhint:job:"
	keyPrefixDLQ        = "eventhint:dlq:"
)

func (q *RedisQueue) Name() string { return q.name }

// Enqueue adds job to the queue, scored by priority then arrival order so
// ZPopMax drains high-priority jobs first and preserves FIFO within a
// priority tier.
func (q *RedisQueue) Enqueue(job Job) error {
	jobID := uuid.New().String()

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}

	qj := &QueuedJob{
		ID:         jobID,
		Job:        payload,
		Kind:       job.GetKind(),
		Priority:   job.GetPriority(),
		RetryCount: 0,
		EnqueuedAt: time.Now(),
	}

	qjBytes, err := json.Marshal(qj)
	if err != nil {
		return fmt.Errorf("marshaling queued job: %w", err)
	}

	pipe := q.client.TxPipeline()
	jobKey := keyPrefixJob + q.name + ":" + jobID
	pipe.Set(q.ctx, jobKey, qjBytes, q.config.RetentionPeriod)

	queueKey := keyPrefixQueue + q.name
	score := float64(job.GetPriority())*1e12 + float64(time.Now().UnixNano())
	pipe.ZAdd(q.ctx, queueKey, redis.Z{Score: score, Member: jobID})

	if _, err := pipe.Exec(q.ctx); err != nil {
		return fmt.Errorf("enqueueing job: %w", err)
	}
	return nil
}

// Dequeue pops up to maxJobs from the queue, moving each into the
// processing set with a visibility deadline.
func (q *RedisQueue) Dequeue(maxJobs int, timeout time.Duration) ([]*QueuedJob, error) {
	if maxJobs <= 0 {
		maxJobs = 1
	}

	queueKey := keyPrefixQueue + q.name
	processingKey := keyPrefixProcessing + q.name
	deadline := time.Now().Add(timeout)

	var jobs []*QueuedJob

	for time.Now().Before(deadline) && len(jobs) < maxJobs {
		result, err := q.client.ZPopMax(q.ctx, queueKey, 1).Result()
		if err == redis.Nil || len(result) == 0 {
			select {
			case <-time.After(100 * time.Millisecond):
				continue
			case <-q.ctx.Done():
				return jobs, q.ctx.Err()
			}
		}
		if err != nil {
			return jobs, fmt.Errorf("popping queue: %w", err)
		}

		jobID := result[0].Member.(string)
		jobKey := keyPrefixJob + q.name + ":" + jobID

		data, err := q.client.Get(q.ctx, jobKey).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return jobs, fmt.Errorf("reading job: %w", err)
		}

		var qj QueuedJob
		if err := json.Unmarshal(data, &qj); err != nil {
			return jobs, fmt.Errorf("decoding job: %w", err)
		}

		visibleAfter := time.Now().Add(q.config.VisibilityTimeout)
		qj.VisibleAfter = visibleAfter
		updated, _ := json.Marshal(qj)

		pipe := q.client.TxPipeline()
		pipe.Set(q.ctx, jobKey, updated, q.config.RetentionPeriod)
		pipe.ZAdd(q.ctx, processingKey, redis.Z{Score: float64(visibleAfter.UnixNano()), Member: jobID})
		if _, err := pipe.Exec(q.ctx); err != nil {
			return jobs, fmt.Errorf("moving job to processing: %w", err)
		}

		jobs = append(jobs, &qj)
	}

	return jobs, nil
}

func (q *RedisQueue) Ack(jobID string) error {
	processingKey := keyPrefixProcessing + q.name
	jobKey := keyPrefixJob + q.name + ":" + jobID

	pipe := q.client.TxPipeline()
	pipe.ZRem(q.ctx, processingKey, jobID)
	pipe.Del(q.ctx, jobKey)
	if _, err := pipe.Exec(q.ctx); err != nil {
		return fmt.Errorf("acking job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Nack(jobID string) error {
	processingKey := keyPrefixProcessing + q.name
	jobKey := keyPrefixJob + q.name + ":" + jobID

	data, err := q.client.Get(q.ctx, jobKey).Bytes()
	if err == redis.Nil {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("reading job: %w", err)
	}

	var qj QueuedJob
	if err := json.Unmarshal(data, &qj); err != nil {
		return fmt.Errorf("decoding job: %w", err)
	}

	qj.RetryCount++
	if qj.RetryCount >= q.config.MaxRetries {
		return q.MoveToDeadLetter(jobID, "max retries exceeded")
	}

	policy := DefaultRetryPolicy()
	backoff := policy.CalculateBackoff(qj.RetryCount)
	qj.VisibleAfter = time.Now().Add(backoff)
	updated, _ := json.Marshal(qj)

	queueKey := keyPrefixQueue + q.name
	pipe := q.client.TxPipeline()
	pipe.ZRem(q.ctx, processingKey, jobID)
	pipe.Set(q.ctx, jobKey, updated, q.config.RetentionPeriod)
	score := float64(qj.Priority)*1e12 + float64(qj.VisibleAfter.UnixNano())
	pipe.ZAdd(q.ctx, queueKey, redis.Z{Score: score, Member: jobID})

	if _, err := pipe.Exec(q.ctx); err != nil {
		return fmt.Errorf("nacking job: %w", err)
	}
	return nil
}

func (q *RedisQueue) MoveToDeadLetter(jobID string, reason string) error {
	processingKey := keyPrefixProcessing + q.name
	jobKey := keyPrefixJob + q.name + ":" + jobID
	dlqKey := keyPrefixDLQ + q.name

	data, err := q.client.Get(q.ctx, jobKey).Bytes()
	if err == redis.Nil {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("reading job: %w", err)
	}

	entry := map[string]interface{}{
		"job":      string(data),
		"reason":   reason,
		"moved_at": time.Now().Format(time.RFC3339),
		"queue":    q.name,
	}
	entryData, _ := json.Marshal(entry)

	pipe := q.client.TxPipeline()
	pipe.ZRem(q.ctx, processingKey, jobID)
	pipe.Del(q.ctx, jobKey)
	pipe.ZAdd(q.ctx, dlqKey, redis.Z{Score: float64(time.Now().UnixNano()), Member: string(entryData)})

	if _, err := pipe.Exec(q.ctx); err != nil {
		return fmt.Errorf("moving job to dead letter: %w", err)
	}
	return nil
}

func (q *RedisQueue) Depth() (int64, error) {
	return q.client.ZCard(q.ctx, keyPrefixQueue+q.name).Result()
}

func (q *RedisQueue) Close() error {
	q.cancelFunc()
	return nil
}

// RecoverStaleJobs re-enqueues or dead-letters jobs whose visibility
// deadline has passed without an Ack/Nack, meant to run on a periodic
// ticker alongside the worker pools.
func (q *RedisQueue) RecoverStaleJobs() error {
	processingKey := keyPrefixProcessing + q.name
	queueKey := keyPrefixQueue + q.name

	now := float64(time.Now().UnixNano())
	stale, err := q.client.ZRangeByScore(q.ctx, processingKey, &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%f", now), Count: 100,
	}).Result()
	if err != nil {
		return fmt.Errorf("finding stale jobs: %w", err)
	}

	for _, jobID := range stale {
		jobKey := keyPrefixJob + q.name + ":" + jobID

		data, err := q.client.Get(q.ctx, jobKey).Bytes()
		if err == redis.Nil {
			q.client.ZRem(q.ctx, processingKey, jobID)
			continue
		}
		if err != nil {
			continue
		}

		var qj QueuedJob
		if err := json.Unmarshal(data, &qj); err != nil {
			continue
		}

		qj.RetryCount++
		if qj.RetryCount >= q.config.MaxRetries {
			q.MoveToDeadLetter(jobID, "visibility timeout exceeded")
			continue
		}

		updated, _ := json.Marshal(qj)
		pipe := q.client.TxPipeline()
		pipe.ZRem(q.ctx, processingKey, jobID)
		pipe.Set(q.ctx, jobKey, updated, q.config.RetentionPeriod)
		score := float64(qj.Priority)*1e12 + float64(time.Now().UnixNano())
		pipe.ZAdd(q.ctx, queueKey, redis.Z{Score: score, Member: jobID})
		pipe.Exec(q.ctx)
	}
	return nil
}

var _ Queue = (*RedisQueue)(nil)
