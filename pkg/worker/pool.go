// Package worker runs pools of goroutines that drain the pipeline and sync
// queues, dispatching each job to its registered JobHandler and deciding
// retry/dead-letter outcomes from the handler's error, grounded on
// pkg/enrichment/workers/pool.go.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Csabesz1130/eventhint/pkg/logging"
	"github.com/Csabesz1130/eventhint/pkg/queue"
)

// Status represents a worker's current lifecycle state.
type Status string

const (
	StatusStarting Status = "starting"
	StatusHealthy  Status = "healthy"
	StatusDraining Status = "draining"
	StatusStopped  Status = "stopped"
)

// JobHandler processes one dequeued job. Returning a *queue.HandlerError
// lets the caller control retry vs. dead-letter; any other error defaults
// to retryable.
type JobHandler func(ctx context.Context, job queue.Job) error

// Config configures a worker pool for one named queue.
type Config struct {
	QueueName         string
	Count             int
	BatchSize         int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	ShutdownTimeout   time.Duration
}

// DefaultConfigs returns pool configurations for the pipeline and sync
// queues named in spec.md §6a.
func DefaultConfigs() map[string]Config {
	return map[string]Config{
		"pipeline": {
			QueueName:         "pipeline",
			Count:             8,
			BatchSize:         1,
			VisibilityTimeout: 120 * time.Second,
			PollInterval:      500 * time.Millisecond,
			ShutdownTimeout:   60 * time.Second,
		},
		"sync": {
			QueueName:         "sync",
			Count:             4,
			BatchSize:         1,
			VisibilityTimeout: 60 * time.Second,
			PollInterval:      500 * time.Millisecond,
			ShutdownTimeout:   30 * time.Second,
		},
	}
}

// Worker processes jobs from a single queue until stopped.
type Worker struct {
	ID      string
	Config  Config
	Status  Status
	Queue   queue.Queue
	Handler JobHandler

	StartedAt    time.Time
	LastActivity time.Time

	ProcessedCount atomic.Int64
	FailedCount    atomic.Int64

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         *sync.WaitGroup
}

func NewWorker(config Config, q queue.Queue, handler JobHandler) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		ID:         uuid.New().String(),
		Config:     config,
		Status:     StatusStarting,
		Queue:      q,
		Handler:    handler,
		ctx:        ctx,
		cancelFunc: cancel,
		wg:         &sync.WaitGroup{},
	}
}

// Start begins processing jobs in a background goroutine.
func (w *Worker) Start() {
	w.StartedAt = time.Now()
	w.Status = StatusHealthy
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		w.processLoop()
	}()
}

// Stop signals the worker to drain and waits up to ShutdownTimeout.
func (w *Worker) Stop() {
	w.Status = StatusDraining
	w.cancelFunc()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.Config.ShutdownTimeout):
	}
	w.Status = StatusStopped
}

func (w *Worker) processLoop() {
	log := logging.Global().With(logging.F("queue", w.Config.QueueName), logging.F("worker_id", w.ID))

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			jobs, err := w.Queue.Dequeue(w.Config.BatchSize, w.Config.PollInterval)
			if err != nil {
				if err == w.ctx.Err() {
					return
				}
				log.Warn("dequeue failed", logging.Err(err))
				time.Sleep(w.Config.PollInterval)
				continue
			}

			for _, qj := range jobs {
				if w.ctx.Err() != nil {
					return
				}
				w.processJob(qj, log)
			}
		}
	}
}

func (w *Worker) processJob(qj *queue.QueuedJob, log logging.Logger) {
	w.LastActivity = time.Now()

	job, err := qj.ParseJob()
	if err != nil {
		w.Queue.MoveToDeadLetter(qj.ID, fmt.Sprintf("parse error: %v", err))
		w.FailedCount.Add(1)
		return
	}

	timeout := w.Config.VisibilityTimeout - 10*time.Second
	if timeout <= 0 {
		timeout = w.Config.VisibilityTimeout
	}
	ctx, cancel := context.WithTimeout(w.ctx, timeout)
	defer cancel()

	if err := w.Handler(ctx, job); err != nil {
		if handlerErr, ok := err.(*queue.HandlerError); ok {
			if handlerErr.IsRetryable() {
				w.Queue.Nack(qj.ID)
			} else {
				w.Queue.MoveToDeadLetter(qj.ID, handlerErr.Error())
			}
		} else {
			w.Queue.Nack(qj.ID)
		}
		log.Error("job failed", logging.F("job_id", qj.ID), logging.Err(err))
		w.FailedCount.Add(1)
		return
	}

	w.Queue.Ack(qj.ID)
	w.ProcessedCount.Add(1)
}

// Pool manages a fixed-size group of Workers draining the same queue.
type Pool struct {
	Config  Config
	Workers []*Worker
	Queue   queue.Queue
	Handler JobHandler

	mu sync.RWMutex
}

func NewPool(config Config, q queue.Queue, handler JobHandler) *Pool {
	return &Pool{
		Config:  config,
		Queue:   q,
		Handler: handler,
		Workers: make([]*Worker, 0, config.Count),
	}
}

func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < p.Config.Count; i++ {
		w := NewWorker(p.Config, p.Queue, p.Handler)
		w.Start()
		p.Workers = append(p.Workers, w)
	}
}

func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range p.Workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Stop()
		}(w)
	}
	wg.Wait()
}

// Stats reports aggregate pool counters.
type Stats struct {
	QueueName   string
	WorkerCount int
	ActiveCount int
	Processed   int64
	Failed      int64
}

func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := Stats{QueueName: p.Config.QueueName, WorkerCount: len(p.Workers)}
	for _, w := range p.Workers {
		if w.Status == StatusHealthy {
			stats.ActiveCount++
		}
		stats.Processed += w.ProcessedCount.Load()
		stats.Failed += w.FailedCount.Load()
	}
	return stats
}

// PoolManager owns the pipeline and sync pools together so a CLI worker
// process can start/stop both with one call.
type PoolManager struct {
	pools map[string]*Pool
	mu    sync.RWMutex
}

func NewPoolManager() *PoolManager {
	return &PoolManager{pools: make(map[string]*Pool)}
}

func (pm *PoolManager) RegisterPool(pool *Pool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.pools[pool.Config.QueueName] = pool
}

func (pm *PoolManager) GetPool(queueName string) (*Pool, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	pool, ok := pm.pools[queueName]
	return pool, ok
}

func (pm *PoolManager) StartAll() {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	for _, pool := range pm.pools {
		pool.Start()
	}
}

func (pm *PoolManager) StopAll() {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	var wg sync.WaitGroup
	for _, pool := range pm.pools {
		wg.Add(1)
		go func(p *Pool) {
			defer wg.Done()
			p.Stop()
		}(pool)
	}
	wg.Wait()
}

func (pm *PoolManager) AllStats() map[string]Stats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	stats := make(map[string]Stats)
	for name, pool := range pm.pools {
		stats[name] = pool.Stats()
	}
	return stats
}
