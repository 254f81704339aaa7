package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrQueueClosed is returned by Enqueue once the queue stopped accepting work.
var ErrQueueClosed = errors.New("queue closed")

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is an in-memory job dispatcher with a fixed worker pool. Failed jobs
// are retried with a linear backoff until MaxRetries is exhausted.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs     chan Job
	stopping chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	workerWG sync.WaitGroup
	retryWG  sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger.With(zap.String("queue", name)),
		jobs:       make(chan Job, cfg.BufferSize),
		stopping:   make(chan struct{}),
	}
}

// Start begins worker consumption. Subsequent calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.workerWG.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Enqueue pushes a job onto the queue without blocking. A full buffer is
// reported as an error rather than stalling the caller.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if q.closed {
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueClosed)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s is full", q.name)
	}
}

// Stop refuses new jobs, lets workers drain what is buffered and waits for
// them until ctx expires, at which point in-flight work is cancelled. Retries
// still waiting on their backoff are dropped.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.started || q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.stopping)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.workerWG.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	q.cancel()
	<-done
	q.retryWG.Wait()

	if err != nil {
		q.logger.Warn("queue stopped before drain completed", zap.Error(err))
		return err
	}
	q.logger.Info("queue stopped")
	return nil
}

func (q *Queue) worker(workerID int) {
	defer q.workerWG.Done()
	for {
		select {
		case job := <-q.jobs:
			q.run(workerID, job)
		case <-q.stopping:
			for {
				select {
				case job := <-q.jobs:
					q.run(workerID, job)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) run(workerID int, job Job) {
	if err := q.handler(q.ctx, job); err != nil {
		q.handleFailure(workerID, job, err)
	}
}

func (q *Queue) isClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *Queue) handleFailure(workerID int, job Job, err error) {
	job.Attempt++
	fields := []zap.Field{
		zap.Int("worker", workerID),
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Error(err),
	}
	if job.Attempt > q.maxRetries {
		q.logger.Error("job exceeded retries", fields...)
		return
	}
	if q.isClosed() {
		q.logger.Error("job dropped during shutdown", fields...)
		return
	}
	q.logger.Warn("job failed, retrying", fields...)

	q.retryWG.Add(1)
	go func(j Job) {
		defer q.retryWG.Done()
		timer := time.NewTimer(q.retryDelay * time.Duration(j.Attempt))
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
		}
		select {
		case q.jobs <- j:
		default:
			q.logger.Error("failed to requeue job", zap.String("job_id", j.ID))
		}
	}(job)
}
