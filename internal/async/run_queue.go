package async

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RunQueue executes jobs on a fixed set of workers. With the default single worker
// runs never overlap, which keeps the staging directories single-writer.
type RunQueue struct {
	runner  JobRunner
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*RunQueue)

func WithWorkers(n int) Option {
	return func(q *RunQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *RunQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *RunQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewRunQueue(runner JobRunner, logger *slog.Logger, opts ...Option) *RunQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &RunQueue{
		runner:  runner,
		logger:  logger,
		workers: 1,
		timeout: 2 * time.Hour,
		ch:      make(chan Job, 16),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RunQueue) start() {
	q.once.Do(func() {
		q.wg.Add(q.workers)
		for id := 1; id <= q.workers; id++ {
			go q.work(id)
		}
	})
}

func (q *RunQueue) work(id int) {
	defer q.wg.Done()
	log := q.logger.With("worker_id", id)
	log.Debug("run.worker.start")
	for job := range q.ch {
		q.execute(log.With("run_id", job.RunID, "trigger", job.Trigger), job)
	}
	log.Debug("run.worker.stop")
}

// execute runs one job detached from any request context, bounded by the queue timeout.
func (q *RunQueue) execute(log *slog.Logger, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	log.Info("run.start", "waited_ms", time.Since(job.SubmittedAt).Milliseconds())
	began := time.Now()
	if err := q.runner.RunJob(ctx, job); err != nil {
		log.Error("run.failed", "error", err, "duration_ms", time.Since(began).Milliseconds())
		return
	}
	log.Info("run.done", "duration_ms", time.Since(began).Milliseconds())
}

// Enqueue hands job to the workers without blocking; a full queue is reported
// to the caller.
func (q *RunQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("run.rejected", "run_id", job.RunID, "reason", "closing")
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Info("run.queued", "run_id", job.RunID, "trigger", job.Trigger, "stages", job.Stages, "depth", len(q.ch))
		return nil
	default:
		q.logger.Warn("run.rejected", "run_id", job.RunID, "reason", "full", "capacity", cap(q.ch))
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or ctx to end.
func (q *RunQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		q.logger.Info("run.queue.drained")
	case <-ctx.Done():
		q.logger.Warn("run.queue.abandoned", "error", ctx.Err())
	}
}
