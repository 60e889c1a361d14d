package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Alisasanian/PDFsorter/constants"
)

var (
	ErrQueueFull   = errors.New("run queue is full")
	ErrQueueClosed = errors.New("run queue is shutting down")
)

// Job is one queued pipeline run.
type Job struct {
	RunID       uuid.UUID
	Stages      []constants.Stage // empty means all stages
	Master      string            // overrides the configured master source when set
	Trigger     string            // "rpc" | "watch"
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// JobRunner executes a job.
type JobRunner interface {
	RunJob(ctx context.Context, job Job) error
}

// JobRunnerFunc adapts a function to JobRunner.
type JobRunnerFunc func(ctx context.Context, job Job) error

func (f JobRunnerFunc) RunJob(ctx context.Context, job Job) error { return f(ctx, job) }
