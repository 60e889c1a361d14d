package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRunQueueSequential(t *testing.T) {
	var (
		mu      sync.Mutex
		order   []uuid.UUID
		running int
		overlap bool
	)
	runner := JobRunnerFunc(func(ctx context.Context, job Job) error {
		mu.Lock()
		running++
		if running > 1 {
			overlap = true
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		running--
		order = append(order, job.RunID)
		mu.Unlock()
		return nil
	})
	q := NewRunQueue(runner, nil, WithQueueSize(8))

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		if err := q.Enqueue(context.Background(), Job{RunID: id}); err != nil {
			t.Fatal(err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	if overlap {
		t.Error("runs overlapped with a single worker")
	}
	if len(order) != 3 || order[0] != ids[0] || order[2] != ids[2] {
		t.Errorf("order = %v, want %v", order, ids)
	}
	if err := q.Enqueue(context.Background(), Job{RunID: uuid.New()}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("enqueue after shutdown: %v", err)
	}
}

func TestRunQueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	runner := JobRunnerFunc(func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		return nil
	})
	q := NewRunQueue(runner, nil, WithQueueSize(1))

	if err := q.Enqueue(context.Background(), Job{RunID: uuid.New()}); err != nil {
		t.Fatal(err)
	}
	<-started // worker holds the first job
	if err := q.Enqueue(context.Background(), Job{RunID: uuid.New()}); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(context.Background(), Job{RunID: uuid.New()}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("want ErrQueueFull, got %v", err)
	}
	close(release)
	q.Shutdown(context.Background())
}
