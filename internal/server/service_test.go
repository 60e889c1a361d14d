package server

import (
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/async"
	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/repository"
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []async.Job
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Shutdown(context.Context) {}

func dial(t *testing.T, svc SorterServer) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(nil)))
	Register(s, svc)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func openStore(t *testing.T) *repository.Store {
	t.Helper()
	s, err := repository.Open(context.Background(), common.StoreConfig{
		Driver: repository.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "index.db"),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestRunQueuesJob(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	q := &fakeQueue{}
	c := dial(t, NewSorterService(q, store.Runs, nil))

	resp, err := c.Run(ctx, []string{"sort", "ocr"}, "/data/master.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	id := resp.GetFields()["run_id"].GetStringValue()
	if resp.GetFields()["status"].GetStringValue() != "QUEUED" {
		t.Errorf("resp = %v", resp)
	}
	if len(q.jobs) != 1 {
		t.Fatalf("jobs = %d", len(q.jobs))
	}
	job := q.jobs[0]
	if job.RunID.String() != id || job.Master != "/data/master.xlsx" || job.Trigger != "rpc" ||
		len(job.Stages) != 2 || job.Stages[0] != constants.StageSort {
		t.Errorf("job = %+v", job)
	}

	got, err := c.GetRun(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.GetFields()["status"].GetStringValue() != "QUEUED" {
		t.Errorf("run = %v", got)
	}

	if err := store.Runs.Finish(ctx, job.RunID, constants.RunStatusSucceeded, map[string]any{"stages": []string{"ocr", "sort"}}); err != nil {
		t.Fatal(err)
	}
	got, err = c.GetRun(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	f := got.GetFields()
	if f["status"].GetStringValue() != "SUCCEEDED" || f["finished_at"].GetStringValue() == "" ||
		len(f["summary"].GetStructValue().GetFields()["stages"].GetListValue().GetValues()) != 2 {
		t.Errorf("finished run = %v", got)
	}

	list, err := c.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if list.GetFields()["total"].GetNumberValue() != 1 || len(list.GetFields()["runs"].GetListValue().GetValues()) != 1 {
		t.Errorf("list = %v", list)
	}
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	q := &fakeQueue{}
	c := dial(t, NewSorterService(q, store.Runs, nil))

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"bad stage", func() error { _, err := c.Run(ctx, []string{"bogus"}, ""); return err }, codes.InvalidArgument},
		{"missing id", func() error { _, err := c.GetRun(ctx, ""); return err }, codes.InvalidArgument},
		{"bad id", func() error { _, err := c.GetRun(ctx, "nope"); return err }, codes.InvalidArgument},
		{"unknown run", func() error { _, err := c.GetRun(ctx, uuid.NewString()); return err }, codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Code(tt.call()); got != tt.want {
				t.Errorf("code = %s, want %s", got, tt.want)
			}
		})
	}

	q.err = async.ErrQueueFull
	_, err := c.Run(ctx, nil, "")
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("full queue: %v", err)
	}
	// the rejected run is recorded as failed
	runs, err := store.Runs.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != constants.RunStatusFailed {
		t.Errorf("runs = %+v", runs)
	}
}

func TestWithoutStore(t *testing.T) {
	q := &fakeQueue{}
	c := dial(t, NewSorterService(q, nil, nil))
	if _, err := c.Run(context.Background(), nil, ""); err != nil {
		t.Fatal(err)
	}
	if len(q.jobs) != 1 || len(q.jobs[0].Stages) != 0 {
		t.Errorf("jobs = %+v", q.jobs)
	}
	if _, err := c.ListRuns(context.Background(), 5); status.Code(err) != codes.FailedPrecondition {
		t.Errorf("list without store: %v", err)
	}
}
