package repository

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/dataset"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), common.StoreConfig{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "index.db"),
	}, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.HealthCheck(ctx, time.Second); err != nil {
		t.Fatal(err)
	}

	id := uuid.New()
	if _, err := s.Runs.Create(ctx, id, constants.RunStatusQueued); err != nil {
		t.Fatal(err)
	}
	if err := s.Runs.SetStatus(ctx, id, constants.RunStatusRunning); err != nil {
		t.Fatal(err)
	}
	run, err := s.Runs.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if run.ID != id || run.Status != constants.RunStatusRunning || run.FinishedAt != nil || run.Summary != nil {
		t.Errorf("running run = %+v", run)
	}

	if err := s.Runs.Finish(ctx, id, constants.RunStatusSucceeded, map[string]int{"found": 2}); err != nil {
		t.Fatal(err)
	}
	run, err = s.Runs.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != constants.RunStatusSucceeded || run.FinishedAt == nil {
		t.Errorf("finished run = %+v", run)
	}
	var summary map[string]int
	if err := json.Unmarshal(run.Summary, &summary); err != nil || summary["found"] != 2 {
		t.Errorf("summary = %s (%v)", run.Summary, err)
	}

	if _, err := s.Runs.Get(ctx, uuid.New()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("unknown run: %v", err)
	}
	if err := s.Runs.Finish(ctx, uuid.New(), constants.RunStatusFailed, nil); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("finish unknown run: %v", err)
	}

	// re-creating an existing run resets it instead of failing
	if _, err := s.Runs.Create(ctx, id, constants.RunStatusRunning); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Runs.Create(ctx, uuid.New(), constants.RunStatusQueued); err != nil {
		t.Fatal(err)
	}
	runs, err := s.Runs.List(ctx, 10)
	if err != nil || len(runs) != 2 {
		t.Fatalf("list = %d runs, %v", len(runs), err)
	}
	if n, err := s.Runs.Count(ctx); err != nil || n != 2 {
		t.Errorf("count = %d, %v", n, err)
	}
}

func TestRecords(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	id := uuid.New()
	if _, err := s.Runs.Create(ctx, id, constants.RunStatusRunning); err != nil {
		t.Fatal(err)
	}

	recs := []dataset.Record{
		{PDFName: "combined", Page: 2},
		{PDFName: "combined", Page: 1, DrawingNumber: "A1.01", Priority: true},
		{PDFName: "annex", Page: 1, DrawingNumber: "M1.01"},
	}
	if err := s.Records.Insert(ctx, id, recs); err != nil {
		t.Fatal(err)
	}
	// replace page 2
	if err := s.Records.Insert(ctx, id, []dataset.Record{{PDFName: "combined", Page: 2, DrawingNumber: "G0.01", Priority: true}}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Records.List(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	want := []dataset.Record{
		{PDFName: "annex", Page: 1, DrawingNumber: "M1.01"},
		{PDFName: "combined", Page: 1, DrawingNumber: "A1.01", Priority: true},
		{PDFName: "combined", Page: 2, DrawingNumber: "G0.01", Priority: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("records = %+v", got)
	}

	// records need an existing run
	if err := s.Records.Insert(ctx, uuid.New(), recs[:1]); !errors.Is(err, common.ErrDatabase) {
		t.Errorf("orphan records: %v", err)
	}
}

func TestOpenDisabled(t *testing.T) {
	if _, err := Open(context.Background(), common.StoreConfig{Driver: DriverNone}, nil); !errors.Is(err, ErrDisabled) {
		t.Errorf("want ErrDisabled, got %v", err)
	}
	if _, err := Open(context.Background(), common.StoreConfig{Driver: "mysql"}, nil); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("want ErrInvalidInput, got %v", err)
	}
}
