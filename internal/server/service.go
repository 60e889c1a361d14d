// Package server exposes pipeline runs over gRPC.
//
// Messages are google.protobuf.Struct so the service needs no generated code:
//
//	Run      {stages?: [string], master?: string}  -> run
//	GetRun   {run_id: string}                      -> run
//	ListRuns {limit?: number}                      -> {runs: [run], total: number}
//
// where run is {run_id, status, started_at?, finished_at?, summary?}.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/async"
	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/repository"
)

const (
	ServiceName    = "pdfsorter.v1.SorterService"
	defaultListLen = 20
	maxListLen     = 500
)

// SorterServer is the server API for the sorter service.
type SorterServer interface {
	Run(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type SorterService struct {
	queue  async.Queue
	runs   repository.RunRepository // nil when no store is configured
	logger *slog.Logger
}

var _ SorterServer = (*SorterService)(nil)

func NewSorterService(queue async.Queue, runs repository.RunRepository, logger *slog.Logger) *SorterService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SorterService{queue: queue, runs: runs, logger: logger}
}

// Run queues a pipeline run and returns immediately with its id.
func (s *SorterService) Run(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	stages, err := parseStages(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	job := async.Job{
		RunID:       uuid.New(),
		Stages:      stages,
		Master:      strings.TrimSpace(req.GetFields()["master"].GetStringValue()),
		Trigger:     "rpc",
		SubmittedAt: time.Now(),
	}

	if s.runs != nil {
		if _, err := s.runs.Create(ctx, job.RunID, constants.RunStatusQueued); err != nil {
			s.logger.Error("run.create.failed", "run_id", job.RunID, "error", err)
			return nil, common.ToStatus(err)
		}
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Warn("run.enqueue.failed", "run_id", job.RunID, "error", err)
		if s.runs != nil {
			_ = s.runs.Finish(context.WithoutCancel(ctx), job.RunID, constants.RunStatusFailed, map[string]string{"error": err.Error()})
		}
		switch {
		case errors.Is(err, async.ErrQueueFull):
			return nil, status.Error(codes.ResourceExhausted, err.Error())
		case errors.Is(err, async.ErrQueueClosed):
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		return nil, common.ToStatus(err)
	}
	s.logger.Info("run.queued", "run_id", job.RunID, "stages", stages)

	return structpb.NewStruct(map[string]any{
		"run_id": job.RunID.String(),
		"status": string(constants.RunStatusQueued),
	})
}

func (s *SorterService) GetRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.runs == nil {
		return nil, status.Error(codes.FailedPrecondition, "run history requires a store")
	}
	raw := strings.TrimSpace(req.GetFields()["run_id"].GetStringValue())
	if raw == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "run_id must be a UUID")
	}
	run, err := s.runs.Get(ctx, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	m, err := runView(run)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return structpb.NewStruct(m)
}

func (s *SorterService) ListRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.runs == nil {
		return nil, status.Error(codes.FailedPrecondition, "run history requires a store")
	}
	limit := int(req.GetFields()["limit"].GetNumberValue())
	switch {
	case limit <= 0:
		limit = defaultListLen
	case limit > maxListLen:
		limit = maxListLen
	}
	runs, err := s.runs.List(ctx, limit)
	if err != nil {
		s.logger.Error("run.list.failed", "error", err)
		return nil, common.ToStatus(err)
	}
	total, err := s.runs.Count(ctx)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	out := make([]any, 0, len(runs))
	for _, r := range runs {
		m, err := runView(r)
		if err != nil {
			return nil, common.ToStatus(err)
		}
		out = append(out, m)
	}
	return structpb.NewStruct(map[string]any{"runs": out, "total": total})
}

func parseStages(req *structpb.Struct) ([]constants.Stage, error) {
	var stages []constants.Stage
	for _, v := range req.GetFields()["stages"].GetListValue().GetValues() {
		st, ok := constants.ParseStage(strings.TrimSpace(v.GetStringValue()))
		if !ok {
			return nil, errors.New("unknown stage " + v.GetStringValue())
		}
		stages = append(stages, st)
	}
	return stages, nil
}

func runView(r *repository.Run) (map[string]any, error) {
	m := map[string]any{
		"run_id":     r.ID.String(),
		"status":     string(r.Status),
		"started_at": r.StartedAt.UTC().Format(time.RFC3339),
	}
	if r.FinishedAt != nil {
		m["finished_at"] = r.FinishedAt.UTC().Format(time.RFC3339)
	}
	if len(r.Summary) > 0 {
		var summary map[string]any
		if err := json.Unmarshal(r.Summary, &summary); err != nil {
			return nil, common.WrapError(err, "decode run summary")
		}
		m["summary"] = summary
	}
	return m, nil
}

// Register adds the service to s.
func Register(s grpc.ServiceRegistrar, srv SorterServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary(method string, call func(SorterServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SorterServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SorterServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes SorterService for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SorterServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Run", SorterServer.Run),
		unary("GetRun", SorterServer.GetRun),
		unary("ListRuns", SorterServer.ListRuns),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pdfsorter/v1/sorter.proto",
}
