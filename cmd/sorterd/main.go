// Command sorterd serves pipeline runs over gRPC and, when enabled, starts a run
// whenever PDFs land in the input directory.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Alisasanian/PDFsorter/internal/async"
	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/logging"
	"github.com/Alisasanian/PDFsorter/internal/pipeline"
	"github.com/Alisasanian/PDFsorter/internal/render"
	"github.com/Alisasanian/PDFsorter/internal/repository"
	"github.com/Alisasanian/PDFsorter/internal/server"
	"github.com/Alisasanian/PDFsorter/internal/staging"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $PDFSORTER_CONFIG)")
	flag.Parse()

	if err := common.LoadDotEnv(); err != nil {
		slog.Error("load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger, closer := logging.New(cfg.Log)
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *repository.Store
	store, err = repository.Open(ctx, cfg.Store, logger)
	switch {
	case errors.Is(err, repository.ErrDisabled):
		logger.Info("run history disabled")
	case err != nil:
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	default:
		defer store.Close()
		if err := store.HealthCheck(ctx, 5*time.Second); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
	}

	if err := staging.EnsureDirs(cfg.Paths.StagingDirs()...); err != nil {
		logger.Error("failed to create staging directories", "error", err)
		os.Exit(1)
	}

	p, closeEngine, err := pipeline.Build(ctx, cfg, store, render.ExecRunner{Logger: logger}, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer closeEngine()

	// one worker: every run shares the staging directories
	queue := async.NewRunQueue(p, logger,
		async.WithWorkers(1),
		async.WithQueueSize(cfg.Server.QueueSize),
		async.WithProcessTimeout(cfg.Server.RunTimeout),
	)

	var runs repository.RunRepository
	if store != nil {
		runs = store.Runs
	}

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(server.LoggingInterceptor(logger)))
	server.Register(grpcServer, server.NewSorterService(queue, runs, logger))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	if cfg.Server.Watch {
		if err := watchInput(ctx, cfg, queue, logger); err != nil {
			logger.Error("failed to watch input directory", "dir", cfg.Paths.Input, "error", err)
			os.Exit(1)
		}
	}

	logger.Info("sorterd listening", "addr", cfg.Server.GRPCAddr, "watch", cfg.Server.Watch)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()
	grpcServer.GracefulStop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
}

// watchInput queues one full run per burst of new input PDFs.
func watchInput(ctx context.Context, cfg *common.Config, queue async.Queue, logger *slog.Logger) error {
	events, errs, err := staging.Watch(ctx, staging.WatchConfig{
		Roots:    []string{cfg.Paths.Input},
		Debounce: cfg.Server.Debounce,
	}, logger)
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errs:
				if !ok {
					return
				}
				logger.Warn("watch error", "error", err)
			case path, ok := <-events:
				if !ok {
					return
				}
				drain(events)
				job := async.Job{RunID: uuid.New(), Trigger: "watch", SubmittedAt: time.Now()}
				if err := queue.Enqueue(ctx, job); err != nil {
					logger.Warn("watch run not queued", "path", path, "error", err)
					continue
				}
				logger.Info("watch run queued", "run_id", job.RunID, "path", path)
			}
		}
	}()
	return nil
}

// drain discards events already waiting so a burst triggers a single run.
func drain(ch <-chan string) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
