// Package pipeline runs the stages in order over the staging directories.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/async"
	"github.com/Alisasanian/PDFsorter/internal/combine"
	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/crop"
	"github.com/Alisasanian/PDFsorter/internal/dataset"
	"github.com/Alisasanian/PDFsorter/internal/extract"
	"github.com/Alisasanian/PDFsorter/internal/master"
	"github.com/Alisasanian/PDFsorter/internal/ocr"
	"github.com/Alisasanian/PDFsorter/internal/raster"
	"github.com/Alisasanian/PDFsorter/internal/render"
	"github.com/Alisasanian/PDFsorter/internal/repository"
	"github.com/Alisasanian/PDFsorter/internal/sorter"
	"github.com/Alisasanian/PDFsorter/internal/staging"
)

// Components are the stage implementations.
type Components struct {
	Combiner   *combine.Combiner
	Cropper    *crop.Cropper
	Rasterizer *raster.Rasterizer
	Extractor  *extract.Extractor
	Sorter     *sorter.Sorter
}

// Pipeline coordinates the stages and, when a store is set, records each run.
type Pipeline struct {
	paths  common.PathsConfig
	c      Components
	store  *repository.Store
	logger *slog.Logger
}

func New(paths common.PathsConfig, c Components, store *repository.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{paths: paths, c: c, store: store, logger: logger}
}

// Build wires the components from cfg: pdftoppm rendering through runner, the
// configured crop strategy and OCR engine. The returned func releases the engine.
func Build(ctx context.Context, cfg *common.Config, store *repository.Store, runner render.Runner, logger *slog.Logger) (*Pipeline, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	strategy, err := crop.StrategyFromConfig(cfg.Crop)
	if err != nil {
		return nil, nil, err
	}
	renderer := render.NewPdftoppm(cfg.Tools.Pdftoppm, runner, cfg.Tools.Timeout, logger)
	engine, closeEngine, err := ocr.NewEngine(ctx, cfg.OCR, cfg.Tools, runner, logger)
	if err != nil {
		return nil, nil, err
	}
	c := Components{
		Combiner: combine.New(logger),
		Cropper: crop.New(strategy, renderer, logger,
			crop.WithFlattenDPI(cfg.Crop.FlattenDPI),
			crop.WithProbe(cfg.Crop.ProbeRender),
			crop.WithKeepFlattened(cfg.Crop.KeepFlattened),
		),
		Rasterizer: raster.New(renderer, cfg.Raster, logger),
		Extractor:  extract.New(engine, renderer, cfg.OCR, logger),
		Sorter:     sorter.New(logger),
	}
	return New(cfg.Paths, c, store, logger), closeEngine, nil
}

// Request selects what a run does.
type Request struct {
	ID     uuid.UUID         // generated when zero
	Stages []constants.Stage // empty means all, always executed in pipeline order
	Master string            // overrides the configured master source
}

// Run executes the requested stages. The report is returned even on failure and
// holds every stage that completed.
func (p *Pipeline) Run(ctx context.Context, req Request) (*RunReport, error) {
	rep := &RunReport{ID: req.ID, Started: time.Now(), Status: constants.RunStatusRunning}
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	rep.Stages = orderStages(req.Stages)
	ctx = common.WithRunID(ctx, rep.ID.String())
	logger := common.LoggerFrom(ctx, p.logger)

	if p.store != nil {
		if _, err := p.store.Runs.Create(ctx, rep.ID, constants.RunStatusRunning); err != nil {
			logger.Warn("run not recorded", "error", err)
		}
	}
	logger.Info("pipeline.start", "stages", rep.Stages)

	err := p.runStages(ctx, req, rep)
	rep.Finished = time.Now()
	rep.Status = constants.RunStatusSucceeded
	if err != nil {
		rep.Status, rep.Err = constants.RunStatusFailed, err
		logger.Error("pipeline.failed", "error", err, "duration_ms", rep.Finished.Sub(rep.Started).Milliseconds())
	} else {
		logger.Info("pipeline.done", "duration_ms", rep.Finished.Sub(rep.Started).Milliseconds())
	}

	if p.store != nil {
		// the run context may already be cancelled; the final status still has to land
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if ferr := p.store.Runs.Finish(fctx, rep.ID, rep.Status, rep.Summary()); ferr != nil {
			logger.Warn("run status not recorded", "error", ferr)
		}
	}
	return rep, err
}

// RunJob runs a queued job.
func (p *Pipeline) RunJob(ctx context.Context, job async.Job) error {
	_, err := p.Run(ctx, Request{ID: job.RunID, Stages: job.Stages, Master: job.Master})
	return err
}

var _ async.JobRunner = (*Pipeline)(nil)

func orderStages(req []constants.Stage) []constants.Stage {
	if len(req) == 0 {
		return slices.Clone(constants.AllStages)
	}
	var out []constants.Stage
	for _, st := range constants.AllStages {
		if slices.Contains(req, st) {
			out = append(out, st)
		}
	}
	return out
}

func (p *Pipeline) runStages(ctx context.Context, req Request, rep *RunReport) error {
	if err := staging.EnsureDirs(p.paths.StagingDirs()...); err != nil {
		return err
	}
	for _, st := range rep.Stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		sctx := common.WithStage(ctx, string(st))
		if err := p.runStage(sctx, st, req, rep); err != nil {
			return fmt.Errorf("stage %s: %w", st, err)
		}
	}
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, st constants.Stage, req Request, rep *RunReport) error {
	switch st {
	case constants.StageCombine:
		r, err := p.c.Combiner.Run(ctx, p.paths.Input, p.paths.Combined)
		rep.Combine = &r
		return err
	case constants.StageCrop:
		r, err := p.c.Cropper.Run(ctx, p.paths.Combined, p.paths.Cropped)
		rep.Crop = &r
		return err
	case constants.StageRasterize:
		r, err := p.c.Rasterizer.Run(ctx, p.paths.Cropped, p.paths.Rasterized)
		rep.Raster = &r
		return err
	case constants.StageOCR:
		r, err := p.c.Extractor.Run(ctx, p.paths.Rasterized, p.paths.Dataset)
		rep.OCR = &r
		if err != nil {
			return err
		}
		p.storeRecords(ctx, rep.ID, r.Records)
		return nil
	case constants.StageSort:
		return p.sort(ctx, req, rep)
	default:
		return fmt.Errorf("unknown stage %q: %w", st, common.ErrInvalidInput)
	}
}

func (p *Pipeline) storeRecords(ctx context.Context, id uuid.UUID, recs []dataset.Record) {
	if p.store == nil {
		return
	}
	if err := p.store.Records.Insert(ctx, id, recs); err != nil {
		common.LoggerFrom(ctx, p.logger).Warn("records not stored", "error", err)
	}
}

func (p *Pipeline) sort(ctx context.Context, req Request, rep *RunReport) error {
	path := req.Master
	if path == "" {
		path = p.paths.Master
	}
	list, err := master.Load(path, p.paths.MasterSheet)
	if err != nil {
		return err
	}
	rep.Master = &list

	recs, err := p.dataset(rep)
	if err != nil {
		return err
	}
	source := filepath.Join(p.paths.Combined, constants.CombinedFileName)
	r, err := p.c.Sorter.Run(ctx, list.Entries, recs, source, p.paths.Output)
	rep.Sort = &r
	return err
}

// dataset prefers the records of this run and falls back to the combined CSV of an earlier one.
func (p *Pipeline) dataset(rep *RunReport) ([]dataset.Record, error) {
	if rep.OCR != nil {
		return rep.OCR.Records, nil
	}
	path := DatasetPath(p.paths)
	recs, err := dataset.ReadCSVFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.NoInputError("dataset " + path)
	}
	return recs, err
}

// DatasetPath is where the OCR stage writes the combined dataset.
func DatasetPath(paths common.PathsConfig) string {
	return filepath.Join(paths.Dataset, constants.CombinedDatasetDir, constants.CombinedDatasetName)
}
