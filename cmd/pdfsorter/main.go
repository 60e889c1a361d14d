// Command pdfsorter orders the pages of a set of drawing PDFs by a master drawing list.
//
//	pdfsorter [flags] run|combine|crop|rasterize|ocr|sort|export
//
// run executes every stage; the stage commands run a single one against the
// staging directories left by earlier invocations. export writes the combined
// dataset CSV as an XLSX workbook.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/dataset"
	"github.com/Alisasanian/PDFsorter/internal/logging"
	"github.com/Alisasanian/PDFsorter/internal/pipeline"
	"github.com/Alisasanian/PDFsorter/internal/render"
	"github.com/Alisasanian/PDFsorter/internal/repository"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitNoInput = 2
)

type options struct {
	config  string
	master  string
	workDir string
	out     string
	noColor bool
	command string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("pdfsorter", flag.ContinueOnError)
	fs.StringVar(&o.config, "config", "", "YAML config file (default $PDFSORTER_CONFIG)")
	fs.StringVar(&o.master, "master", "", "master drawing list (.csv, .xlsx or .json)")
	fs.StringVar(&o.workDir, "workdir", "", "root of the staging directories")
	fs.StringVar(&o.out, "out", "", "export: destination .xlsx (default next to the dataset)")
	fs.BoolVar(&o.noColor, "no-color", false, "disable colored console output")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: pdfsorter [flags] run|combine|crop|rasterize|ocr|sort|export\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	switch fs.NArg() {
	case 0:
		o.command = "run"
	case 1:
		o.command = fs.Arg(0)
	default:
		fs.Usage()
		return o, fmt.Errorf("expected one command, got %q: %w", strings.Join(fs.Args(), " "), common.ErrInvalidInput)
	}
	return o, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(os.Stderr, err)
		return exitFailed
	}

	if err := common.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailed
	}
	cfg, err := common.LoadConfig(opts.config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailed
	}
	applyFlags(cfg, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailed
	}

	logger, closer := logging.New(cfg.Log)
	defer closer.Close()
	slog.SetDefault(logger)
	colored := !opts.noColor && !color.NoColor
	console := logging.NewConsole(os.Stdout, colored)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.command == "export" {
		return exitCode(export(cfg, opts.out, console), console)
	}
	stages, err := commandStages(opts.command)
	if err != nil {
		console.Warn("%v", err)
		return exitFailed
	}

	store := openStore(ctx, cfg.Store, logger)
	if store != nil {
		defer store.Close()
	}
	p, closeEngine, err := pipeline.Build(ctx, cfg, store, render.ExecRunner{Logger: logger}, logger)
	if err != nil {
		return exitCode(err, console)
	}
	defer func() {
		if err := closeEngine(); err != nil {
			logger.Warn("ocr engine close failed", "error", err)
		}
	}()

	rep, err := p.Run(ctx, pipeline.Request{Stages: stages, Master: opts.master})
	printReport(console, rep, colored)
	return exitCode(err, console)
}

func applyFlags(cfg *common.Config, opts options) {
	if opts.workDir != "" {
		defaultDSN := filepath.Join(cfg.Paths.WorkDir, "index.db")
		cfg.Paths.SetWorkDir(opts.workDir)
		if cfg.Store.Driver == repository.DriverSQLite && cfg.Store.DSN == defaultDSN {
			cfg.Store.DSN = filepath.Join(opts.workDir, "index.db")
		}
	}
	if opts.master != "" {
		cfg.Paths.Master = opts.master
	}
}

func commandStages(cmd string) ([]constants.Stage, error) {
	if cmd == "run" {
		return nil, nil
	}
	st, ok := constants.ParseStage(cmd)
	if !ok {
		return nil, fmt.Errorf("unknown command %q: %w", cmd, common.ErrInvalidInput)
	}
	return []constants.Stage{st}, nil
}

// openStore returns nil when the store is disabled or unreachable; the CLI works without one.
func openStore(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) *repository.Store {
	store, err := repository.Open(ctx, cfg, logger)
	switch {
	case errors.Is(err, repository.ErrDisabled):
		return nil
	case err != nil:
		logger.Warn("run history disabled", "driver", cfg.Driver, "error", err)
		return nil
	}
	return store
}

func export(cfg *common.Config, out string, console *logging.Console) error {
	src := pipeline.DatasetPath(cfg.Paths)
	recs, err := dataset.ReadCSVFile(src)
	if errors.Is(err, os.ErrNotExist) {
		return common.NoInputError("dataset " + src)
	}
	if err != nil {
		return err
	}
	if out == "" {
		out = strings.TrimSuffix(src, filepath.Ext(src)) + ".xlsx"
	}
	if err := dataset.ExportXLSXFile(out, recs); err != nil {
		return err
	}
	console.Line("Exported records: ", len(recs), true)
	console.Line("Workbook: ", out, true)
	return nil
}

func exitCode(err error, console *logging.Console) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, common.ErrNoInput):
		console.Warn("nothing to do: %v", err)
		return exitNoInput
	default:
		console.Warn("failed: %v", err)
		return exitFailed
	}
}
