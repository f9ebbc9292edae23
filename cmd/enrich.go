package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/enrichr/internal/dataset"
	"github.com/desertthunder/enrichr/internal/formatter"
	"github.com/desertthunder/enrichr/internal/shared"
	"github.com/desertthunder/enrichr/internal/tasks"
	"github.com/desertthunder/enrichr/internal/ui"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
)

// RunResult describes a finished enrichment run.
type RunResult struct {
	RunID    string
	Rows     int // rows in the input
	Hits     int // rows selected for enrichment
	Batches  int
	Resolved int
	Failed   int // failed batches
	Written  int // records in the export
	Output   string
}

// Run enriches the configured dataset and writes the export.
//
// A missing input file or a failed token exchange ends the run before anything is written.
// A cancelled run does not write an export either.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if format == "" {
		format = formatJSON
	}
	if format != formatJSON && format != formatCSV {
		return fmt.Errorf("%w: format must be %s or %s, got %q", shared.ErrInvalidArgument, formatJSON, formatCSV, format)
	}

	if cmd.Bool("tui") {
		return r.runWithProgressView(ctx, cfg, format, cmd.String("log-file"))
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.printProgress(progress)
	}()

	res, err := r.enrich(ctx, cfg, format, progress)
	close(progress)
	wg.Wait()

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Enrichment Complete!")
	r.writePlain("Input rows:       %d\n", res.Rows)
	r.writePlain("Selected tracks:  %d\n", res.Hits)
	r.writePlain("Resolved tracks:  %d (%d batches, %d failed)\n", res.Resolved, res.Batches, res.Failed)
	return r.writePlain("Done! Wrote %d tracks to %s\n", res.Written, res.Output)
}

func (r *Runner) runWithProgressView(ctx context.Context, cfg *shared.Config, format, logFile string) error {
	fileLogger, f, err := shared.NewFileLogger(logFile)
	if err != nil {
		return err
	}
	defer f.Close()

	if cfg.Log.Level != "" {
		shared.SetLogLevel(fileLogger, cfg.Log.Level)
	}
	r.SetLogger(fileLogger)

	return ui.Run(ctx, r.output, func(ctx context.Context, progress chan<- tasks.ProgressUpdate) error {
		_, err := r.enrich(ctx, cfg, format, progress)
		return err
	})
}

// enrich runs the pipeline: load, select, authenticate, fetch in batches, merge and export.
func (r *Runner) enrich(ctx context.Context, cfg *shared.Config, format string, progress chan<- tasks.ProgressUpdate) (*RunResult, error) {
	res := &RunResult{RunID: shared.GenerateID(), Output: cfg.Enrich.Output}
	logger := shared.WithLogger(r.logger, "run", res.RunID)

	logger.Info("loading dataset", "path", cfg.Enrich.Input)
	ds, err := dataset.Load(cfg.Enrich.Input)
	if err != nil {
		logger.Error("could not load dataset", "error", err)
		return nil, err
	}

	hits := dataset.Hits(ds, cfg.Enrich.PopularityThreshold)
	res.Rows, res.Hits = len(ds.Rows), len(hits.Rows)
	logger.Info("selected tracks", "rows", res.Rows, "hits", res.Hits, "threshold", cfg.Enrich.PopularityThreshold)

	catalog, err := r.catalogFor(cfg, logger)
	if err != nil {
		return nil, err
	}

	enricher, err := tasks.NewEnricherFromConfig(catalog, cfg.Enrich, logger, r.sleep)
	if err != nil {
		return nil, err
	}

	token, err := enricher.AcquireToken(ctx, progress, catalog)
	if err != nil {
		return nil, fmt.Errorf("could not obtain access token: %w", err)
	}

	out, err := enricher.Enrich(ctx, progress, dataset.IDs(hits), token)
	if err != nil {
		logger.Warn("enrichment interrupted, no export written", "resolved", out.Resolved, "error", err)
		return nil, err
	}
	res.Batches, res.Resolved, res.Failed = out.Batches, out.Resolved, len(out.Failures)

	records := formatter.BuildOutput(hits, out.Lookup)
	if err := writeExport(records, formatter.Columns(hits), format, cfg.Enrich.Output); err != nil {
		return nil, err
	}
	res.Written = len(records)

	logger.Info("export written", "path", cfg.Enrich.Output, "format", format, "records", res.Written, "dropped", res.Hits-res.Written)
	sendProgress(progress, tasks.ExportUpdate(cfg.Enrich.Output, res.Written))
	return res, nil
}

func writeExport(records []formatter.Record, cols []string, format, path string) error {
	if format == formatCSV {
		return formatter.WriteCSVExport(records, cols, path)
	}
	return formatter.WriteJSONExport(records, path)
}

func sendProgress(progress chan<- tasks.ProgressUpdate, update tasks.ProgressUpdate) {
	select {
	case progress <- update:
	default:
	}
}

// printProgress writes batch progress lines until progress is closed.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate) {
	for update := range progress {
		switch update.Phase {
		case tasks.FetchToken:
			r.writePlain("🔑 %s\n", update.Message)
		case tasks.FetchBatches:
			if update.Step == 0 {
				r.writePlain("\n🔍 %s\n", update.Message)
			} else {
				r.writePlain("   %s\n", update.Message)
			}
		case tasks.MergeResults:
			r.writePlain("\n🧩 %s\n", update.Message)
		case tasks.WriteExport:
			r.writePlain("📝 %s\n", update.Message)
		}
	}
}
