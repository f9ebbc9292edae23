package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/enrichr/internal/formatter"
	"github.com/desertthunder/enrichr/internal/tasks"
	"github.com/desertthunder/enrichr/internal/ui"
)

// Summary reads an export and prints its headline figures.
func (r *Runner) Summary(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("input")
	if path == "" {
		cfg, err := r.loadConfig(cmd)
		if err != nil {
			return err
		}
		path = cfg.Enrich.Output
	}

	r.logger.Debug("reading export", "path", path)
	tracks, err := formatter.ReadJSONExport(path)
	if err != nil {
		return err
	}

	summary := tasks.Summarize(tracks)
	if cmd.Bool("json") {
		return r.writeJSON(summary, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", ui.RenderSummary(summary))
}
