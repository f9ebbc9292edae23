// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// runCommand enriches the input dataset and writes the export
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Enrich the dataset with catalog metadata and write the export",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Input CSV (overrides enrich.input)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file (overrides enrich.output)",
			},
			&cli.IntFlag{
				Name:  "threshold",
				Usage: "Minimum popularity (overrides enrich.popularity_threshold)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Export format: json or csv",
				Value: formatJSON,
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show an interactive progress view; logs go to --log-file",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log file used with --tui",
				Value: "./tmp/enrichr.log",
			},
		},
		Action: r.Run,
	}
}

// summaryCommand prints the headline figures of an export
func summaryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Summarize an export: artists, regions, countries, popularity by year",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Export to read (defaults to enrich.output)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.Summary,
	}
}

// configCommand manages the configuration file
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file operations",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Where to write the file",
						Value: "config.toml",
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration with secrets redacted",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigShow,
			},
		},
	}
}
