package main

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/enrichr/internal/shared"
)

const redacted = "********"

// ConfigInit writes the embedded default configuration to --path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	return r.writePlain("Created %s. Set client_id and client_secret, or export %s and %s.\n",
		path, shared.EnvClientID, shared.EnvClientSecret)
}

// ConfigShow prints the effective configuration as TOML.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Spotify.ClientSecret != "" {
		cfg.Spotify.ClientSecret = redacted
	}

	if err := toml.NewEncoder(r.output).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
