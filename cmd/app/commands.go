package main

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/allisson/archivist/internal/config"
)

func getCommands(version string) []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getCancellationCommands()...)
	cmds = append(cmds, getArchiveCommands()...)
	return cmds
}

// loadConfig loads the configuration and rejects unusable provider settings
// before any component is built.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}
