package main

import (
	"os/signal"

	"github.com/nvandessel/simsweep/internal/mcp"
	"github.com/nvandessel/simsweep/internal/simulation"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve sweep tools to MCP clients over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing the
sweep_kinds, sweep_compile and sweep_status tools.

Tool calls may only read files under the project root, the configured
output directory and ~/.simsweep.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			root, err := projectRoot(cmd)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:            "simsweep",
				Version:         version,
				Root:            root,
				OutputDir:       cfg.Run.OutputDir,
				MaxCombinations: cfg.Run.MaxCombinations,
				Registry:        simulation.Default(),
				Logger:          newLogger(cmd, cfg),
			})
			if err != nil {
				return err
			}
			defer server.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
			defer stop()
			return server.Run(ctx)
		},
	}
}
