package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/lattice/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Assembles and loads the module tree, then exposes it as an MCP server so
AI agents can inspect the tree and drive lifecycle transitions as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger(cmd)
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		ctx := context.Background()
		root, err := buildTree(ctx, cmd)
		if err != nil {
			return err
		}

		srv := mcp.NewServer(root)

		switch transport {
		case "stdio":
			// Keep logs off Stdout so they don't corrupt JSON-RPC.
			log.SetOutput(os.Stderr)
			logger.Info("starting lattice MCP server (stdio)")
			if err := srv.ServeStdio(); err != nil {
				return err
			}
		case "sse":
			logger.Info("starting lattice MCP server (SSE)", "port", port)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				return err
			}
		default:
			slog.Error("unknown transport", "transport", transport)
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport to use (stdio, sse)")
	mcpCmd.Flags().IntP("port", "p", 8081, "Port for the SSE transport")
}
