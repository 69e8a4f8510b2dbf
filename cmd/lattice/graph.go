package main

import (
	"context"
	"fmt"

	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the module tree visualization",
	Long:  `Assembles the module tree and outputs a Mermaid diagram (graph TD) with the lifecycle state of every module.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogger(cmd)

		ctx := context.Background()
		root, err := buildTree(ctx, cmd)
		if err != nil {
			return err
		}
		// Best-effort teardown: a veto only matters for long-running trees.
		defer root.Unload(ctx)

		fmt.Print(graph.GenerateMermaid(root))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
