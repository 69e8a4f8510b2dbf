package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Assemble and run the module tree",
	Long: `Loads the manifest, assembles and loads the module tree, then keeps it
running until interrupted. On interrupt the tree is unloaded through the
normal negotiation: any module may veto, in which case the tree keeps
running and a second interrupt forces exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger(cmd)
		quiet, _ := cmd.Flags().GetBool("quiet")

		if !quiet {
			tui.PrintBanner()
		}

		ctx := context.Background()
		root, err := buildTree(ctx, cmd)
		if err != nil {
			return err
		}
		logger.Info("module tree loaded", "root", root.Name())

		if !quiet {
			render := tui.NewRenderer()
			if out, err := render(tui.StatusReport(root)); err == nil {
				fmt.Print(out)
			}
		}

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		for sig := range shutdown {
			logger.Info("shutdown requested", "signal", sig.String())

			vetoed, err := tryUnload(ctx, root)
			if err != nil {
				return fmt.Errorf("unload failed: %w", err)
			}
			if !vetoed {
				fmt.Println("Module tree unloaded.")
				return nil
			}

			fmt.Println("Still running; interrupt again to force exit.")
			sig, ok := <-shutdown
			if !ok {
				return nil
			}
			logger.Warn("forcing exit without unload", "signal", sig.String())
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("quiet", "q", false, "Skip the banner and status report")
}
