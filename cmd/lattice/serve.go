package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/lattice"
	httpAdapter "github.com/aretw0/lattice/pkg/adapters/http"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the module tree behind the introspection HTTP server",
	Long: `Assembles and loads the module tree, then exposes it over HTTP: tree and
state reads, lifecycle control, a lifecycle event stream (SSE), the
transition journal and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger(cmd)
		port, _ := cmd.Flags().GetString("port")

		reg := prometheus.NewRegistry()
		metrics := observability.NewMetrics(reg)
		journal := memory.NewJournal()

		ctx := context.Background()
		root, err := buildTree(ctx, cmd, lattice.WithJournal(observability.Instrument(journal, metrics)))
		if err != nil {
			return err
		}

		handler := httpAdapter.NewHandler(root, reg, httpAdapter.WithJournal(journal))
		srv := &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("lattice server listening", "addr", srv.Addr, "root", root.Name())
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutdown requested", "signal", sig.String())

			vetoed, err := tryUnload(ctx, root)
			if err != nil {
				logger.Error("unload failed", "error", err)
			}
			if vetoed {
				fmt.Println("Still serving; interrupt again to force exit.")
				<-shutdown
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			fmt.Println("Lattice server stopped.")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
