package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alienxp03/arena/web/handlers"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(os.Stdout, true)

		if !cmd.Flags().Changed("port") && appConfig.Server.Port != 0 {
			servePort = appConfig.Server.Port
		}

		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		registry, err := appConfig.CreateRegistry()
		if err != nil {
			return fmt.Errorf("failed to initialize provider registry: %w", err)
		}

		h := handlers.New(a.engine, a.store, registry)
		addr := fmt.Sprintf(":%d", servePort)
		server := &http.Server{
			Addr:              addr,
			Handler:           h.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			slog.Info("Starting arena server", "url", fmt.Sprintf("http://localhost%s", addr), "provider", appConfig.LLM.Provider)
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		slog.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8182, "Server port")
}
