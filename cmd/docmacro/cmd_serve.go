package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docmacro/internal/api"
)

func newServeCmd(a *app) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			proc, st := a.newProcessor()
			srv := api.NewServer(proc, st, a.log, a.cfg)

			httpServer := &http.Server{
				Addr:         ":" + a.cfg.Port,
				Handler:      srv,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Graceful shutdown.
			go func() {
				<-ctx.Done()
				a.log.Info("shutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				httpServer.Shutdown(shutdownCtx)
			}()

			if a.cfg.APIKey == "" {
				a.log.Warn("DOCMACRO_API_KEY not set, api endpoints are unauthenticated")
			}
			a.log.Info("starting docmacro", "port", a.cfg.Port, "base_dir", a.cfg.BaseDir)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (env PORT)")
	return cmd
}
