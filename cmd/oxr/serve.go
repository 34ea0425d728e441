package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dalfonso89/openexchangerates/internal/api"
)

func newServeCommand(application *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the API operations over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := application.config
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			handlers := api.NewHandlers(api.HandlerConfig{
				Logger:         application.logger,
				Client:         application.client,
				MetricsEnabled: cfg.MetricsEnabled,
			})

			server := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      handlers.SetupRoutes(),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: cfg.Timeout + 15*time.Second,
			}

			serverErrors := make(chan error, 1)
			go func() {
				application.logger.Info("Starting gateway on port " + cfg.Port)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErrors <- err
				}
				close(serverErrors)
			}()

			select {
			case err := <-serverErrors:
				return err
			case <-cmd.Context().Done():
			}

			application.logger.Info("Shutting down gateway...")

			// Give outstanding requests time to complete
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				return err
			}

			application.logger.Info("Gateway exited")
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (env PORT)")
	return cmd
}
