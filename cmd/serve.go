package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/neuropathx/neuropathx/internal/handlers"
	"github.com/neuropathx/neuropathx/internal/session"
)

func newServeCmd(a *app) *cobra.Command {
	var port string
	var staticDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local JSON API for a browser front-end",
		Long: `Starts a local web server exposing one imaging session per browser as a
JSON API: uploads, sample selection, viewport input events, diagnosis,
reports and class-score charts.

An optional static directory is served at / for the front-end itself.`,
		Example: `  # Start server on default port 8888
  neuropathx serve

  # Serve a front-end build against the local classification service
  NEUROPATHX_ENV=local neuropathx serve --static ./web --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := a.manifest()
			if err != nil {
				return err
			}
			factory, err := a.sessionFactory()
			if err != nil {
				return err
			}

			handler := handlers.New(handlers.Options{
				NewSession: func(id string) *session.Session {
					sess, err := factory(id)
					if err != nil {
						// State on disk is unusable; carry on without it
						slog.Error("Failed to bind session state", "session", id, "err", err)
						return session.New(id, session.Options{Classifier: a.client(), SlowAfter: a.cfg.API.SlowStartAfter})
					}
					return sess
				},
				Client:    a.client(),
				Samples:   manifest,
				Fetcher:   a.fetcher(),
				StaticDir: staticDir,
			})

			// Set up routes
			mux := http.NewServeMux()
			handler.Routes(mux)

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			if idle := a.cfg.Server.SessionIdle; idle > 0 {
				go handler.Sweep(cmd.Context(), idle, sweepInterval(idle))
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("NeuroPathX interface available", "addr", addr, "url", "http://localhost"+addr, "api", a.cfg.BaseURL())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&staticDir, "static", "", "Directory of front-end files to serve at /")

	return cmd
}

// sweepInterval checks a few times per idle period, at most once a minute
func sweepInterval(idle time.Duration) time.Duration {
	interval := idle / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}
