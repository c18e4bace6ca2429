package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	verrors "github.com/vango-dev/ssr/internal/errors"
	"github.com/vango-dev/ssr/pkg/ssr"
)

const shutdownTimeout = 30 * time.Second

func serveCmd(configPath *string) *cobra.Command {
	var (
		addr       string
		noStream   bool
		debug      bool
		postsDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo app",
		Long: `Serve the demo app over HTTP.

Routes:
  /              home page; the post list streams in after --posts-delay
  /blog/:id/     an id×id multiplication table
  /metrics       Prometheus metrics (when enabled)
  /healthz       liveness probe
  DELETE /_ssr/cache[/route]
                 invalidate the whole cache or one route

Examples:
  vango-ssr serve
  vango-ssr serve --addr=:8080 --no-stream
  vango-ssr serve -c deploy/ssr.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if noStream {
				cfg.Streaming = false
			}
			if debug {
				cfg.Debug = true
			}

			logger := newLogger(cfg.Debug)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := newEngine(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer e.Close()

			return e.serve(ctx, demoApp(slowPosts(postsDelay)))
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from configuration)")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "Wait for every server future before sending a page")
	cmd.Flags().BoolVar(&debug, "debug", false, "Debug logging and hydration debug data")
	cmd.Flags().DurationVar(&postsDelay, "posts-delay", 500*time.Millisecond, "How long the demo post list takes to load")

	return cmd
}

// routes returns the HTTP handler of the server.
func (e *engine) routes(app ssr.GraphFactory) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if e.config.Metrics.Enabled {
		r.Handle(e.config.Metrics.Path, promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	}
	if e.cache != nil {
		r.Delete("/_ssr/cache", e.invalidate)
		r.Delete("/_ssr/cache/*", e.invalidate)
	}

	pages := ssr.NewHandler(e.state, e.render, app)
	base := e.config.BasePath
	if base != "" {
		r.Get(base, pages.ServeHTTP)
	}
	r.Get(base+"/*", pages.ServeHTTP)
	return r
}

func (e *engine) invalidate(w http.ResponseWriter, r *http.Request) {
	route := chi.URLParam(r, "*")
	var err error
	if route == "" {
		err = e.cache.InvalidateAll(r.Context())
	} else {
		route = "/" + strings.Trim(route, "/")
		err = e.cache.Invalidate(r.Context(), route)
	}
	if err != nil {
		e.logger.Error("cache invalidation failed", "route", route, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, verrors.FromError(err, "E131").FormatJSON())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// serve runs the HTTP server until ctx ends, then stops accepting requests
// and waits for running render sessions.
func (e *engine) serve(ctx context.Context, app ssr.GraphFactory) error {
	srv := &http.Server{
		Addr:              e.config.Addr,
		Handler:           e.routes(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("server starting",
			"address", e.config.Addr,
			"streaming", e.config.Streaming,
			"incremental", e.cache != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	e.logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		e.logger.Error("shutdown error", "error", err)
		return err
	}
	if err := e.executor.Wait(shutdownCtx); err != nil {
		return fmt.Errorf("waiting for render sessions: %w", err)
	}
	e.logger.Info("server shutdown complete")
	return nil
}
