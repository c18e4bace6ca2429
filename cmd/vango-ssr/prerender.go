package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/ssr/internal/config"
	"github.com/vango-dev/ssr/pkg/ssr"
)

func prerenderCmd(configPath *string) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "prerender [routes...]",
		Short: "Render routes into the incremental cache",
		Long: `Render routes of the demo app to completion and store them in the
configured incremental cache store, so the first request is a cache hit.

Examples:
  vango-ssr prerender / /blog/1 /blog/2
  vango-ssr prerender -c ssr.yaml /blog/10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Incremental.Store.Kind == config.StoreMemory {
				return fmt.Errorf("prerendering needs a persistent store; set incremental.store.kind")
			}
			cfg.Incremental.Enabled = true

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			e, err := newEngine(ctx, cfg, newLogger(cfg.Debug))
			if err != nil {
				return err
			}
			defer e.Close()

			failed := 0
			for _, route := range args {
				n, err := e.prerender(ctx, demoApp(slowPosts(0)), route)
				if err != nil {
					errorMsg("%s: %v", route, err)
					failed++
					continue
				}
				success("%s (%d bytes)", route, n)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d routes failed", failed, len(args))
			}
			info("Stored %d routes", len(args))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Time limit for all routes")

	return cmd
}

// prerender renders route to the end of its stream. The cache entry is
// written before the stream ends. It returns the number of bytes rendered.
func (e *engine) prerender(ctx context.Context, app ssr.GraphFactory, route string) (int, error) {
	_, stream, err := e.state.Render(ctx, route, e.render, app, nil)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	n := 0
	for {
		chunk, err := stream.Next(ctx)
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n += len(chunk)
	}
}
