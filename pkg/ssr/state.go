package ssr

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	verrors "github.com/vango-dev/ssr/internal/errors"
	"github.com/vango-dev/ssr/pkg/graph"
	"github.com/vango-dev/ssr/pkg/isr"
	"github.com/vango-dev/ssr/pkg/render"
	"github.com/vango-dev/ssr/pkg/router"
)

// GraphFactory creates the component graph for one render. Server futures
// of the graph should run under ctx, which ends when the session does.
type GraphFactory func(ctx context.Context) *graph.Graph

// App returns a GraphFactory for graphs rooted at root.
func App(root graph.RenderFunc) GraphFactory {
	return func(ctx context.Context) *graph.Graph {
		return graph.New(ctx, root)
	}
}

// RenderConfig describes how pages are rendered.
type RenderConfig struct {
	// Template wraps every page.
	Template render.PageTemplate

	// Streaming sends the initial frame as soon as routing is decided and
	// streams suspense boundaries as they resolve. Without it the first
	// chunk waits for every server future.
	Streaming bool

	// BasePath is stripped from routes before they reach the router.
	BasePath string
}

// DefaultRenderConfig streams pages in the built-in shell.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Template:  render.PageTemplate{Index: render.DefaultIndex()},
		Streaming: true,
	}
}

// Options configures a State.
type Options struct {
	// PoolSize is the number of renderers created up front.
	// Default: DefaultPoolSize.
	PoolSize int

	// Incremental caches fully resolved pages. Nil disables caching.
	Incremental *isr.IncrementalRenderer

	// Executor runs render sessions. Default: NewExecutor(0).
	Executor Executor

	// Metrics records Prometheus metrics. Nil records nothing.
	Metrics *Metrics

	// Tracer traces render sessions. Default: otel.Tracer("vango/ssr").
	Tracer trace.Tracer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// State renders pages. It is safe for concurrent use.
type State struct {
	pool     *rendererPool
	cache    *isr.IncrementalRenderer
	executor Executor
	metrics  *Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewState creates a State.
func NewState(opts Options) *State {
	if opts.PoolSize <= 0 {
		opts.PoolSize = DefaultPoolSize
	}
	if opts.Executor == nil {
		opts.Executor = NewExecutor(0)
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("vango/ssr")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &State{
		pool:     newRendererPool(opts.PoolSize, opts.Metrics),
		cache:    opts.Incremental,
		executor: opts.Executor,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		logger:   opts.Logger.With("component", "ssr"),
	}
}

// Incremental returns the incremental cache, or nil.
func (st *State) Incremental() *isr.IncrementalRenderer {
	return st.cache
}

// Render renders route. A fresh cached page is returned as a stream of one
// chunk without building a graph. Otherwise a render session starts, and
// Render returns once its first chunk is ready: errors found before that
// are returned here (*RoutingError or *RenderingError) and no chunk is
// sent. Errors after that end the stream.
//
// The caller must Close the stream, or read it to the end. The request
// context may be nil.
func (st *State) Render(ctx context.Context, route string, config RenderConfig, factory GraphFactory, request *RequestContext) (isr.RenderFreshness, *ChunkStream, error) {
	start := time.Now()
	key := cacheKey(route)

	if st.cache != nil && key != "" {
		entry, freshness, err := st.cache.Get(ctx, key)
		switch {
		case err != nil:
			st.metrics.recordCache("error")
			st.logger.Warn("incremental cache read failed", "route", key, "error", err)
		case entry != nil:
			st.metrics.recordCache("hit")
			stream := newChunkStream(ctx)
			stream.SendChunk(string(entry.HTML))
			stream.finish()
			st.metrics.recordChunk()
			st.metrics.recordRender(outcomeCached, time.Since(start).Seconds())
			return freshness, stream, nil
		default:
			st.metrics.recordCache("miss")
		}
	}

	stream := newChunkStream(ctx)
	id := uuid.NewString()
	sessionCtx, span := st.tracer.Start(stream.ctx, "ssr.render",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("ssr.session_id", id),
			attribute.String("ssr.route", route),
			attribute.Bool("ssr.streaming", config.Streaming),
		),
	)

	s := &session{
		id:       id,
		route:    route,
		cacheKey: key,
		config:   config,
		factory:  factory,
		request:  request,
		renderer: st.pool.get(),
		stream:   stream,
		registry: newMountRegistry(),
		cache:    st.cache,
		metrics:  st.metrics,
		logger:   st.logger.With("session", id, "route", route),
		span:     span,
		initial:  make(chan error, 1),
	}
	s.document = NewDocument(s.logger)

	err := st.executor.Go(ctx, func() {
		st.metrics.sessionStarted()
		defer st.metrics.sessionFinished()
		defer st.pool.put(s.renderer)

		s.run(sessionCtx)
		st.metrics.recordRender(s.outcome, time.Since(start).Seconds())
	})
	if err != nil {
		span.RecordError(err)
		span.End()
		st.pool.put(s.renderer)
		stream.Close()
		return isr.RenderFreshness{}, nil, &RenderingError{Route: route, Err: err}
	}

	select {
	case err := <-s.initial:
		if err != nil {
			stream.Close()
			return isr.RenderFreshness{}, nil, err
		}
	case <-ctx.Done():
		stream.Close()
		return isr.RenderFreshness{}, nil, &RenderingError{Route: route, Err: verrors.New("E113").Wrap(ctx.Err())}
	}

	var maxAge time.Duration
	if st.cache != nil {
		maxAge = st.cache.InvalidateAfter()
	}
	return isr.Now(maxAge), stream, nil
}

// cacheKey returns the key a route is cached under: its canonical path.
// Routes with a query string, or that do not canonicalize, are not cached.
func cacheKey(route string) string {
	path, query, err := router.CanonicalizePath(route)
	if err != nil || query != "" {
		return ""
	}
	return path
}
