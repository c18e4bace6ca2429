package ssr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	verrors "github.com/vango-dev/ssr/internal/errors"
	"github.com/vango-dev/ssr/pkg/graph"
	"github.com/vango-dev/ssr/pkg/isr"
	"github.com/vango-dev/ssr/pkg/render"
	"github.com/vango-dev/ssr/pkg/router"
)

// Phase is the state of a render session.
type Phase int

const (
	PhaseBuilding Phase = iota
	PhaseAwaitingInitial
	PhaseStreaming
	PhaseResolvingSuspense
	PhaseFinalizing
	PhaseDone
	PhaseFailed
)

// String returns the phase name used in logs and traces.
func (p Phase) String() string {
	switch p {
	case PhaseBuilding:
		return "building"
	case PhaseAwaitingInitial:
		return "awaiting_initial"
	case PhaseStreaming:
		return "streaming"
	case PhaseResolvingSuspense:
		return "resolving_suspense"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// session renders one page into one ChunkStream. Everything in it belongs
// to the goroutine running run, except initial, which State.Render reads.
type session struct {
	id       string
	route    string
	cacheKey string
	config   RenderConfig
	factory  GraphFactory
	request  *RequestContext

	renderer  *render.Renderer
	stream    *ChunkStream
	streaming *render.StreamingRenderer
	registry  *mountRegistry
	nesting   nestingStack
	document  *Document
	cache     *isr.IncrementalRenderer

	metrics *Metrics
	logger  *slog.Logger
	span    trace.Span

	phase   Phase
	outcome string

	// initial receives the result of the initial render exactly once: nil
	// once the first chunk is queued, the failure otherwise.
	initial     chan error
	initialSent bool

	tail     string
	tailSent bool
}

func (s *session) setPhase(p Phase) {
	s.phase = p
	s.logger.Debug("render phase", "phase", p.String())
	s.span.AddEvent("phase", trace.WithAttributes(attribute.String("ssr.phase", p.String())))
}

func (s *session) reportInitial(err error) {
	if s.initialSent {
		return
	}
	s.initialSent = true
	s.initial <- err
}

// run drives the session from building the graph to the end of the stream.
func (s *session) run(ctx context.Context) {
	defer s.stream.finish()
	defer s.span.End()

	s.setPhase(PhaseBuilding)
	g := s.build(ctx)
	defer g.Close()

	if err := s.awaitInitial(ctx, g); err != nil {
		s.fail(ctx, err)
		return
	}
	if err := s.streamInitial(g); err != nil {
		s.fail(ctx, err)
		return
	}
	if err := s.resolveSuspense(ctx, g); err != nil {
		s.fail(ctx, err)
		return
	}
	if err := s.finalize(ctx, g); err != nil {
		s.fail(ctx, err)
		return
	}

	s.setPhase(PhaseDone)
	s.outcome = outcomeStreamed
	s.span.SetStatus(codes.Ok, "")
}

// build creates the graph and provides the root context every page can
// consume.
func (s *session) build(ctx context.Context) *graph.Graph {
	g := s.factory(ctx)
	graph.ProvideRootContext(g, router.NewMemoryHistory(s.route, s.config.BasePath))
	graph.ProvideRootContext(g, s.document)
	graph.ProvideRootContext(g, graph.NewStreamingContext())
	if s.request != nil {
		graph.ProvideRootContext(g, s.request)
	}
	return g
}

// awaitInitial builds the tree and waits until the first chunk may be sent:
// with streaming, until the page commits its initial chunk or no server
// future is left; without, until every server future has finished.
func (s *session) awaitInitial(ctx context.Context, g *graph.Graph) error {
	s.setPhase(PhaseAwaitingInitial)
	g.Rebuild()

	if !s.config.Streaming {
		if err := g.WaitForSuspense(ctx); err != nil {
			return err
		}
	} else {
		sc, _ := graph.ConsumeRootContext[*graph.StreamingContext](g)
		for sc.Status() == graph.RenderingInitialChunk && g.SuspendedTasksRemaining() {
			if err := waitForWorkOrCommit(ctx, g, sc); err != nil {
				return err
			}
			g.RenderSuspenseImmediate()
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return classifyRootErrors(s.route, g.RootErrors())
}

// waitForWorkOrCommit returns when a server future has finished, the
// initial chunk has been committed or ctx ends.
func waitForWorkOrCommit(ctx context.Context, g *graph.Graph, sc *graph.StreamingContext) error {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-sc.Committed():
			cancel()
		case <-waitCtx.Done():
		}
	}()

	err := g.WaitForSuspenseWork(waitCtx)
	if err != nil && ctx.Err() == nil && sc.Status() == graph.InitialChunkCommitted {
		return nil
	}
	return err
}

// streamInitial sends the head, the initial frame with placeholders and the
// root hydration data as the first chunk.
func (s *session) streamInitial(g *graph.Graph) error {
	s.setPhase(PhaseStreaming)
	tpl := s.config.Template

	var head strings.Builder
	if err := tpl.RenderHead(&head, s.document); err != nil {
		return renderingError(s.route, "E111", err)
	}
	s.streaming = render.NewStreamingRenderer(head.String(), s.stream, tpl.Debug)

	var tail strings.Builder
	if err := tpl.RenderAfterBody(&tail); err != nil {
		return renderingError(s.route, "E111", err)
	}
	s.tail = tail.String()

	s.renderer.SetRenderComponents(s.renderComponent)
	var body strings.Builder
	if err := s.renderer.RenderTo(&body, g); err != nil {
		return renderingError(s.route, "E110", err)
	}
	root := ExtractFromSuspenseBoundary(g, graph.RootScope)
	if err := tpl.RenderAfterMain(&body, root.Serialize(tpl.Debug)); err != nil {
		return renderingError(s.route, "E111", err)
	}

	if err := s.emit(body.String(), !g.SuspendedTasksRemaining()); err != nil {
		return err
	}
	s.reportInitial(nil)
	s.logger.Debug("initial chunk sent", "placeholders", s.streaming.Mounts(), "pending", s.registry.len())
	return nil
}

// resolveSuspense sends one replacement chunk per boundary as its server
// futures finish, in the order they finish.
func (s *session) resolveSuspense(ctx context.Context, g *graph.Graph) error {
	if !g.SuspendedTasksRemaining() {
		return nil
	}
	s.setPhase(PhaseResolvingSuspense)

	for g.SuspendedTasksRemaining() {
		if err := g.WaitForSuspenseWork(ctx); err != nil {
			return err
		}

		// Boundaries without an entry were never sent as placeholders:
		// they are still hidden inside an unresolved ancestor.
		var ready []graph.ScopeID
		for _, id := range g.RenderSuspenseImmediate() {
			if _, ok := s.registry.get(id); ok {
				ready = append(ready, id)
			}
		}
		for i, id := range ready {
			last := i == len(ready)-1 && !g.SuspendedTasksRemaining()
			if err := s.resolveBoundary(g, id, last); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveBoundary replaces the placeholder of the boundary id, then freezes
// the boundary and lets the boundaries nested in it capture their own
// errors.
func (s *session) resolveBoundary(g *graph.Graph, id graph.ScopeID, last bool) error {
	entry, _ := s.registry.get(id)
	tpl := s.config.Template

	s.renderer.ResetHydration()
	data := ExtractFromSuspenseBoundary(g, id).Serialize(tpl.Debug)

	var out strings.Builder
	s.nesting.push(id)
	err := s.streaming.ReplacePlaceholder(entry.mount, func(w io.Writer) error {
		return s.renderer.RenderScope(w, g, id)
	}, data, &out)
	children := s.nesting.pop()
	if err != nil {
		return renderingError(s.route, "E112", err)
	}
	s.registry.addChildren(id, children)
	entry, _ = s.registry.get(id)
	s.registry.remove(id)

	if err := s.emit(out.String(), last); err != nil {
		return err
	}
	if scope := g.Scope(id); scope != nil {
		scope.Suspense().Freeze()
	}
	for _, child := range entry.children {
		g.StartCapturingErrors(child)
	}

	s.metrics.recordBoundaryResolved()
	s.logger.Debug("suspense boundary resolved", "scope", uint64(id), "mount", entry.mount.String())
	return nil
}

// emit sends chunk. The last chunk carries the end of the document.
func (s *session) emit(chunk string, last bool) error {
	if last && !s.tailSent {
		chunk += s.tail
		s.tailSent = true
	}
	if err := s.streaming.Render(chunk); err != nil {
		return err
	}
	s.metrics.recordChunk()
	return nil
}

// finalize ends the document and stores the fully resolved page.
func (s *session) finalize(ctx context.Context, g *graph.Graph) error {
	s.setPhase(PhaseFinalizing)
	if !s.tailSent {
		if err := s.emit("", true); err != nil {
			return err
		}
	}

	if s.cache == nil || s.cacheKey == "" || ctx.Err() != nil {
		return nil
	}
	html, err := s.renderComplete(g)
	if err != nil {
		s.logger.Warn("failed to render page for the incremental cache", "error", err)
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	if _, err := s.cache.Cache(ctx, s.cacheKey, html); err != nil {
		s.logger.Warn("failed to write incremental cache", "error", err)
	}
	return nil
}

// renderComplete renders the resolved page in one piece, without
// placeholders.
func (s *session) renderComplete(g *graph.Graph) (string, error) {
	tpl := s.config.Template
	var buf strings.Builder
	if err := tpl.RenderHead(&buf, s.document); err != nil {
		return "", err
	}

	s.renderer.ResetRenderComponents()
	s.renderer.ResetHydration()
	if err := s.renderer.RenderTo(&buf, g); err != nil {
		return "", err
	}

	root := ExtractFromSuspenseBoundary(g, graph.RootScope)
	if err := tpl.RenderAfterMain(&buf, root.Serialize(tpl.Debug)); err != nil {
		return "", err
	}
	if err := tpl.RenderAfterBody(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fail ends the session. Before the first chunk the error goes back to
// State.Render; afterwards it ends the stream. A cancelled session sends
// nothing.
func (s *session) fail(ctx context.Context, err error) {
	s.setPhase(PhaseFailed)
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())

	if ctx.Err() != nil {
		s.outcome = outcomeCancelled
		s.logger.Debug("render cancelled", "error", err)
		s.reportInitial(&RenderingError{Route: s.route, Err: verrors.New("E113").Wrap(err)})
		return
	}

	var re *RoutingError
	if errors.As(err, &re) {
		s.outcome = outcomeNotFound
	} else {
		s.outcome = outcomeError
	}

	if !s.initialSent {
		s.logger.Debug("initial render failed", "error", err)
		s.reportInitial(err)
		return
	}
	s.logger.Error("render failed after streaming started", "error", err)
	s.streaming.CloseWithError(err)
}
