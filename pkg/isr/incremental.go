package isr

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/dgraph-io/ristretto/v2"

	verrors "github.com/vango-dev/ssr/internal/errors"
)

// Config configures an IncrementalRenderer.
type Config struct {
	// InvalidateAfter is how long an entry stays fresh. Zero keeps entries
	// until they are invalidated explicitly.
	InvalidateAfter time.Duration

	// MemoryCacheLimit bounds the in-memory tier, in bytes of HTML.
	// Zero disables the in-memory tier.
	MemoryCacheLimit int64

	// ClearCache empties the store when the renderer is created.
	ClearCache bool

	// Store persists entries. Nil keeps them in memory only.
	Store Store

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// IncrementalRenderer caches rendered pages by route.
type IncrementalRenderer struct {
	config Config
	memory *ristretto.Cache[string, *Entry]
	store  Store
	logger *slog.Logger
}

// New creates an IncrementalRenderer.
func New(config Config) (*IncrementalRenderer, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &IncrementalRenderer{
		config: config,
		store:  config.Store,
		logger: logger.With("component", "isr"),
	}

	if config.MemoryCacheLimit > 0 {
		memory, err := ristretto.NewCache(&ristretto.Config[string, *Entry]{
			NumCounters:        100_000,
			MaxCost:            config.MemoryCacheLimit,
			BufferItems:        64,
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, err
		}
		r.memory = memory
	} else if r.store == nil {
		r.logger.Warn("incremental cache has neither a memory tier nor a store; no page will be cached")
	}

	if config.ClearCache && r.store != nil {
		if err := r.store.Clear(context.Background()); err != nil {
			return nil, verrors.New("E131").WithDetail("clearing the cache on start").Wrap(err)
		}
	}
	return r, nil
}

// Get returns the fresh entry for route, or nil on a miss. Expired entries
// are removed and reported as misses. A non-nil error means the store could
// not be read; callers should treat it as a miss.
func (r *IncrementalRenderer) Get(ctx context.Context, route string) (*Entry, RenderFreshness, error) {
	if r.memory != nil {
		if e, ok := r.memory.Get(route); ok {
			f := r.freshness(e)
			if !f.Expired() {
				return e, f, nil
			}
			r.memory.Del(route)
		}
	}

	if r.store == nil {
		return nil, RenderFreshness{}, nil
	}
	e, err := r.store.Get(ctx, route)
	if errors.Is(err, ErrNotFound) {
		return nil, RenderFreshness{}, nil
	}
	if err != nil {
		return nil, RenderFreshness{}, verrors.New("E130").WithDetail("route " + route).Wrap(err)
	}
	if !utf8.Valid(e.HTML) {
		return nil, RenderFreshness{}, verrors.New("E132").WithDetail("route " + route)
	}

	f := r.freshness(e)
	if f.Expired() {
		if err := r.store.Delete(ctx, route); err != nil {
			r.logger.Warn("failed to delete expired entry", "route", route, "error", err)
		}
		return nil, RenderFreshness{}, nil
	}
	r.remember(e)
	return e, f, nil
}

// Cache stores html as the current render of route.
func (r *IncrementalRenderer) Cache(ctx context.Context, route, html string) (RenderFreshness, error) {
	e := &Entry{Route: route, HTML: []byte(html), Timestamp: time.Now()}
	r.remember(e)
	if r.store != nil {
		if err := r.store.Put(ctx, e); err != nil {
			return RenderFreshness{}, verrors.New("E131").WithDetail("route " + route).Wrap(err)
		}
	}
	return r.freshness(e), nil
}

// Invalidate removes route from every tier.
func (r *IncrementalRenderer) Invalidate(ctx context.Context, route string) error {
	if r.memory != nil {
		r.memory.Del(route)
	}
	if r.store != nil {
		return r.store.Delete(ctx, route)
	}
	return nil
}

// InvalidateAll empties every tier.
func (r *IncrementalRenderer) InvalidateAll(ctx context.Context) error {
	if r.memory != nil {
		r.memory.Clear()
	}
	if r.store != nil {
		return r.store.Clear(ctx)
	}
	return nil
}

// InvalidateAfter returns the configured freshness window.
func (r *IncrementalRenderer) InvalidateAfter() time.Duration {
	return r.config.InvalidateAfter
}

// Close releases the in-memory tier. The store is owned by the caller.
func (r *IncrementalRenderer) Close() {
	if r.memory != nil {
		r.memory.Close()
	}
}

func (r *IncrementalRenderer) freshness(e *Entry) RenderFreshness {
	return Created(e.Timestamp, r.config.InvalidateAfter)
}

// remember puts e into the in-memory tier and waits until it is visible, so
// a Get right after Cache is served from memory. The admission policy may
// still turn the entry away; that is logged.
func (r *IncrementalRenderer) remember(e *Entry) {
	if r.memory == nil {
		return
	}
	cost := int64(len(e.HTML))
	if cost == 0 {
		cost = 1
	}
	var queued bool
	if r.config.InvalidateAfter > 0 {
		left := r.config.InvalidateAfter - time.Since(e.Timestamp)
		if left <= 0 {
			return
		}
		queued = r.memory.SetWithTTL(e.Route, e, cost, left)
	} else {
		queued = r.memory.Set(e.Route, e, cost)
	}
	if queued {
		r.memory.Wait()
		if cur, ok := r.memory.Get(e.Route); ok && cur == e {
			return
		}
	}
	r.logger.Warn("in-memory cache dropped entry", "route", e.Route, "bytes", len(e.HTML), "limit", r.config.MemoryCacheLimit)
}
