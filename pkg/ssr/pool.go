package ssr

import (
	"sync"

	"github.com/vango-dev/ssr/pkg/render"
)

// DefaultPoolSize is the number of renderers a State starts with.
const DefaultPoolSize = 4

// rendererPool keeps idle renderers so their static template caches survive
// between requests. The lock is held only to pop or push.
type rendererPool struct {
	mu      sync.Mutex
	idle    []*render.Renderer
	metrics *Metrics
}

func newRendererPool(size int, metrics *Metrics) *rendererPool {
	p := &rendererPool{metrics: metrics}
	for i := 0; i < size; i++ {
		p.idle = append(p.idle, newPooledRenderer())
	}
	metrics.setPoolIdle(len(p.idle))
	return p
}

func newPooledRenderer() *render.Renderer {
	return render.NewRenderer(render.RendererConfig{PreRender: true})
}

// get returns an idle renderer, or a new one when none is idle.
func (p *rendererPool) get() *render.Renderer {
	p.mu.Lock()
	n := len(p.idle)
	if n == 0 {
		p.mu.Unlock()
		return newPooledRenderer()
	}
	r := p.idle[n-1]
	p.idle = p.idle[:n-1]
	p.mu.Unlock()

	p.metrics.setPoolIdle(n - 1)
	return r
}

// put returns r to the pool.
func (p *rendererPool) put(r *render.Renderer) {
	r.ResetRenderComponents()
	r.ResetHydration()

	p.mu.Lock()
	p.idle = append(p.idle, r)
	n := len(p.idle)
	p.mu.Unlock()

	p.metrics.setPoolIdle(n)
}
