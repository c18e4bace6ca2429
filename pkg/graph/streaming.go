package graph

import "sync"

// StreamingStatus tells whether the initial chunk of a streamed page may be
// sent.
type StreamingStatus int

const (
	// RenderingInitialChunk means the page is still deciding what to render
	// first, for example because routing has not finished.
	RenderingInitialChunk StreamingStatus = iota
	// InitialChunkCommitted means the initial chunk may be sent. Nothing
	// rendered afterwards can change the response status.
	InitialChunkCommitted
)

// StreamingContext publishes the moment the initial chunk is committed. It
// is provided as a root context value by the SSR session.
type StreamingContext struct {
	once      sync.Once
	committed chan struct{}
}

// NewStreamingContext returns an uncommitted StreamingContext.
func NewStreamingContext() *StreamingContext {
	return &StreamingContext{committed: make(chan struct{})}
}

// Commit marks the initial chunk as ready. Later calls do nothing.
func (c *StreamingContext) Commit() {
	c.once.Do(func() { close(c.committed) })
}

// Committed returns a channel that is closed once Commit is called.
func (c *StreamingContext) Committed() <-chan struct{} {
	return c.committed
}

// Status returns the current streaming status.
func (c *StreamingContext) Status() StreamingStatus {
	select {
	case <-c.committed:
		return InitialChunkCommitted
	default:
		return RenderingInitialChunk
	}
}

// CommitInitialChunk commits the streaming context provided at the root of
// s's graph, if any.
func CommitInitialChunk(s *Scope) {
	if sc, ok := Consume[*StreamingContext](s); ok {
		sc.Commit()
	}
}
