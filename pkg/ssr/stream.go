package ssr

import (
	"context"
	"io"
	"sync"
)

// Chunk is one piece of a streamed page. A chunk with Err set is the last
// one of a failed stream.
type Chunk struct {
	HTML string
	Err  error
}

// ChunkStream delivers the chunks of one page in the order they were
// rendered. Closing it cancels the render session behind it.
type ChunkStream struct {
	ch     chan Chunk
	ctx    context.Context
	cancel context.CancelFunc

	finishOnce sync.Once
}

const chunkBuffer = 16

func newChunkStream(parent context.Context) *ChunkStream {
	ctx, cancel := context.WithCancel(parent)
	return &ChunkStream{
		ch:     make(chan Chunk, chunkBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Next returns the next chunk. It returns io.EOF after the last chunk, the
// stream's error if the render failed, and ctx's error if ctx ends first.
func (s *ChunkStream) Next(ctx context.Context) (string, error) {
	select {
	case c, ok := <-s.ch:
		if !ok {
			return "", io.EOF
		}
		if c.Err != nil {
			return "", c.Err
		}
		return c.HTML, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Chunks returns the underlying channel, closed after the last chunk.
func (s *ChunkStream) Chunks() <-chan Chunk {
	return s.ch
}

// Close stops the render session. No further chunks are produced and
// nothing is written to the cache.
func (s *ChunkStream) Close() {
	s.cancel()
}

// Done is closed once the stream is closed or the request context ends.
func (s *ChunkStream) Done() <-chan struct{} {
	return s.ctx.Done()
}

// SendChunk implements render.ChunkSink.
func (s *ChunkStream) SendChunk(html string) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	select {
	case s.ch <- Chunk{HTML: html}:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// SendError implements render.ChunkSink.
func (s *ChunkStream) SendError(err error) {
	if s.ctx.Err() != nil {
		return
	}
	select {
	case s.ch <- Chunk{Err: err}:
	case <-s.ctx.Done():
	}
}

// finish closes the channel. Only the producing session calls it.
func (s *ChunkStream) finish() {
	s.finishOnce.Do(func() { close(s.ch) })
}

// collect reads the remaining chunks until the end of the stream.
func collect(ctx context.Context, s *ChunkStream) ([]string, error) {
	var chunks []string
	for {
		c, err := s.Next(ctx)
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, c)
	}
}
