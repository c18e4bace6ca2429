package render

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/vango-dev/ssr/pkg/hydration"
)

// Mount identifies a placeholder in a streamed page.
type Mount struct {
	id uint32
}

// String returns the mount identifier as it appears in the markup ("M1").
func (m Mount) String() string {
	return "M" + strconv.FormatUint(uint64(m.id), 10)
}

// ChunkSink receives the chunks of one streamed page, in order.
type ChunkSink interface {
	// SendChunk delivers a chunk. It fails once the consumer is gone.
	SendChunk(html string) error

	// SendError ends the stream with an error.
	SendError(err error)
}

// StreamingRenderer writes a page as a sequence of whole chunks. It holds the
// page head back until the first chunk, allocates placeholder mounts while
// the initial frame is rendered and writes the replacement for each mount
// once its content is ready.
type StreamingRenderer struct {
	mu        sync.Mutex
	sink      ChunkSink
	head      string
	nextMount uint32
	debug     bool
	closed    bool
}

// NewStreamingRenderer creates a StreamingRenderer that sends head in front
// of the first chunk. With debug set, replacement scripts carry the type and
// location arrays of their hydration data.
func NewStreamingRenderer(head string, sink ChunkSink, debug bool) *StreamingRenderer {
	return &StreamingRenderer{sink: sink, head: head, debug: debug}
}

// Render sends chunk as one piece.
func (s *StreamingRenderer) Render(chunk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("render: stream is closed")
	}
	if s.head != "" {
		chunk = s.head + chunk
		s.head = ""
	}
	return s.sink.SendChunk(chunk)
}

// RenderPlaceholder allocates a mount and writes a placeholder for it into w,
// with the markup written by renderInner (usually a loading state) inside.
func (s *StreamingRenderer) RenderPlaceholder(w io.Writer, renderInner func(w io.Writer) error) (Mount, error) {
	s.mu.Lock()
	s.nextMount++
	m := Mount{id: s.nextMount}
	s.mu.Unlock()

	if _, err := fmt.Fprintf(w, `<div data-ssr-mount="%s">`, m); err != nil {
		return m, err
	}
	if err := renderInner(w); err != nil {
		return m, err
	}
	_, err := io.WriteString(w, "</div>")
	return m, err
}

// ReplacePlaceholder writes the resolved markup for m followed by the script
// that swaps it into the placeholder and hands data to the client.
func (s *StreamingRenderer) ReplacePlaceholder(m Mount, renderResolved func(w io.Writer) error, data hydration.Serialized, w io.Writer) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<div id="ssr-resolved-%s" hidden>`, m)
	if err := renderResolved(&buf); err != nil {
		return err
	}
	buf.WriteString("</div>")
	fmt.Fprintf(&buf, `<script>window.__ssr_resolve("%s","%s"`, m, data.Data)
	if s.debug && data.HasDebug() {
		fmt.Fprintf(&buf, ",%s,%s", data.DebugTypes, data.DebugLocations)
	}
	buf.WriteString(");</script>")

	_, err := w.Write(buf.Bytes())
	return err
}

// CloseWithError ends the stream with err. Nothing can be rendered after.
func (s *StreamingRenderer) CloseWithError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.sink.SendError(err)
}

// Mounts returns how many placeholders have been allocated.
func (s *StreamingRenderer) Mounts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.nextMount)
}
