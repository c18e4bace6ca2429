package ssr

import (
	"io"
	"log/slog"
	"sync"

	"github.com/vango-dev/ssr/pkg/graph"
	"github.com/vango-dev/ssr/pkg/render"
)

// headElement is anything that can write itself into the document head.
type headElement interface {
	Render(w io.Writer) error
}

// Document collects the title and head elements set by a page while it
// renders. It is provided at the root of every graph a session builds.
type Document struct {
	mu        sync.Mutex
	title     string
	elements  []headElement
	streaming bool
	logger    *slog.Logger
}

// NewDocument returns an empty Document.
func NewDocument(logger *slog.Logger) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	return &Document{logger: logger}
}

// UseDocument returns the Document of the page s belongs to.
func UseDocument(s *graph.Scope) (*Document, bool) {
	return graph.Consume[*Document](s)
}

// SetTitle overrides the title of the index.html shell.
func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.warnIfStreaming("title")
	d.title = title
}

// AddMeta adds a meta element.
func (d *Document) AddMeta(tag render.MetaTag) { d.add("meta", tag) }

// AddLink adds a link element.
func (d *Document) AddLink(tag render.LinkTag) { d.add("link", tag) }

// AddScript adds a script element.
func (d *Document) AddScript(tag render.ScriptTag) { d.add("script", tag) }

func (d *Document) add(kind string, el headElement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.warnIfStreaming(kind)
	d.elements = append(d.elements, el)
}

// warnIfStreaming logs head content that arrives after the head was sent.
// Such content still reaches cached renders of the page.
func (d *Document) warnIfStreaming(kind string) {
	if d.streaming {
		d.logger.Warn("head element added after the head was streamed; it will be missing from this response",
			"element", kind)
	}
}

// Title implements render.Head.
func (d *Document) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.title
}

// RenderHead implements render.Head.
func (d *Document) RenderHead(w io.Writer) error {
	d.mu.Lock()
	elements := make([]headElement, len(d.elements))
	copy(elements, d.elements)
	d.mu.Unlock()

	for _, el := range elements {
		if err := el.Render(w); err != nil {
			return err
		}
	}
	return nil
}

// StartStreaming implements render.Head.
func (d *Document) StartStreaming() {
	d.mu.Lock()
	d.streaming = true
	d.mu.Unlock()
}
