package render

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/vango-dev/ssr/pkg/graph"
	"github.com/vango-dev/ssr/pkg/vdom"
)

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// PreRender marks interactive elements with hydration IDs so the client
	// can attach to server-rendered markup instead of rebuilding it.
	PreRender bool
}

// ComponentRenderer renders one nested scope. It is installed with
// SetRenderComponents and called for every component the renderer meets
// while walking a graph; the default is RenderScope.
type ComponentRenderer func(r *Renderer, w io.Writer, g *graph.Graph, id graph.ScopeID) error

// Renderer handles server-side rendering of VNode trees and component graphs
// to HTML. A Renderer is not safe for concurrent use; pool them instead.
type Renderer struct {
	config     RendererConfig
	hidCounter uint32

	// templates caches the markup of static subtrees by template key.
	templates map[string][]byte

	renderComponents ComponentRenderer
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	return &Renderer{
		config:    config,
		templates: make(map[string][]byte),
	}
}

// SetPreRender toggles hydration markers.
func (r *Renderer) SetPreRender(on bool) {
	r.config.PreRender = on
}

// PreRender reports whether hydration markers are written.
func (r *Renderer) PreRender() bool {
	return r.config.PreRender
}

// SetRenderComponents installs the callback used for nested components.
func (r *Renderer) SetRenderComponents(fn ComponentRenderer) {
	r.renderComponents = fn
}

// ResetRenderComponents restores inline rendering of nested components.
func (r *Renderer) ResetRenderComponents() {
	r.renderComponents = nil
}

// ResetHydration restarts hydration ID numbering. Call it before rendering a
// fragment the client hydrates on its own.
func (r *Renderer) ResetHydration() {
	r.hidCounter = 0
}

// CachedTemplates returns how many static templates the renderer holds.
func (r *Renderer) CachedTemplates() int {
	return len(r.templates)
}

// RenderToString renders a VNode tree that contains no components.
func (r *Renderer) RenderToString(node *vdom.VNode) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams a VNode tree that contains no components to w.
func (r *Renderer) RenderToWriter(w io.Writer, node *vdom.VNode) error {
	return r.renderNode(w, nil, node)
}

// Render renders the whole graph, starting at its root scope.
func (r *Renderer) Render(g *graph.Graph) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderTo(&buf, g); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderTo writes the whole graph to w.
func (r *Renderer) RenderTo(w io.Writer, g *graph.Graph) error {
	return r.RenderScope(w, g, graph.RootScope)
}

// RenderScope writes the markup the scope currently shows. Components nested
// in it go through the installed ComponentRenderer.
func (r *Renderer) RenderScope(w io.Writer, g *graph.Graph, id graph.ScopeID) error {
	s := g.Scope(id)
	if s == nil {
		return fmt.Errorf("render: scope %d is not mounted", id)
	}
	return r.renderNode(w, g, s.Node())
}

// renderNode dispatches rendering based on node kind.
func (r *Renderer) renderNode(w io.Writer, g *graph.Graph, node *vdom.VNode) error {
	if node == nil {
		return nil
	}

	if node.Template != "" {
		return r.renderTemplate(w, g, node)
	}

	switch node.Kind {
	case vdom.KindElement:
		return r.renderElement(w, g, node)
	case vdom.KindText:
		_, err := io.WriteString(w, escapeHTML(node.Text))
		return err
	case vdom.KindFragment:
		for _, child := range node.Children {
			if err := r.renderNode(w, g, child); err != nil {
				return err
			}
		}
		return nil
	case vdom.KindComponent:
		return r.renderComponent(w, g, node)
	case vdom.KindRaw:
		_, err := io.WriteString(w, node.Text)
		return err
	default:
		return fmt.Errorf("unknown node kind: %d", node.Kind)
	}
}

// renderTemplate writes a static subtree from the template cache, rendering
// and caching it on first use. Subtrees that turn out not to be static are
// rendered normally every time.
func (r *Renderer) renderTemplate(w io.Writer, g *graph.Graph, node *vdom.VNode) error {
	if cached, ok := r.templates[node.Template]; ok {
		_, err := w.Write(cached)
		return err
	}

	inner := *node
	inner.Template = ""
	if !node.IsStatic() {
		return r.renderNode(w, g, &inner)
	}

	var buf bytes.Buffer
	if err := r.renderNode(&buf, g, &inner); err != nil {
		return err
	}
	r.templates[node.Template] = buf.Bytes()
	_, err := w.Write(buf.Bytes())
	return err
}

// renderComponent renders a mounted component through the component callback.
func (r *Renderer) renderComponent(w io.Writer, g *graph.Graph, node *vdom.VNode) error {
	if g == nil {
		return fmt.Errorf("render: component %q outside a graph", node.Comp.ComponentName())
	}
	if node.Scope == 0 {
		return fmt.Errorf("render: component %q was never mounted", node.Comp.ComponentName())
	}
	id := graph.ScopeID(node.Scope)
	if r.renderComponents != nil {
		return r.renderComponents(r, w, g, id)
	}
	return r.RenderScope(w, g, id)
}

// renderElement renders an HTML element with its attributes and children.
func (r *Renderer) renderElement(w io.Writer, g *graph.Graph, node *vdom.VNode) error {
	tag := node.Tag

	if _, err := io.WriteString(w, "<"+tag); err != nil {
		return err
	}
	if err := r.renderAttributes(w, node); err != nil {
		return err
	}

	if r.config.PreRender && node.IsInteractive() {
		hid := r.nextHID()
		node.HID = hid
		if _, err := fmt.Fprintf(w, ` data-hid="%s"`, hid); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}
	if vdom.IsVoidElement(tag) {
		return nil
	}

	if rawHTML, ok := node.Props["dangerouslySetInnerHTML"].(string); ok {
		if _, err := io.WriteString(w, rawHTML); err != nil {
			return err
		}
	} else {
		for _, child := range node.Children {
			if err := r.renderNode(w, g, child); err != nil {
				return err
			}
		}
	}

	_, err := io.WriteString(w, "</"+tag+">")
	return err
}

// renderAttributes renders all attributes for an element.
func (r *Renderer) renderAttributes(w io.Writer, node *vdom.VNode) error {
	if node.Props == nil {
		return nil
	}

	// Sort keys for deterministic output
	keys := make([]string, 0, len(node.Props))
	for key := range node.Props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var events []string
	for _, key := range keys {
		value := node.Props[key]

		if strings.HasPrefix(key, "_") {
			continue
		}
		if strings.HasPrefix(key, "on") && isEventHandler(value) {
			events = append(events, strings.ToLower(key[2:]))
			continue
		}

		switch key {
		case "className":
			key = "class"
		case "htmlFor":
			key = "for"
		case "dangerouslySetInnerHTML", "key":
			continue
		}

		if isBooleanAttr(key) {
			if on, ok := value.(bool); ok {
				if on {
					if _, err := io.WriteString(w, " "+key); err != nil {
						return err
					}
				}
				continue
			}
		}

		if s := attrToString(value); s != "" {
			if _, err := fmt.Fprintf(w, ` %s="%s"`, key, escapeAttr(s)); err != nil {
				return err
			}
		}
	}

	// Event markers let the client bind handlers after hydration.
	if r.config.PreRender {
		for _, event := range events {
			if _, err := fmt.Fprintf(w, ` data-on-%s="true"`, event); err != nil {
				return err
			}
		}
	}
	return nil
}

// nextHID generates the next sequential hydration ID.
func (r *Renderer) nextHID() string {
	r.hidCounter++
	return "h" + strconv.FormatUint(uint64(r.hidCounter), 10)
}

// isEventHandler returns true if the value looks like an event handler.
func isEventHandler(value any) bool {
	switch value.(type) {
	case nil:
		return false
	case func(), func(any), vdom.EventHandler:
		return true
	default:
		return strings.HasPrefix(fmt.Sprintf("%T", value), "func")
	}
}

// attrToString converts an attribute value to a string.
func attrToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
