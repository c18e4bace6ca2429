// Package render turns VNode trees and component graphs into HTML.
//
// A Renderer walks the VNodes a graph's scopes currently show, escaping text
// and attribute values. Subtrees wrapped with vdom.Static are rendered once
// per Renderer and replayed from its template cache afterwards, which is why
// renderers are pooled rather than created per request.
//
//	r := render.NewRenderer(render.RendererConfig{PreRender: true})
//	html, err := r.Render(g)
//
// Nested components go through a ComponentRenderer callback, which lets the
// SSR session render suspended boundaries as placeholders:
//
//	r.SetRenderComponents(func(r *render.Renderer, w io.Writer, g *graph.Graph, id graph.ScopeID) error {
//	    return r.RenderScope(w, g, id)
//	})
//
// # Streaming
//
// A StreamingRenderer sends a page as whole chunks. Placeholders are written
// into the initial frame with RenderPlaceholder; once the boundary resolves,
// ReplacePlaceholder writes its markup together with a script that swaps it
// in and hands over the hydration data:
//
//	<div data-ssr-mount="M1">Loading...</div>
//	...
//	<div id="ssr-resolved-M1" hidden>...</div><script>window.__ssr_resolve("M1","W10=");</script>
//
// # Page shell
//
// PageTemplate wraps a page in an Index, the parsed form of an index.html.
// All text content is escaped. Raw HTML can be inserted with KindRaw nodes,
// which should only carry trusted content.
package render
