package ssr

import (
	verrors "github.com/vango-dev/ssr/internal/errors"
	"github.com/vango-dev/ssr/pkg/graph"
	"github.com/vango-dev/ssr/pkg/hydration"
	"github.com/vango-dev/ssr/pkg/vdom"
)

// ExtractFromSuspenseBoundary collects the hydration data the client needs
// to resume the scope id: first the error of the scope's error context (an
// explicit empty entry when there is none), then the data published by the
// scope and every scope under it, depth first. A suspense boundary's hidden
// body is visited before what it currently shows.
//
// The order depends only on the shape of the tree, never on the order in
// which server futures finished.
func ExtractFromSuspenseBoundary(g *graph.Graph, id graph.ScopeID) *hydration.Context {
	data := hydration.New()
	scope := g.Scope(id)
	if scope == nil {
		return data
	}

	var err error
	if ec := scope.ErrorContext(); ec != nil {
		err = ec.First()
	}
	data.InsertError(err, verrors.Caller(0))

	extractScope(g, scope, data)
	return data
}

func extractScope(g *graph.Graph, scope *graph.Scope, data *hydration.Context) {
	data.Extend(scope.OwnHydration())

	if sc := scope.Suspense(); sc != nil {
		extractNode(g, sc.SuspendedNodes(), data)
	}
	extractNode(g, scope.Node(), data)
}

func extractNode(g *graph.Graph, node *vdom.VNode, data *hydration.Context) {
	if node == nil {
		return
	}
	switch node.Kind {
	case vdom.KindComponent:
		if child := g.Scope(graph.ScopeID(node.Scope)); child != nil {
			extractScope(g, child, data)
		}
	case vdom.KindFragment, vdom.KindElement:
		for _, child := range node.Children {
			extractNode(g, child, data)
		}
	case vdom.KindText, vdom.KindRaw:
	}
}
