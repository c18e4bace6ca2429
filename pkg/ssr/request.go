package ssr

import (
	"net/http"
	"net/url"

	"github.com/vango-dev/ssr/pkg/graph"
)

// RequestContext is the part of the HTTP request a page may read while it
// renders. It is provided at the root of the graph.
type RequestContext struct {
	Method     string
	URL        *url.URL
	Header     http.Header
	RemoteAddr string
}

// NewRequestContext captures r. The header is cloned, so the page cannot
// change the request.
func NewRequestContext(r *http.Request) *RequestContext {
	u := *r.URL
	return &RequestContext{
		Method:     r.Method,
		URL:        &u,
		Header:     r.Header.Clone(),
		RemoteAddr: r.RemoteAddr,
	}
}

// UseRequest returns the request the page s belongs to is rendered for.
func UseRequest(s *graph.Scope) (*RequestContext, bool) {
	return graph.Consume[*RequestContext](s)
}
