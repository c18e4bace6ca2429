// Package ssr streams server-rendered pages.
//
// A State owns a pool of renderers and, optionally, an incremental cache.
// Each call to State.Render builds a component graph for one route and
// returns a ChunkStream:
//
//	state := ssr.NewState(ssr.Options{Incremental: cache})
//	freshness, stream, err := state.Render(ctx, "/blog/3", cfg, app, nil)
//	if err != nil {
//	    // *RoutingError before any output means 404, anything else 500
//	}
//	defer stream.Close()
//	for {
//	    chunk, err := stream.Next(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
//
// The first chunk holds the page head, the initial frame and the root
// hydration data. Suspense boundaries that are still waiting on server
// futures appear in it as placeholders (<div data-ssr-mount="M1">). Every
// later chunk replaces exactly one placeholder with the resolved markup of
// its boundary and the hydration data the client needs to resume it. Once a
// boundary has been sent it is frozen: nothing under it is rendered again,
// and errors thrown later by nested boundaries are delivered with those
// boundaries' own payloads.
//
// When the page is fully resolved and an incremental cache is configured,
// the whole page is rendered once more without placeholders and stored, so
// the next request for the route is answered with a single chunk.
//
// Handler adapts State to net/http.
package ssr
