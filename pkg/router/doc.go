// Package router matches request paths to page components.
//
// Routes are registered with a pattern. Static segments match literally,
// ":name" captures one segment and "*name" captures the rest of the path.
// A parameter may declare a type, ":id:int", which the segment must parse as:
//
//	r := router.New().
//	    Page("/", home).
//	    Page("/blog/:id:int", blogPost)
//
// Inside a graph, the router is a component. It reads the current path from
// the MemoryHistory provided at the root, renders the matched page and
// commits the initial streaming chunk. A path that does not match is thrown
// as a *ParseRouteError, which the SSR engine answers with a 404.
package router
