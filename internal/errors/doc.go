// Package errors provides structured, coded errors for the SSR engine.
//
// Every failure the engine reports to callers is a *VangoError carrying a
// stable code, a category and a short message. The category is what the
// HTTP adapter uses to choose a status code:
//
//   - routing: no route matched the request (404)
//   - rendering: the page failed to render (500)
//   - cache: the incremental cache failed (logged, never fatal)
//   - hydration: hydration data could not be serialized
//   - config: the serve configuration is invalid
//
// # Usage
//
//	err := errors.New("E101").
//	    WithDetail("no route matched /missing").
//	    Wrap(cause)
//
//	fmt.Println(err.Format())
//	// ERROR E101: Route not found
//	//
//	//   no route matched /missing
//	//
//	//   Learn more: https://vango.dev/docs/errors/E101
package errors
