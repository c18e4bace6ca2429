package ssr

import (
	"errors"
	"strings"

	verrors "github.com/vango-dev/ssr/internal/errors"
	"github.com/vango-dev/ssr/pkg/router"
)

// RoutingError reports that the route did not match any page. No output has
// been sent; the HTTP layer answers 404.
type RoutingError struct {
	Route string
	Err   error
}

func (e *RoutingError) Error() string {
	return "routing " + e.Route + ": " + e.Err.Error()
}

func (e *RoutingError) Unwrap() error { return e.Err }

// RenderingError reports a failure to render the page. Returned by
// State.Render it means no output has been sent; delivered through a
// ChunkStream it ends a stream that has already started.
type RenderingError struct {
	Route string
	Err   error
}

func (e *RenderingError) Error() string {
	return "rendering " + e.Route + ": " + e.Err.Error()
}

func (e *RenderingError) Unwrap() error { return e.Err }

// IsRoutingError reports whether err is, or wraps, a *RoutingError.
func IsRoutingError(err error) bool {
	var re *RoutingError
	return errors.As(err, &re)
}

// classifyRootErrors turns the errors captured at the root of a graph into
// the error State.Render returns. A routing failure anywhere among them
// wins; otherwise all messages are joined into one rendering error.
func classifyRootErrors(route string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	for _, err := range errs {
		var pe *router.ParseRouteError
		if errors.As(err, &pe) {
			return &RoutingError{
				Route: route,
				Err:   verrors.New("E101").WithDetail(pe.Error()).Wrap(pe),
			}
		}
	}

	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return &RenderingError{
		Route: route,
		Err:   verrors.New("E110").WithDetail(strings.Join(msgs, "\n")).Wrap(errors.Join(errs...)),
	}
}

// renderingError wraps a failure to write page markup.
func renderingError(route, code string, err error) error {
	return &RenderingError{Route: route, Err: verrors.FromError(err, code)}
}
