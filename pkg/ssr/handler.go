package ssr

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	verrors "github.com/vango-dev/ssr/internal/errors"
)

// Handler serves pages rendered by a State over HTTP.
type Handler struct {
	state   *State
	config  RenderConfig
	factory GraphFactory
	logger  *slog.Logger
}

// NewHandler returns a Handler that renders every request with factory.
func NewHandler(state *State, config RenderConfig, factory GraphFactory) *Handler {
	return &Handler{
		state:   state,
		config:  config,
		factory: factory,
		logger:  state.logger,
	}
}

// ServeHTTP renders the requested route and streams it, flushing after every
// chunk. Routing failures are answered with 404 and other failures before
// the first chunk with 500. A failure after the first chunk ends the body
// with a script that reports the error on the client.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	freshness, stream, err := h.state.Render(ctx, r.URL.RequestURI(), h.config, h.factory, NewRequestContext(r))
	if err != nil {
		status := http.StatusInternalServerError
		if IsRoutingError(err) {
			status = http.StatusNotFound
		} else if ctx.Err() == nil {
			h.logger.Error("render failed", "path", r.URL.Path, "category", verrors.CategoryOf(err), "error", err)
		}
		msg := http.StatusText(status)
		if h.config.Template.Debug {
			msg = debugMessage(err)
		}
		http.Error(w, msg, status)
		return
	}
	defer stream.Close()

	header := w.Header()
	header.Set("Content-Type", "text/html; charset=utf-8")
	freshness.WriteHeaders(header)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	for {
		chunk, err := stream.Next(ctx)
		if err == io.EOF {
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				io.WriteString(w, errorScript(err))
			}
			return
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return
		}
	}
}

// debugMessage describes err for a developer: the coded error on one line,
// then the full chain.
func debugMessage(err error) string {
	var ve *verrors.VangoError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	return ve.FormatCompact() + "\n" + err.Error()
}

// errorScript reports a stream failure to the client. The message is a JSON
// string, which cannot close the script element.
func errorScript(err error) string {
	msg, _ := json.Marshal(err.Error())
	return "<script>window.__ssr_error=" + string(msg) + ";console.error(window.__ssr_error);</script>"
}
