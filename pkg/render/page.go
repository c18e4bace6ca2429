package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/vango-dev/ssr/internal/errors"
	"github.com/vango-dev/ssr/pkg/hydration"
)

// StreamingBootstrapJS defines window.__ssr_resolve, which moves the markup
// of a resolved boundary into its placeholder and records its hydration data
// under the mount identifier.
const StreamingBootstrapJS = `window.__ssr_hydration={};` +
	`window.__ssr_resolve=function(id,data,types,locations){` +
	`var m=document.querySelector('[data-ssr-mount="'+id+'"]');` +
	`var r=document.getElementById("ssr-resolved-"+id);` +
	`if(m&&r){m.replaceChildren.apply(m,Array.prototype.slice.call(r.childNodes));m.removeAttribute("data-ssr-mount");r.remove();}` +
	`window.__ssr_hydration[id]={data:data,types:types,locations:locations};` +
	`};`

// Index is an index.html split at the points where the page template inserts
// content.
type Index struct {
	// HeadBeforeTitle runs up to and including "<title>".
	HeadBeforeTitle string
	// Title is the text of the index's title element.
	Title string
	// HeadAfterTitle runs from "</title>" up to "</head>".
	HeadAfterTitle string
	// CloseHead runs from "</head>" up to and including the main element's
	// start tag.
	CloseHead string
	// PostMain runs from the main element's end tag up to "</body>".
	PostMain string
	// AfterClosingBodyTag is everything from "</body>" on.
	AfterClosingBodyTag string
}

const mainStart = `<div id="main">`

// ParseIndex splits an index.html document. The document must contain a
// head, a body and an empty <div id="main"></div> inside the body. A missing
// title element is added.
func ParseIndex(html string) (Index, error) {
	headEnd := strings.Index(html, "</head>")
	if headEnd < 0 {
		return Index{}, indexError("missing </head>")
	}
	head, rest := html[:headEnd], html[headEnd:]

	var idx Index
	if open := strings.Index(head, "<title>"); open >= 0 {
		afterOpen := open + len("<title>")
		end := strings.Index(head[afterOpen:], "</title>")
		if end < 0 {
			return Index{}, indexError("unterminated <title>")
		}
		idx.HeadBeforeTitle = head[:afterOpen]
		idx.Title = head[afterOpen : afterOpen+end]
		idx.HeadAfterTitle = head[afterOpen+end:]
	} else {
		idx.HeadBeforeTitle = head + "<title>"
		idx.HeadAfterTitle = "</title>"
	}

	main := strings.Index(rest, mainStart)
	if main < 0 {
		return Index{}, indexError(`missing <div id="main">`)
	}
	idx.CloseHead = rest[:main+len(mainStart)]
	rest = rest[main+len(mainStart):]
	if !strings.HasPrefix(rest, "</div>") {
		return Index{}, indexError(`<div id="main"> must be empty`)
	}

	bodyEnd := strings.LastIndex(rest, "</body>")
	if bodyEnd < 0 {
		return Index{}, indexError("missing </body>")
	}
	idx.PostMain = rest[:bodyEnd]
	idx.AfterClosingBodyTag = rest[bodyEnd:]
	return idx, nil
}

func indexError(detail string) error {
	return errors.New("E153").WithDetail(detail)
}

const defaultIndexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Vango</title>
</head>
<body>
<div id="main"></div>
</body>
</html>
`

// DefaultIndex returns the built-in page shell.
func DefaultIndex() Index {
	idx, err := ParseIndex(defaultIndexHTML)
	if err != nil {
		panic(err)
	}
	return idx
}

// Head is the per-request document head content.
type Head interface {
	// Title returns the title set by the page, or "" to keep the index title.
	Title() string

	// RenderHead writes the head elements the page added.
	RenderHead(w io.Writer) error

	// StartStreaming is called once the head has been written. Content added
	// afterwards cannot reach the client.
	StartStreaming()
}

// PageTemplate wraps rendered pages in the index shell. It holds no state
// and is safe for concurrent use.
type PageTemplate struct {
	Index Index

	// Debug adds the type and location arrays to hydration scripts.
	Debug bool
}

// RenderHead writes everything up to and including the main element's start
// tag. head may be nil.
func (t PageTemplate) RenderHead(w io.Writer, head Head) error {
	title := t.Index.Title
	if head != nil {
		if custom := head.Title(); custom != "" {
			title = escapeHTML(custom)
		}
	}

	for _, s := range []string{t.Index.HeadBeforeTitle, title, t.Index.HeadAfterTitle} {
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	if head != nil {
		if err := head.RenderHead(w); err != nil {
			return err
		}
		head.StartStreaming()
	}
	return t.renderBeforeBody(w)
}

func (t PageTemplate) renderBeforeBody(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "<script>%s</script>", StreamingBootstrapJS); err != nil {
		return err
	}
	_, err := io.WriteString(w, t.Index.CloseHead)
	return err
}

// RenderAfterMain writes the root hydration payload and the index content
// between the main element and the body end tag. The payload is written even
// when every entry is still unresolved: it tells the client which server
// futures are already running on the server.
func (t PageTemplate) RenderAfterMain(w io.Writer, data hydration.Serialized) error {
	if _, err := fmt.Fprintf(w, `<script>window.__ssr_hydration_data="%s";`, data.Data); err != nil {
		return err
	}
	if t.Debug && data.HasDebug() {
		if _, err := fmt.Fprintf(w, `window.__ssr_hydration_debug_types=%s;window.__ssr_hydration_debug_locations=%s;`,
			data.DebugTypes, data.DebugLocations); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "</script>"); err != nil {
		return err
	}
	_, err := io.WriteString(w, t.Index.PostMain)
	return err
}

// RenderAfterBody writes the end of the document.
func (t PageTemplate) RenderAfterBody(w io.Writer) error {
	_, err := io.WriteString(w, t.Index.AfterClosingBodyTag)
	return err
}
