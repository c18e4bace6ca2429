package render

import (
	"fmt"
	"io"
)

// MetaTag represents a meta element in the document head.
type MetaTag struct {
	Name      string // name attribute
	Content   string // content attribute
	Property  string // property attribute (for OpenGraph)
	HTTPEquiv string // http-equiv attribute
	Charset   string // charset attribute
}

// LinkTag represents a link element in the document head.
type LinkTag struct {
	Rel         string // rel attribute
	Href        string // href attribute
	Type        string // type attribute
	Sizes       string // sizes attribute
	CrossOrigin string // crossorigin attribute
	Media       string // media attribute
}

// ScriptTag represents a script element.
type ScriptTag struct {
	Src    string // src attribute
	Type   string // type attribute
	Defer  bool   // defer attribute
	Async  bool   // async attribute
	Module bool   // type="module"
	Inline string // inline script content
}

// tagWriter writes one start tag, remembering the first error.
type tagWriter struct {
	w   io.Writer
	err error
}

func (t *tagWriter) raw(s string) {
	if t.err == nil {
		_, t.err = io.WriteString(t.w, s)
	}
}

// attr writes name="value" when value is not empty.
func (t *tagWriter) attr(name, value string) {
	if value != "" && t.err == nil {
		_, t.err = fmt.Fprintf(t.w, ` %s="%s"`, name, escapeAttr(value))
	}
}

// flag writes a boolean attribute when on.
func (t *tagWriter) flag(name string, on bool) {
	if on {
		t.raw(" " + name)
	}
}

// Render writes the meta element.
func (m MetaTag) Render(w io.Writer) error {
	t := &tagWriter{w: w}
	t.raw("<meta")
	t.attr("charset", m.Charset)
	t.attr("name", m.Name)
	t.attr("property", m.Property)
	t.attr("http-equiv", m.HTTPEquiv)
	t.attr("content", m.Content)
	t.raw(">")
	return t.err
}

// Render writes the link element.
func (l LinkTag) Render(w io.Writer) error {
	t := &tagWriter{w: w}
	t.raw("<link")
	t.attr("rel", l.Rel)
	t.attr("href", l.Href)
	t.attr("type", l.Type)
	t.attr("sizes", l.Sizes)
	t.attr("crossorigin", l.CrossOrigin)
	t.attr("media", l.Media)
	t.raw(">")
	return t.err
}

// Render writes the script element.
func (s ScriptTag) Render(w io.Writer) error {
	t := &tagWriter{w: w}
	t.raw("<script")
	t.attr("src", s.Src)
	if s.Module {
		t.attr("type", "module")
	} else {
		t.attr("type", s.Type)
	}
	t.flag("defer", s.Defer)
	t.flag("async", s.Async)
	t.raw(">")
	t.raw(s.Inline)
	t.raw("</script>")
	return t.err
}
