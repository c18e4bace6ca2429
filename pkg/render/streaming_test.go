package render

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/vango-dev/ssr/pkg/hydration"
)

type recordingSink struct {
	chunks []string
	err    error
}

func (s *recordingSink) SendChunk(html string) error {
	s.chunks = append(s.chunks, html)
	return nil
}

func (s *recordingSink) SendError(err error) { s.err = err }

func TestStreamingRendererSendsHeadWithFirstChunk(t *testing.T) {
	sink := &recordingSink{}
	sr := NewStreamingRenderer("<head>", sink, false)

	sr.Render("frame")
	sr.Render("next")

	if len(sink.chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(sink.chunks))
	}
	if sink.chunks[0] != "<head>frame" || sink.chunks[1] != "next" {
		t.Errorf("chunks = %q", sink.chunks)
	}
}

func TestRenderPlaceholder(t *testing.T) {
	sr := NewStreamingRenderer("", &recordingSink{}, false)

	var b strings.Builder
	m1, err := sr.RenderPlaceholder(&b, func(w io.Writer) error {
		_, err := io.WriteString(w, "Loading...")
		return err
	})
	if err != nil {
		t.Fatalf("RenderPlaceholder: %v", err)
	}
	m2, _ := sr.RenderPlaceholder(&b, func(io.Writer) error { return nil })

	if m1.String() != "M1" || m2.String() != "M2" {
		t.Errorf("mounts = %s, %s", m1, m2)
	}
	want := `<div data-ssr-mount="M1">Loading...</div><div data-ssr-mount="M2"></div>`
	if b.String() != want {
		t.Errorf("got %q", b.String())
	}
	if sr.Mounts() != 2 {
		t.Errorf("Mounts = %d", sr.Mounts())
	}
}

func TestReplacePlaceholder(t *testing.T) {
	hc := hydration.New()
	hc.Reserve("string", nil).Insert("hi")
	data := hc.Serialize(true)

	resolved := func(w io.Writer) error {
		_, err := io.WriteString(w, "<p>done</p>")
		return err
	}

	var b strings.Builder
	sr := NewStreamingRenderer("", &recordingSink{}, false)
	if err := sr.ReplacePlaceholder(Mount{id: 1}, resolved, data, &b); err != nil {
		t.Fatalf("ReplacePlaceholder: %v", err)
	}
	want := `<div id="ssr-resolved-M1" hidden><p>done</p></div><script>window.__ssr_resolve("M1","` + data.Data + `");</script>`
	if b.String() != want {
		t.Errorf("got  %q\nwant %q", b.String(), want)
	}

	b.Reset()
	debug := NewStreamingRenderer("", &recordingSink{}, true)
	debug.ReplacePlaceholder(Mount{id: 1}, resolved, data, &b)
	if !strings.Contains(b.String(), `,["string"],[""]);`) {
		t.Errorf("debug arrays missing: %q", b.String())
	}
}

func TestReplacePlaceholderRenderError(t *testing.T) {
	sr := NewStreamingRenderer("", &recordingSink{}, false)
	boom := errors.New("boom")
	var b strings.Builder
	err := sr.ReplacePlaceholder(Mount{id: 1}, func(io.Writer) error { return boom }, hydration.Serialized{}, &b)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if b.Len() != 0 {
		t.Error("nothing should be written on failure")
	}
}

func TestCloseWithError(t *testing.T) {
	sink := &recordingSink{}
	sr := NewStreamingRenderer("", sink, false)
	sr.Render("first")
	sr.CloseWithError(errors.New("failed"))
	sr.CloseWithError(errors.New("again"))

	if sink.err == nil || sink.err.Error() != "failed" {
		t.Errorf("sink error = %v", sink.err)
	}
	if err := sr.Render("late"); err == nil {
		t.Error("Render after CloseWithError should fail")
	}
	if len(sink.chunks) != 1 {
		t.Errorf("got %d chunks, want 1", len(sink.chunks))
	}
}
