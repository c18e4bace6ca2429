package vdom

import "strings"

func attr(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Global attributes

func ID(id string) Attr                { return attr("id", id) }
func Class(classes ...string) Attr     { return attr("class", strings.Join(classes, " ")) }
func StyleAttr(style string) Attr      { return attr("style", style) }
func Data(key, value string) Attr      { return attr("data-"+key, value) }
func Href(href string) Attr            { return attr("href", href) }
func Hidden() Attr                     { return attr("hidden", true) }
func Disabled(disabled bool) Attr      { return attr("disabled", disabled) }
func Type(t string) Attr               { return attr("type", t) }
func Name(name string) Attr            { return attr("name", name) }
func Value(value string) Attr          { return attr("value", value) }
func AriaBusy(busy bool) Attr          { return attr("aria-busy", busy) }
func AriaLive(mode string) Attr        { return attr("aria-live", mode) }
func Attribute(key string, v any) Attr { return attr(key, v) }

// OnClick attaches a click handler. Handlers are never rendered as
// attributes; they make the element interactive so it receives a HID.
func OnClick(handler any) EventHandler {
	return EventHandler{Event: "onclick", Handler: handler}
}
