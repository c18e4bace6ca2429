// Package vdom defines the node tree that components render to.
//
// A VNode is a tagged variant: its Kind selects which fields are meaningful.
//
//	KindElement   Tag, Props, Children
//	KindText      Text (escaped on output)
//	KindFragment  Children, no wrapper element
//	KindComponent Comp, and Scope once the graph runtime has mounted it
//	KindRaw       Text (written verbatim)
//
// Trees are built with the element helpers:
//
//	Div(Class("card"),
//	    H1(Text("Hello")),
//	    Table(Tbody(Repeat(3, row)...)),
//	)
//
// Subtrees that never change between requests can be wrapped with Static so
// that a pooled renderer caches their markup after the first render.
package vdom
