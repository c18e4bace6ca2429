// Package hydration accumulates the server state a client needs to resume a
// streamed page without re-running completed asynchronous work.
//
// A Context is an ordered list of entries. Each entry is reserved when the
// value's owner first runs (so the order is the order of the component tree,
// not the order asynchronous work finished) and filled in later. Contexts
// from nested scopes are merged with Extend, which keeps that order.
//
// The serialized form sent to the client is a base64 JSON array. Debug
// builds add two companion JSON arrays with the type name and source location
// of every entry; the three values are emitted together or not at all.
package hydration
