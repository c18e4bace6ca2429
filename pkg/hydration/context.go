package hydration

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vango-dev/ssr/internal/errors"
)

// ErrorType is the type name recorded for error entries.
const ErrorType = "error"

// Entry is one serialized value in a hydration context.
type Entry struct {
	// Value is the JSON encoding of the value, or nil while unresolved.
	Value json.RawMessage

	// Type is the Go type name of the value, for diagnostics.
	Type string

	// Location is the source location that reserved the entry.
	Location string
}

// Context accumulates hydration entries in first-reserved order.
// It is safe for concurrent use.
type Context struct {
	mu       sync.Mutex
	entries  []*Entry
	hasError bool
}

// New creates an empty Context.
func New() *Context {
	return &Context{}
}

// Slot is a reserved position in a Context.
type Slot struct {
	ctx   *Context
	entry *Entry
}

// Reserve appends an unresolved entry and returns its slot.
func (c *Context) Reserve(typeName string, loc *errors.Location) *Slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := &Entry{Type: typeName, Location: loc.String()}
	c.entries = append(c.entries, e)
	return &Slot{ctx: c, entry: e}
}

// Insert serializes v into the slot.
func (s *Slot) Insert(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.New("E140").
			WithDetail(fmt.Sprintf("value of type %s at %s", s.entry.Type, s.entry.Location)).
			Wrap(err)
	}
	s.ctx.mu.Lock()
	s.entry.Value = data
	s.ctx.mu.Unlock()
	return nil
}

// Resolved reports whether a value has been inserted.
func (s *Slot) Resolved() bool {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.entry.Value != nil
}

type capturedError struct {
	Error string `json:"error"`
}

// InsertError records the error entry for this context. A nil err records an
// explicit "no error" entry so the client knows nothing needs to be thrown.
// Only the first call has an effect.
func (c *Context) InsertError(err error, loc *errors.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasError {
		return
	}
	c.hasError = true
	e := &Entry{Type: ErrorType, Location: loc.String()}
	if err != nil {
		// A struct of one string field cannot fail to marshal.
		e.Value, _ = json.Marshal(capturedError{Error: err.Error()})
	}
	c.entries = append(c.entries, e)
}

// Extend appends the entries of other, preserving their order.
// Entries are shared, so values inserted into other later remain visible.
func (c *Context) Extend(other *Context) {
	if other == nil || other == c {
		return
	}
	other.mu.Lock()
	entries := make([]*Entry, len(other.entries))
	copy(entries, other.entries)
	other.mu.Unlock()

	c.mu.Lock()
	c.entries = append(c.entries, entries...)
	c.mu.Unlock()
}

// Entries returns a snapshot of the entries.
func (c *Context) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = *e
	}
	return out
}

// Len returns the number of entries.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Serialized is the client-consumable form of a Context.
type Serialized struct {
	// Data is the base64 encoding of a JSON array of entry values.
	Data string

	// DebugTypes is a JSON array of type names. Empty unless debug.
	DebugTypes string

	// DebugLocations is a JSON array of source locations. Empty unless debug.
	DebugLocations string
}

// HasDebug reports whether the debug arrays are present.
func (s Serialized) HasDebug() bool {
	return s.DebugTypes != "" && s.DebugLocations != ""
}

// Serialize encodes the context. With debug set, the type and location
// arrays are included as well.
func (c *Context) Serialize(debug bool) Serialized {
	entries := c.Entries()

	values := make([]json.RawMessage, len(entries))
	types := make([]string, len(entries))
	locations := make([]string, len(entries))
	for i, e := range entries {
		values[i] = e.Value
		if values[i] == nil {
			values[i] = json.RawMessage("null")
		}
		types[i] = e.Type
		locations[i] = e.Location
	}

	// Values are already valid JSON, and string slices always marshal.
	data, _ := json.Marshal(values)
	out := Serialized{Data: base64.StdEncoding.EncodeToString(data)}
	if debug {
		t, _ := json.Marshal(types)
		l, _ := json.Marshal(locations)
		out.DebugTypes = string(t)
		out.DebugLocations = string(l)
	}
	return out
}

// Decode reverses the Data field of a Serialized payload into raw values.
func Decode(data string) ([]json.RawMessage, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode hydration data: %w", err)
	}
	var values []json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode hydration data: %w", err)
	}
	return values, nil
}
