package hydration

import (
	"errors"
	"strings"
	"testing"

	verrors "github.com/vango-dev/ssr/internal/errors"
)

func TestReserveKeepsOrderRegardlessOfInsertOrder(t *testing.T) {
	c := New()
	first := c.Reserve("int", nil)
	second := c.Reserve("string", nil)

	if err := second.Insert("late"); err != nil {
		t.Fatal(err)
	}
	if first.Resolved() {
		t.Fatal("first slot should still be unresolved")
	}
	if err := first.Insert(1); err != nil {
		t.Fatal(err)
	}

	values, err := Decode(c.Serialize(false).Data)
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 2 || string(values[0]) != "1" || string(values[1]) != `"late"` {
		t.Errorf("values = %s", values)
	}
}

func TestUnresolvedSerializesAsNull(t *testing.T) {
	c := New()
	c.Reserve("int", nil)
	values, err := Decode(c.Serialize(false).Data)
	if err != nil {
		t.Fatal(err)
	}
	if string(values[0]) != "null" {
		t.Errorf("value = %s, want null", values[0])
	}
}

func TestInsertErrorOnlyOnce(t *testing.T) {
	c := New()
	c.InsertError(errors.New("first"), &verrors.Location{File: "a.go", Line: 1})
	c.InsertError(errors.New("second"), nil)

	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Type != ErrorType || !strings.Contains(string(entries[0].Value), "first") {
		t.Errorf("entry = %+v", entries[0])
	}
	if entries[0].Location != "a.go:1" {
		t.Errorf("location = %q", entries[0].Location)
	}
}

func TestInsertNilError(t *testing.T) {
	c := New()
	c.InsertError(nil, nil)
	entries := c.Entries()
	if len(entries) != 1 || entries[0].Value != nil {
		t.Errorf("entries = %+v", entries)
	}
}

func TestExtendSharesEntries(t *testing.T) {
	parent := New()
	parent.InsertError(nil, nil)

	child := New()
	slot := child.Reserve("string", nil)
	parent.Extend(child)
	parent.Extend(nil)
	parent.Extend(parent)

	if err := slot.Insert("resolved later"); err != nil {
		t.Fatal(err)
	}
	entries := parent.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if string(entries[1].Value) != `"resolved later"` {
		t.Errorf("extended entry = %s", entries[1].Value)
	}
}

func TestSerializeDebugArrays(t *testing.T) {
	c := New()
	s := c.Reserve("main.User", &verrors.Location{File: "user.go", Line: 12})
	if err := s.Insert(map[string]string{"name": "ada"}); err != nil {
		t.Fatal(err)
	}

	plain := c.Serialize(false)
	if plain.HasDebug() || plain.DebugTypes != "" || plain.DebugLocations != "" {
		t.Errorf("non-debug payload carries debug data: %+v", plain)
	}

	debug := c.Serialize(true)
	if !debug.HasDebug() {
		t.Fatal("debug payload missing arrays")
	}
	if debug.DebugTypes != `["main.User"]` {
		t.Errorf("DebugTypes = %s", debug.DebugTypes)
	}
	if debug.DebugLocations != `["user.go:12"]` {
		t.Errorf("DebugLocations = %s", debug.DebugLocations)
	}
	if debug.Data != plain.Data {
		t.Error("debug flag must not change the data blob")
	}
}

func TestInsertUnsupportedValue(t *testing.T) {
	c := New()
	s := c.Reserve("chan int", nil)
	err := s.Insert(make(chan int))
	if err == nil {
		t.Fatal("expected error for unserializable value")
	}
	if verrors.CategoryOf(err) != verrors.CategoryHydration {
		t.Errorf("category = %q", verrors.CategoryOf(err))
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode("!!!"); err == nil {
		t.Error("expected base64 error")
	}
}
