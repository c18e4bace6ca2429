package isr

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by a Store for a route it holds no entry for.
var ErrNotFound = errors.New("isr: entry not found")

// Entry is one cached page.
type Entry struct {
	Route     string
	HTML      []byte
	Timestamp time.Time
}

// Store persists cache entries. Implementations must be safe for concurrent
// use. Two concurrent Puts for the same route may land in either order.
type Store interface {
	Get(ctx context.Context, route string) (*Entry, error)
	Put(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, route string) error
	Clear(ctx context.Context) error
}

// encodeEntry lays out an entry as an 8-byte big-endian Unix nanosecond
// timestamp followed by the HTML.
func encodeEntry(e *Entry) []byte {
	buf := make([]byte, 8+len(e.HTML))
	binary.BigEndian.PutUint64(buf, uint64(e.Timestamp.UnixNano()))
	copy(buf[8:], e.HTML)
	return buf
}

func decodeEntry(route string, data []byte) (*Entry, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("isr: entry for %s is truncated (%d bytes)", route, len(data))
	}
	html := make([]byte, len(data)-8)
	copy(html, data[8:])
	return &Entry{
		Route:     route,
		HTML:      html,
		Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(data))),
	}, nil
}
