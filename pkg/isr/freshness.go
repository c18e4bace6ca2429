package isr

import (
	"net/http"
	"strconv"
	"time"
)

// RenderFreshness describes how old a rendered page is and how long it may
// be cached.
type RenderFreshness struct {
	age       time.Duration
	maxAge    time.Duration
	hasMaxAge bool
	timestamp time.Time
}

// Now returns the freshness of a page rendered just now. A maxAge of zero
// means the page never expires.
func Now(maxAge time.Duration) RenderFreshness {
	return Created(time.Now(), maxAge)
}

// Created returns the freshness of a page rendered at timestamp.
func Created(timestamp time.Time, maxAge time.Duration) RenderFreshness {
	age := time.Since(timestamp)
	if age < 0 {
		age = 0
	}
	return RenderFreshness{
		age:       age,
		maxAge:    maxAge,
		hasMaxAge: maxAge > 0,
		timestamp: timestamp,
	}
}

// Age returns how long ago the page was rendered.
func (f RenderFreshness) Age() time.Duration { return f.age }

// MaxAge returns how long the page may be cached, and false when it never
// expires.
func (f RenderFreshness) MaxAge() (time.Duration, bool) { return f.maxAge, f.hasMaxAge }

// Timestamp returns when the page was rendered.
func (f RenderFreshness) Timestamp() time.Time { return f.timestamp }

// Expired reports whether the page is older than its max age.
func (f RenderFreshness) Expired() bool {
	return f.hasMaxAge && f.age > f.maxAge
}

// WriteHeaders sets the Age header and, when the page expires, a
// Cache-Control max-age for the time it has left.
func (f RenderFreshness) WriteHeaders(h http.Header) {
	h.Set("Age", strconv.FormatInt(int64(f.age/time.Second), 10))
	if f.hasMaxAge {
		left := f.maxAge - f.age
		if left < 0 {
			left = 0
		}
		h.Set("Cache-Control", "max-age="+strconv.FormatInt(int64(left/time.Second), 10))
	}
}
