package router

import (
	"strings"
	"sync"
)

// MemoryHistory is an in-memory navigation history. On the server it holds
// the path being rendered.
type MemoryHistory struct {
	mu       sync.Mutex
	basePath string
	entries  []string
	index    int
}

// NewMemoryHistory creates a history positioned at path. When the app is
// served under basePath, that prefix is stripped from path first.
func NewMemoryHistory(path, basePath string) *MemoryHistory {
	h := &MemoryHistory{basePath: normalizeBase(basePath)}
	h.entries = []string{h.strip(path)}
	return h
}

func normalizeBase(base string) string {
	base = strings.Trim(base, "/")
	if base == "" {
		return ""
	}
	return "/" + base
}

func (h *MemoryHistory) strip(path string) string {
	if h.basePath != "" {
		if rest, ok := strings.CutPrefix(path, h.basePath); ok && (rest == "" || rest[0] == '/' || rest[0] == '?') {
			path = rest
		}
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// BasePath returns the normalized base path ("" or "/prefix").
func (h *MemoryHistory) BasePath() string {
	return h.basePath
}

// Href returns the URL of an app path, with the base path prefixed.
func (h *MemoryHistory) Href(path string) string {
	return h.basePath + path
}

// Current returns the current app path.
func (h *MemoryHistory) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Push navigates to path, dropping any forward entries.
func (h *MemoryHistory) Push(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], h.strip(path))
	h.index++
}

// Replace replaces the current entry.
func (h *MemoryHistory) Replace(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.index] = h.strip(path)
}

// Back moves one entry back and reports whether it could.
func (h *MemoryHistory) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return false
	}
	h.index--
	return true
}

// Forward moves one entry forward and reports whether it could.
func (h *MemoryHistory) Forward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index+1 >= len(h.entries) {
		return false
	}
	h.index++
	return true
}
