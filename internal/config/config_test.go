package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-dev/ssr/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func codeOf(err error) string {
	if ve := errors.FromError(err, ""); ve != nil {
		return ve.Code
	}
	return ""
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, DefaultAddr)
	}
	if !cfg.Streaming {
		t.Error("Streaming should default to true")
	}
	if cfg.PoolSize != DefaultPoolSize {
		t.Errorf("PoolSize = %d, want %d", cfg.PoolSize, DefaultPoolSize)
	}
	if cfg.Incremental.Store.Kind != StoreMemory {
		t.Errorf("Store.Kind = %q, want memory", cfg.Incremental.Store.Kind)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(dir); codeOf(err) != "E151" {
		t.Errorf("missing config: err = %v, want E151", err)
	}

	writeFile(t, dir, JSONFileName, `{
  "addr": ":8080",
  "indexFile": "web/index.html",
  "streaming": false,
  "basePath": "/app/",
  "incremental": {
    "enabled": true,
    "invalidateAfter": "120s",
    "store": { "kind": "file" }
  }
}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Streaming {
		t.Error("Streaming should be false")
	}
	if cfg.BasePath != "/app" {
		t.Errorf("BasePath = %q, want /app", cfg.BasePath)
	}
	if cfg.Incremental.InvalidateAfter.Std() != 120*time.Second {
		t.Errorf("InvalidateAfter = %v", cfg.Incremental.InvalidateAfter)
	}
	if cfg.Incremental.MemoryLimit != DefaultMemoryLimit {
		t.Errorf("MemoryLimit = %d, want the default", cfg.Incremental.MemoryLimit)
	}
	if cfg.IndexPath() != filepath.Join(dir, "web", "index.html") {
		t.Errorf("IndexPath = %q", cfg.IndexPath())
	}
	if cfg.CacheDir() != filepath.Join(dir, DefaultCacheDir) {
		t.Errorf("CacheDir = %q", cfg.CacheDir())
	}
	if cfg.Dir() != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir(), dir)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, YAMLFileName, `
addr: ":9000"
workers: 8
incremental:
  enabled: true
  invalidateAfter: 90
  store:
    kind: redis
    redis:
      addr: localhost:6379
      db: 2
metrics:
  enabled: false
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d", cfg.Workers)
	}
	if cfg.Incremental.InvalidateAfter.Std() != 90*time.Second {
		t.Errorf("InvalidateAfter = %v, want 90s", cfg.Incremental.InvalidateAfter)
	}
	redis := cfg.Incremental.Store.Redis
	if redis.Addr != "localhost:6379" || redis.DB != 2 || redis.Prefix != "vango:isr:" {
		t.Errorf("Redis = %+v", redis)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics should be disabled")
	}
	if cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics.Path = %q", cfg.Metrics.Path)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		code    string
	}{
		{"bad json", JSONFileName, `{"addr": `, "E150"},
		{"bad yaml", YAMLFileName, "addr: [", "E150"},
		{"bad duration", JSONFileName, `{"incremental": {"invalidateAfter": "soon"}}`, "E150"},
		{"negative workers", JSONFileName, `{"workers": -1}`, "E152"},
		{"relative base path", JSONFileName, `{"basePath": "app"}`, "E152"},
		{"unknown store", JSONFileName, `{"incremental": {"store": {"kind": "tape"}}}`, "E152"},
		{"s3 without bucket", JSONFileName, `{"incremental": {"store": {"kind": "s3"}}}`, "E152"},
		{"badger without path", JSONFileName, `{"incremental": {"store": {"kind": "badger"}}}`, "E152"},
		{"redis without addr", JSONFileName, `{"incremental": {"store": {"kind": "redis"}}}`, "E152"},
		{"memory store without memory", YAMLFileName, "incremental:\n  enabled: true\n  memoryLimit: 0\n", "E152"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			_, err := LoadFile(path)
			if codeOf(err) != tt.code {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{JSONFileName, YAMLFileName} {
		t.Run(name, func(t *testing.T) {
			cfg := New()
			cfg.BasePath = "/docs"
			cfg.Incremental.Enabled = true
			cfg.Incremental.InvalidateAfter = Duration(5 * time.Minute)
			cfg.Incremental.Store = StoreConfig{Kind: StoreBadger, Badger: BadgerStoreConfig{Path: "db"}}

			path := filepath.Join(t.TempDir(), name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo: %v", err)
			}
			if cfg.Path() != path {
				t.Errorf("Path = %q", cfg.Path())
			}

			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if loaded.BasePath != "/docs" || !loaded.Incremental.Enabled {
				t.Errorf("loaded = %+v", loaded)
			}
			if loaded.Incremental.InvalidateAfter.Std() != 5*time.Minute {
				t.Errorf("InvalidateAfter = %v", loaded.Incremental.InvalidateAfter)
			}
			if loaded.BadgerPath() != filepath.Join(filepath.Dir(path), "db") {
				t.Errorf("BadgerPath = %q", loaded.BadgerPath())
			}
		})
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, YAMLFileName, "addr: \":1\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	found, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot: %v", err)
	}
	if found != root {
		t.Errorf("found %q, want %q", found, root)
	}
	if !Exists(root) || Exists(nested) {
		t.Error("Exists reports the wrong directories")
	}
}
