package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/ssr/internal/errors"
)

const (
	// JSONFileName is the name of the JSON configuration file.
	JSONFileName = "ssr.json"

	// YAMLFileName is the name of the YAML configuration file.
	YAMLFileName = "ssr.yaml"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":3000"

	// DefaultPoolSize is the default number of pooled renderers.
	DefaultPoolSize = 4

	// DefaultMemoryLimit bounds the in-memory cache tier (32 MiB).
	DefaultMemoryLimit = 32 << 20

	// DefaultMetricsPath is where Prometheus metrics are served.
	DefaultMetricsPath = "/metrics"

	// DefaultCacheDir is the directory of the file store.
	DefaultCacheDir = ".ssr-cache"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreBadger = "badger"
	StoreRedis  = "redis"
	StoreS3     = "s3"
)

// ServeConfig is the complete server configuration.
type ServeConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// IndexFile is the index.html shell. Empty uses the built-in shell.
	IndexFile string `json:"indexFile,omitempty" yaml:"indexFile,omitempty"`

	// Streaming streams suspense boundaries as they resolve.
	Streaming bool `json:"streaming" yaml:"streaming"`

	// BasePath is the URL prefix the app is mounted under.
	BasePath string `json:"basePath,omitempty" yaml:"basePath,omitempty"`

	// PoolSize is the number of renderers created on start.
	PoolSize int `json:"poolSize,omitempty" yaml:"poolSize,omitempty"`

	// Workers bounds concurrent render sessions. Zero uses one per CPU.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// Debug adds hydration type and location arrays to the output and
	// error details to error responses.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`

	// Incremental configures the page cache.
	Incremental IncrementalConfig `json:"incremental" yaml:"incremental"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// IncrementalConfig configures incremental rendering.
type IncrementalConfig struct {
	// Enabled turns the cache on.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// InvalidateAfter is how long a cached page stays fresh (e.g. "120s").
	// Zero keeps pages until the cache is cleared.
	InvalidateAfter Duration `json:"invalidateAfter,omitempty" yaml:"invalidateAfter,omitempty"`

	// MemoryLimit bounds the in-memory tier in bytes. Zero disables it.
	MemoryLimit int64 `json:"memoryLimit,omitempty" yaml:"memoryLimit,omitempty"`

	// ClearCache empties the store on start.
	ClearCache bool `json:"clearCache,omitempty" yaml:"clearCache,omitempty"`

	// Store selects where pages are persisted.
	Store StoreConfig `json:"store" yaml:"store"`
}

// StoreConfig selects and configures the persistent cache store.
type StoreConfig struct {
	// Kind is one of memory, file, badger, redis or s3.
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	File   FileStoreConfig   `json:"file" yaml:"file"`
	Badger BadgerStoreConfig `json:"badger" yaml:"badger"`
	Redis  RedisStoreConfig  `json:"redis" yaml:"redis"`
	S3     S3StoreConfig     `json:"s3" yaml:"s3"`
}

// FileStoreConfig configures the file store.
type FileStoreConfig struct {
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// BadgerStoreConfig configures the BadgerDB store.
type BadgerStoreConfig struct {
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	InMemory bool   `json:"inMemory,omitempty" yaml:"inMemory,omitempty"`
}

// RedisStoreConfig configures the Redis store.
type RedisStoreConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// S3StoreConfig configures the S3 store. Credentials come from the
// standard AWS environment variables.
type S3StoreConfig struct {
	Bucket       string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix       string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region       string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint     string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	UsePathStyle bool   `json:"usePathStyle,omitempty" yaml:"usePathStyle,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Duration is a time.Duration written as a string ("120s") in
// configuration files. Plain numbers are read as seconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func parseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Duration(time.Duration(n) * time.Second), nil
	}
	v, err := time.ParseDuration(s)
	return Duration(v), err
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int64
		if nerr := json.Unmarshal(data, &n); nerr != nil {
			return err
		}
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	v, err := parseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// New creates a ServeConfig with default values.
func New() *ServeConfig {
	return &ServeConfig{
		Addr:      DefaultAddr,
		Streaming: true,
		PoolSize:  DefaultPoolSize,
		Incremental: IncrementalConfig{
			MemoryLimit: DefaultMemoryLimit,
			Store:       StoreConfig{Kind: StoreMemory},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}

// Load reads configuration from dir, trying ssr.json and then ssr.yaml.
func Load(dir string) (*ServeConfig, error) {
	for _, name := range []string{JSONFileName, YAMLFileName, "ssr.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E151").
		WithDetail("No " + JSONFileName + " or " + YAMLFileName + " found in " + dir).
		WithSuggestion("Run 'vango-ssr init' to write a default configuration")
}

// LoadFile reads configuration from path. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON.
func LoadFile(path string) (*ServeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E151").WithDetail(path + " does not exist")
		}
		return nil, errors.New("E150").Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("E150").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// SaveTo writes the configuration to path, as YAML or JSON depending on
// the extension.
func (c *ServeConfig) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E150").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E150").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *ServeConfig) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *ServeConfig) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *ServeConfig) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	c.BasePath = strings.TrimSuffix(c.BasePath, "/")

	store := &c.Incremental.Store
	if store.Kind == "" {
		store.Kind = StoreMemory
	}
	if store.Kind == StoreFile && store.File.Dir == "" {
		store.File.Dir = DefaultCacheDir
	}
	if store.Kind == StoreRedis && store.Redis.Prefix == "" {
		store.Redis.Prefix = "vango:isr:"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks if the configuration is valid.
func (c *ServeConfig) Validate() error {
	invalid := func(detail string) *errors.VangoError {
		return errors.New("E152").WithDetail(detail)
	}

	if c.PoolSize < 0 {
		return invalid("poolSize must not be negative")
	}
	if c.Workers < 0 {
		return invalid("workers must not be negative")
	}
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		return invalid("basePath must start with /")
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return invalid("metrics.path must start with /")
	}

	inc := c.Incremental
	if inc.InvalidateAfter < 0 {
		return invalid("incremental.invalidateAfter must not be negative")
	}
	if inc.MemoryLimit < 0 {
		return invalid("incremental.memoryLimit must not be negative")
	}

	store := inc.Store
	if inc.Enabled && store.Kind == StoreMemory && inc.MemoryLimit == 0 {
		return invalid("incremental caching with the memory store needs a memoryLimit above zero").
			WithSuggestion("Set incremental.memoryLimit, or choose a persistent store kind")
	}
	switch store.Kind {
	case StoreMemory, StoreFile:
	case StoreBadger:
		if store.Badger.Path == "" && !store.Badger.InMemory {
			return invalid("incremental.store.badger needs a path or inMemory")
		}
	case StoreRedis:
		if store.Redis.Addr == "" {
			return invalid("incremental.store.redis.addr is required")
		}
	case StoreS3:
		if store.S3.Bucket == "" {
			return invalid("incremental.store.s3.bucket is required")
		}
	default:
		return invalid("unknown incremental.store.kind " + strconv.Quote(store.Kind)).
			WithSuggestion("Use one of memory, file, badger, redis, s3")
	}
	return nil
}

// IndexPath returns the absolute path of the index.html shell, or "" for
// the built-in shell.
func (c *ServeConfig) IndexPath() string {
	return c.resolve(c.IndexFile)
}

// CacheDir returns the absolute path of the file store directory.
func (c *ServeConfig) CacheDir() string {
	return c.resolve(c.Incremental.Store.File.Dir)
}

// BadgerPath returns the absolute path of the BadgerDB directory.
func (c *ServeConfig) BadgerPath() string {
	return c.resolve(c.Incremental.Store.Badger.Path)
}

func (c *ServeConfig) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{JSONFileName, YAMLFileName, "ssr.yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing the configuration, or an error if not
// found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E151").
				WithDetail("No configuration found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'vango-ssr init' to write a default configuration")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or the closest parent that has one. Without any, it returns the defaults.
func LoadFromWorkingDir() (*ServeConfig, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		cfg := New()
		cfg.applyDefaults()
		return cfg, nil
	}

	return Load(root)
}
