package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/vango-dev/ssr/internal/config"
	"github.com/vango-dev/ssr/pkg/isr"
	"github.com/vango-dev/ssr/pkg/render"
	"github.com/vango-dev/ssr/pkg/ssr"
)

// engine is a State built from a ServeConfig, with everything it owns.
type engine struct {
	config   *config.ServeConfig
	state    *ssr.State
	render   ssr.RenderConfig
	executor *ssr.BoundedExecutor
	cache    *isr.IncrementalRenderer
	registry *prometheus.Registry
	logger   *slog.Logger

	closers []func() error
}

func loadConfig(path string) (*config.ServeConfig, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.LoadFromWorkingDir()
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newEngine(ctx context.Context, cfg *config.ServeConfig, logger *slog.Logger) (*engine, error) {
	e := &engine{
		config:   cfg,
		executor: ssr.NewExecutor(cfg.Workers),
		registry: prometheus.NewRegistry(),
		logger:   logger,
	}

	rc, err := renderConfig(cfg)
	if err != nil {
		return nil, err
	}
	e.render = rc

	if cfg.Incremental.Enabled {
		store, closeStore, err := openStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if closeStore != nil {
			e.closers = append(e.closers, closeStore)
		}

		cache, err := isr.New(isr.Config{
			InvalidateAfter:  cfg.Incremental.InvalidateAfter.Std(),
			MemoryCacheLimit: cfg.Incremental.MemoryLimit,
			ClearCache:       cfg.Incremental.ClearCache,
			Store:            store,
			Logger:           logger,
		})
		if err != nil {
			e.Close()
			return nil, err
		}
		e.cache = cache
		e.closers = append(e.closers, func() error {
			cache.Close()
			return nil
		})
	}

	var metrics *ssr.Metrics
	if cfg.Metrics.Enabled {
		e.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = ssr.NewMetrics(ssr.WithRegistry(e.registry))
	}

	e.state = ssr.NewState(ssr.Options{
		PoolSize:    cfg.PoolSize,
		Incremental: e.cache,
		Executor:    e.executor,
		Metrics:     metrics,
		Logger:      logger,
	})
	return e, nil
}

// Close releases the cache and its store. Sessions still running keep
// their references; call it after the executor has drained.
func (e *engine) Close() error {
	var first error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	e.closers = nil
	return first
}

func renderConfig(cfg *config.ServeConfig) (ssr.RenderConfig, error) {
	index := render.DefaultIndex()
	if path := cfg.IndexPath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return ssr.RenderConfig{}, fmt.Errorf("read index file: %w", err)
		}
		index, err = render.ParseIndex(string(data))
		if err != nil {
			return ssr.RenderConfig{}, err
		}
	}
	return ssr.RenderConfig{
		Template:  render.PageTemplate{Index: index, Debug: cfg.Debug},
		Streaming: cfg.Streaming,
		BasePath:  cfg.BasePath,
	}, nil
}

// openStore creates the persistent store selected by the configuration.
// The returned func, if any, closes it.
func openStore(ctx context.Context, cfg *config.ServeConfig, logger *slog.Logger) (isr.Store, func() error, error) {
	sc := cfg.Incremental.Store
	ttl := cfg.Incremental.InvalidateAfter.Std()

	switch sc.Kind {
	case config.StoreMemory:
		return nil, nil, nil

	case config.StoreFile:
		return isr.NewFileStore(cfg.CacheDir()), nil, nil

	case config.StoreBadger:
		store, err := isr.OpenBadgerStore(isr.BadgerConfig{
			Path:     cfg.BadgerPath(),
			InMemory: sc.Badger.InMemory,
			TTL:      ttl,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", sc.Redis.Addr, err)
		}
		store := isr.NewRedisStore(client, isr.WithRedisPrefix(sc.Redis.Prefix), isr.WithRedisTTL(ttl))
		return store, client.Close, nil

	case config.StoreS3:
		var loadOpts []func(*awsconfig.LoadOptions) error
		if sc.S3.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(sc.S3.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = sc.S3.UsePathStyle
			if sc.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(sc.S3.Endpoint)
			}
		})
		return isr.NewS3Store(client, sc.S3.Bucket, sc.S3.Prefix), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", sc.Kind)
	}
}
