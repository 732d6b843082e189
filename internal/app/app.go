// Package app wires figura's collaborators from a config.Config. The CLI
// and the HTTP server both build their runner, syncer and catalog here so
// they behave the same way.
package app

import (
	"context"
	stderrors "errors"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/figura/pkg/cache"
	"github.com/matzehuels/figura/pkg/config"
	"github.com/matzehuels/figura/pkg/drafts"
	"github.com/matzehuels/figura/pkg/generate"
	"github.com/matzehuels/figura/pkg/registry"
)

// CacheSchema namespaces cache keys. Bump it when the Document layout
// changes so old entries are never read back.
const CacheSchema = "v1:"

// App holds the wired collaborators.
type App struct {
	Config config.Config
	Cache  cache.Cache
	Keyer  cache.Keyer
	Runner *generate.Runner
	Syncer *drafts.Syncer
	Tools  *registry.Catalog
	Logger *log.Logger

	closers []func(context.Context) error
}

// Options adjusts wiring for one invocation.
type Options struct {
	NoCache bool   // disable caching regardless of config
	Mode    string // override generate.mode
}

// New builds an App. Remote stores that cannot be configured are logged
// and skipped; the local paths always work.
func New(ctx context.Context, cfg config.Config, logger *log.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	a := &App{Config: cfg, Logger: logger, Keyer: cache.NewScopedKeyer(cache.NewDefaultKeyer(), CacheSchema)}

	c, err := NewCache(cfg.Cache, opts.NoCache)
	if err != nil {
		return nil, err
	}
	a.Cache = c
	a.closers = append(a.closers, func(context.Context) error { return c.Close() })

	tools := registry.Default()
	if cfg.ToolsFile != "" {
		if tools, err = registry.Load(cfg.ToolsFile); err != nil {
			return nil, err
		}
	}
	a.Tools = tools

	a.Runner = generate.NewRunner(a.Cache, a.Keyer, a.generator(opts), logger)
	a.Runner.Mode = generate.Mode(a.mode(opts))

	syncer, err := a.newSyncer(ctx, cfg.Sync)
	if err != nil {
		return nil, err
	}
	a.Syncer = syncer
	return a, nil
}

// NewCache opens the configured cache backend.
func NewCache(cfg config.Cache, disabled bool) (cache.Cache, error) {
	if disabled {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.OpenRedis(cfg.RedisURL, cfg.Prefix)
	default:
		return cache.NewFileCache(cfg.Dir)
	}
}

func (a *App) mode(opts Options) string {
	if opts.Mode != "" {
		return opts.Mode
	}
	return a.Config.Generate.Mode
}

func (a *App) generator(opts Options) generate.Generator {
	g := a.Config.Generate
	if a.mode(opts) == config.ModeLocal || g.URL == "" {
		return nil
	}
	return generate.NewHTTPGenerator(g.URL, g.Timeout.Duration, g.Attempts)
}

func (a *App) newSyncer(ctx context.Context, cfg config.Sync) (*drafts.Syncer, error) {
	ring, err := drafts.NewRing(cfg.LocalDir, cfg.Capacity)
	if err != nil {
		a.Logger.Warn("local draft store unavailable", "err", err)
		ring = nil
	}
	s := &drafts.Syncer{Ring: ring, Logger: a.Logger}

	switch cfg.Store {
	case config.StoreHTTP:
		s.Remote = drafts.NewHTTPRemote(cfg.URL, cfg.Timeout.Duration)
	case config.StoreRedis:
		r, err := drafts.NewRedisRemote(cfg.URL)
		if err != nil {
			return nil, err
		}
		r.Capacity = cfg.Capacity
		s.Remote = r
	case config.StoreMongo:
		m, err := drafts.NewMongoRemote(ctx, cfg.URL, cfg.Database, cfg.Collection)
		if err != nil {
			a.Logger.Warn("mongo draft store unavailable, drafts stay local", "err", err)
			return s, nil
		}
		s.Remote = m
		a.closers = append(a.closers, m.Close)
	}
	return s, nil
}

// Close releases every opened backend.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return stderrors.Join(errs...)
}
