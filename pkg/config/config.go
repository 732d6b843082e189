// Package config loads the figura application configuration.
//
// The file is TOML. ${VAR} references are expanded from the environment
// before decoding, so secrets such as a Redis password can live in a .env
// file loaded at startup:
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://:${REDIS_PASSWORD}@localhost:6379/0"
//
// Missing sections keep their defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/drafts"
	"github.com/matzehuels/figura/pkg/errors"
	"github.com/matzehuels/figura/pkg/export"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Draft stores.
const (
	StoreHTTP  = "http"
	StoreRedis = "redis"
	StoreMongo = "mongo"
	StoreNone  = "none"
)

// Generate modes, mirrored from the generate package to avoid an import cycle.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
	ModeAuto   = "auto"
)

// Duration decodes TOML strings like "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Server configures `figura serve`.
type Server struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
	MaxBodyBytes int64    `toml:"max_body_bytes"`
}

// Cache selects the document and artifact cache.
type Cache struct {
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"` // file backend; empty uses the user cache dir
	RedisURL string `toml:"redis_url"`
	Prefix   string `toml:"prefix"`
}

// Sync configures where drafts are pushed.
type Sync struct {
	Store      string   `toml:"store"`
	URL        string   `toml:"url"` // HTTP endpoint, Redis or Mongo URI
	Database   string   `toml:"database"`
	Collection string   `toml:"collection"`
	Timeout    Duration `toml:"timeout"`
	LocalDir   string   `toml:"local_dir"`
	Capacity   int      `toml:"capacity"`
}

// Generate configures the remote document generator.
type Generate struct {
	Mode     string   `toml:"mode"`
	URL      string   `toml:"url"`
	Timeout  Duration `toml:"timeout"`
	Attempts int      `toml:"attempts"`
}

// Render holds presentation defaults for CLI and API requests.
type Render struct {
	diagram.RenderConfig
	Scale      float64 `toml:"scale"`
	PixelRatio float64 `toml:"pixel_ratio"`
	Quality    int     `toml:"quality"`
}

// Config is the root of figura.toml.
type Config struct {
	ToolsFile string `toml:"tools_file"` // TOML or YAML tool registry; empty uses the built-in one

	Server   Server   `toml:"server"`
	Cache    Cache    `toml:"cache"`
	Sync     Sync     `toml:"sync"`
	Generate Generate `toml:"generate"`
	Render   Render   `toml:"render"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: Server{
			Addr:         ":8080",
			ReadTimeout:  Duration{30 * time.Second},
			WriteTimeout: Duration{60 * time.Second},
			MaxBodyBytes: 1 << 20,
		},
		Cache: Cache{Backend: CacheFile, Prefix: "figura:"},
		Sync: Sync{
			Store:      StoreNone,
			Database:   "figura",
			Collection: "drafts",
			Timeout:    Duration{10 * time.Second},
			Capacity:   drafts.DefaultCapacity,
		},
		Generate: Generate{
			Mode:     ModeLocal,
			Timeout:  Duration{30 * time.Second},
			Attempts: 3,
		},
		Render: Render{
			RenderConfig: diagram.DefaultRenderConfig(),
			Scale:        export.DefaultScale,
			PixelRatio:   1,
			Quality:      export.DefaultQuality,
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	return Parse(data)
}

// Parse decodes TOML config data over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(os.ExpandEnv(string(data)), &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	cfg.Render.RenderConfig = cfg.Render.RenderConfig.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	err := validation.Errors{
		"server":   c.Server.validate(),
		"cache":    c.Cache.validate(),
		"sync":     c.Sync.validate(),
		"generate": c.Generate.validate(),
		"render":   c.Render.validate(),
	}.Filter()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid config")
	}
	return nil
}

func (s Server) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.MaxBodyBytes, validation.Min(int64(1))),
	)
}

func (c Cache) validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.In(CacheFile, CacheRedis, CacheNone)),
		validation.Field(&c.RedisURL, validation.When(c.Backend == CacheRedis, validation.Required)),
	)
}

func (s Sync) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Store, validation.In(StoreHTTP, StoreRedis, StoreMongo, StoreNone)),
		validation.Field(&s.URL,
			validation.When(s.Store != StoreNone && s.Store != "", validation.Required),
			validation.When(s.Store == StoreHTTP, is.URL),
		),
		validation.Field(&s.Capacity, validation.Min(0), validation.Max(10000)),
	)
}

func (g Generate) validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Mode, validation.In(ModeLocal, ModeRemote, ModeAuto)),
		validation.Field(&g.URL,
			validation.When(g.Mode == ModeRemote, validation.Required),
			is.URL,
		),
		validation.Field(&g.Attempts, validation.Min(0), validation.Max(10)),
	)
}

func (r Render) validate() error {
	if err := r.RenderConfig.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Scale, validation.Min(export.MinScale), validation.Max(export.MaxScale)),
		validation.Field(&r.PixelRatio, validation.Min(0.5), validation.Max(4.0)),
		validation.Field(&r.Quality, validation.Min(1), validation.Max(100)),
	)
}

// ExportOptions returns export options seeded from the render defaults.
func (r Render) ExportOptions(format export.Format) export.Options {
	return export.Options{
		Format:     format,
		Scale:      r.Scale,
		PixelRatio: r.PixelRatio,
		Quality:    r.Quality,
	}
}

// String renders the config as TOML, for `figura config show` style output.
func (c Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}
