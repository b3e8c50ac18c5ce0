package manager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

const (
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite3"
)

type CacheConfig struct {
	Enabled   bool `koanf:"enabled" mapstructure:"enabled"`
	TTLMillis int  `koanf:"ttl_ms" mapstructure:"ttl_ms"`
}

type Config struct {
	Driver            string      `koanf:"driver" mapstructure:"driver"`
	PingTimeoutMillis int         `koanf:"ping_timeout_ms" mapstructure:"ping_timeout_ms"`
	Debug             bool        `koanf:"debug" mapstructure:"debug"`
	Cache             CacheConfig `koanf:"cache" mapstructure:"cache"`
}

func DefaultConfig() Config {
	return Config{
		Driver:            DriverSQLServer,
		PingTimeoutMillis: 5000,
		Cache: CacheConfig{
			Enabled:   true,
			TTLMillis: 300000,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Driver) == "" {
		return fmt.Errorf("manager: driver is required")
	}
	if c.PingTimeoutMillis <= 0 {
		return fmt.Errorf("manager: ping_timeout_ms must be positive")
	}
	if c.Cache.Enabled && c.Cache.TTLMillis <= 0 {
		return fmt.Errorf("manager: cache ttl_ms must be positive when the cache is enabled")
	}
	return nil
}

func (c Config) PingTimeout() time.Duration {
	return time.Duration(c.PingTimeoutMillis) * time.Millisecond
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMillis) * time.Millisecond
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// StaticConfigProvider serves a fixed raw configuration map, mostly for
// tests and embedding callers.
func StaticConfigProvider(values map[string]any) ConfigProvider {
	return NewCfgxConfigProvider(staticRawConfigLoader{Values: values})
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults, loaded configuration, and runtime
// overrides with deterministic precedence: defaults < config < runtime.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("manager: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("manager: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Driver) != "" {
		layer["driver"] = cfg.Driver
	}
	if includeZero || cfg.PingTimeoutMillis > 0 {
		layer["ping_timeout_ms"] = cfg.PingTimeoutMillis
	}
	if includeZero || cfg.Debug {
		layer["debug"] = cfg.Debug
	}
	if includeZero || cfg.Cache.Enabled || cfg.Cache.TTLMillis > 0 {
		cacheLayer := map[string]any{
			"enabled": cfg.Cache.Enabled,
		}
		if includeZero || cfg.Cache.TTLMillis > 0 {
			cacheLayer["ttl_ms"] = cfg.Cache.TTLMillis
		}
		layer["cache"] = cacheLayer
	}
	return layer
}
