package manager

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Driver != DriverSQLServer {
		t.Fatalf("expected default driver %q, got %q", DriverSQLServer, cfg.Driver)
	}
	if cfg.PingTimeout() != 5*time.Second {
		t.Fatalf("expected 5s ping timeout, got %v", cfg.PingTimeout())
	}
	if !cfg.Cache.Enabled {
		t.Fatalf("expected caching enabled by default")
	}
	if cfg.CacheTTL() != 5*time.Minute {
		t.Fatalf("expected 5m cache ttl, got %v", cfg.CacheTTL())
	}
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "empty driver",
			mutate: func(c *Config) { c.Driver = "  " },
			want:   "driver is required",
		},
		{
			name:   "non positive ping timeout",
			mutate: func(c *Config) { c.PingTimeoutMillis = 0 },
			want:   "ping_timeout_ms",
		},
		{
			name: "cache enabled without ttl",
			mutate: func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.TTLMillis = 0
			},
			want: "ttl_ms",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCfgxConfigProviderOverridesDefaults(t *testing.T) {
	provider := StaticConfigProvider(map[string]any{
		"driver":          DriverSQLite,
		"ping_timeout_ms": 1500,
		"cache": map[string]any{
			"enabled": false,
		},
	})

	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Driver != DriverSQLite {
		t.Fatalf("expected loaded driver %q, got %q", DriverSQLite, cfg.Driver)
	}
	if cfg.PingTimeoutMillis != 1500 {
		t.Fatalf("expected ping timeout 1500, got %d", cfg.PingTimeoutMillis)
	}
	if cfg.Cache.Enabled {
		t.Fatalf("expected cache disabled by loaded config")
	}
}

func TestNilCfgxConfigProviderReturnsDefaults(t *testing.T) {
	var provider *CfgxConfigProvider
	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("expected defaults back, got %#v", cfg)
	}
}

func TestGoOptionsResolverPrecedence(t *testing.T) {
	defaults := DefaultConfig()
	loaded := Config{
		Driver:            DriverSQLite,
		PingTimeoutMillis: 2000,
	}
	runtime := Config{
		PingTimeoutMillis: 250,
	}

	resolved, err := GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if resolved.Driver != DriverSQLite {
		t.Fatalf("expected loaded driver to win over defaults, got %q", resolved.Driver)
	}
	if resolved.PingTimeoutMillis != 250 {
		t.Fatalf("expected runtime ping timeout to win, got %d", resolved.PingTimeoutMillis)
	}
	if !resolved.Cache.Enabled || resolved.Cache.TTLMillis != defaults.Cache.TTLMillis {
		t.Fatalf("expected default cache settings preserved, got %#v", resolved.Cache)
	}
}

func TestGoOptionsResolverRejectsInvalidMerge(t *testing.T) {
	runtime := Config{Driver: "   "}
	loaded := Config{Driver: "  "}
	defaults := Config{Driver: " ", PingTimeoutMillis: 1000}
	if _, err := (GoOptionsResolver{}).Resolve(defaults, loaded, runtime); err == nil {
		t.Fatalf("expected invalid merged config to be rejected")
	}
}
