// Package manager wires credential resolution, persistence, and the shard
// stores into a single entry point for shard map management.
package manager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mssqldialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/szrg/elastic-db-tools/credentials"
	"github.com/szrg/elastic-db-tools/migrations"
	"github.com/szrg/elastic-db-tools/shard"
	sqlstore "github.com/szrg/elastic-db-tools/store/sql"
)

type builder struct {
	config         Config
	configSet      bool
	configProvider ConfigProvider
	logger         glog.Logger
	loggerProvider glog.LoggerProvider
	credential     *credentials.Credential
	db             *sql.DB
	cacheService   repositorycache.CacheService
}

// Option customizes manager construction.
type Option func(*builder)

// WithConfig applies runtime configuration overrides on top of the
// defaults and any provider-loaded configuration.
func WithConfig(cfg Config) Option {
	return func(b *builder) {
		b.config = cfg
		b.configSet = true
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *builder) {
		b.configProvider = provider
	}
}

func WithLogger(logger glog.Logger) Option {
	return func(b *builder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider glog.LoggerProvider) Option {
	return func(b *builder) {
		b.loggerProvider = provider
	}
}

// WithCredential supplies an external credential object for connecting to
// the shard map database instead of inline user name and password keys.
func WithCredential(credential *credentials.Credential) Option {
	return func(b *builder) {
		b.credential = credential
	}
}

// WithDB injects an already-open database handle. When set, the manager
// does not open a connection itself and the configured driver only selects
// the SQL dialect.
func WithDB(db *sql.DB) Option {
	return func(b *builder) {
		b.db = db
	}
}

func WithCacheService(service repositorycache.CacheService) Option {
	return func(b *builder) {
		b.cacheService = service
	}
}

// Manager owns the shard map database connection and exposes the shard map
// and shard stores built on top of it.
type Manager struct {
	resolved   credentials.Resolved
	client     *persistence.Client
	mapStore   shard.MapStore
	shardStore shard.Store
	logger     glog.Logger
	config     Config
}

// New resolves the provided connection string, opens (or accepts) a
// database handle, runs no migrations, and builds the shard stores.
// Call Migrate before first use on a fresh database.
func New(ctx context.Context, connectionString string, opts ...Option) (*Manager, error) {
	b := builder{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&b)
	}

	cfg, err := resolveConfig(ctx, b)
	if err != nil {
		return nil, err
	}

	provider, logger := glog.Resolve("shardmap", b.loggerProvider, b.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("shardmap"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	resolved, err := credentials.Resolve(connectionString, b.credential)
	if err != nil {
		return nil, err
	}

	dialect, migrationDialect, err := dialectForDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db := b.db
	if db == nil {
		db, err = sql.Open(cfg.Driver, resolved.ManagerConnectionString())
		if err != nil {
			return nil, fmt.Errorf("manager: open database: %w", err)
		}
	}

	client, err := persistence.New(persistenceConfig{
		driver:      cfg.Driver,
		server:      resolved.Location(),
		debug:       cfg.Debug,
		pingTimeout: cfg.PingTimeout(),
	}, db, dialect)
	if err != nil {
		if b.db == nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("manager: persistence client: %w", err)
	}

	if _, err := migrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != migrationDialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(migrationDialect)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("manager: register migrations: %w", err)
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	shardStore := shard.Store(factory.ShardStore())
	if cfg.Cache.Enabled {
		cacheService := b.cacheService
		if cacheService == nil {
			cacheConfig := repositorycache.DefaultConfig()
			cacheConfig.TTL = cfg.CacheTTL()
			cacheService, err = repositorycache.NewCacheService(cacheConfig)
			if err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("manager: cache service: %w", err)
			}
		}
		cached, err := sqlstore.NewCachedShardStore(shardStore, cacheService)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		shardStore = cached
	}

	logger.Info("shard map manager ready",
		"location", resolved.Location(),
		"auth_mode", string(resolved.Mode()),
		"driver", cfg.Driver,
		"cache_enabled", cfg.Cache.Enabled,
	)

	return &Manager{
		resolved:   resolved,
		client:     client,
		mapStore:   factory.MapStore(),
		shardStore: shardStore,
		logger:     logger,
		config:     cfg,
	}, nil
}

func resolveConfig(ctx context.Context, b builder) (Config, error) {
	defaults := DefaultConfig()
	loaded := defaults
	if b.configProvider != nil {
		var err error
		loaded, err = b.configProvider.Load(ctx, defaults)
		if err != nil {
			return Config{}, fmt.Errorf("manager: load config: %w", err)
		}
	}
	runtime := Config{}
	if b.configSet {
		runtime = b.config
	}
	return GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
}

func dialectForDriver(driver string) (schema.Dialect, string, error) {
	switch strings.TrimSpace(driver) {
	case DriverSQLServer:
		return mssqldialect.New(), migrations.DialectSQLServer, nil
	case DriverSQLite:
		return sqlitedialect.New(), migrations.DialectSQLite, nil
	default:
		return nil, "", fmt.Errorf("manager: unsupported driver %q", driver)
	}
}

// ManagerConnectionString returns the connection string used for the shard
// map database itself.
func (m *Manager) ManagerConnectionString() string {
	return m.resolved.ManagerConnectionString()
}

// ShardConnectionString returns the location-free template used when
// connecting to individual shards.
func (m *Manager) ShardConnectionString() string {
	return m.resolved.ShardConnectionString()
}

// ShardConnection renders a connection string for the given shard location.
func (m *Manager) ShardConnection(location shard.Location) (string, error) {
	return m.resolved.ShardConnection(location)
}

func (m *Manager) Credential() *credentials.Credential {
	return m.resolved.Credential()
}

func (m *Manager) Location() string {
	return m.resolved.Location()
}

func (m *Manager) AuthMode() credentials.AuthMode {
	return m.resolved.Mode()
}

func (m *Manager) MapStore() shard.MapStore {
	return m.mapStore
}

func (m *Manager) ShardStore() shard.Store {
	return m.shardStore
}

func (m *Manager) DB() *bun.DB {
	if m.client == nil {
		return nil
	}
	return m.client.DB()
}

// Migrate applies the embedded schema migrations for the configured dialect.
func (m *Manager) Migrate(ctx context.Context) error {
	return m.client.Migrate(ctx)
}

// Close releases the underlying database handle, including handles passed
// in through WithDB.
func (m *Manager) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

type persistenceConfig struct {
	driver      string
	server      string
	debug       bool
	pingTimeout time.Duration
}

func (c persistenceConfig) GetDebug() bool { return c.debug }

func (c persistenceConfig) GetDriver() string { return c.driver }

func (c persistenceConfig) GetServer() string { return c.server }

func (c persistenceConfig) GetPingTimeout() time.Duration { return c.pingTimeout }

func (c persistenceConfig) GetOtelIdentifier() string { return "elastic-db-tools" }
