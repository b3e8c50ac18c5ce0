package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/szrg/elastic-db-tools/migrations"
	"github.com/szrg/elastic-db-tools/shard"
	sqlstore "github.com/szrg/elastic-db-tools/store/sql"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "elastic-db-tools-tests"
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:sqlstore-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = migrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != migrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(migrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func newStores(t *testing.T) (shard.MapStore, shard.Store, func()) {
	t.Helper()
	client, cleanup := newSQLiteClient(t)
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		cleanup()
		t.Fatalf("new repository factory: %v", err)
	}
	return factory.MapStore(), factory.ShardStore(), cleanup
}

func tenantLocation(n int) shard.Location {
	return shard.Location{
		Protocol: shard.ProtocolTCP,
		Server:   fmt.Sprintf("shard-%d.example", n),
		Port:     1433,
		Database: fmt.Sprintf("Tenant_%d", n),
	}
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{"shard_maps", "shards"} {
		var tableName string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &tableName); err != nil {
			t.Fatalf("query sqlite master for %s: %v", table, err)
		}
		if tableName != table {
			t.Fatalf("expected %s table, got %q", table, tableName)
		}
	}
}

func TestShardMapStoreCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	mapStore, _, cleanup := newStores(t)
	defer cleanup()

	created, err := mapStore.Create(ctx, shard.CreateMapInput{
		Name: "tenants",
		Kind: shard.MapKindList,
	})
	if err != nil {
		t.Fatalf("create shard map: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated map id")
	}
	if created.Kind != shard.MapKindList {
		t.Fatalf("expected list kind, got %q", created.Kind)
	}

	byID, err := mapStore.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get shard map: %v", err)
	}
	if byID.Name != "tenants" {
		t.Fatalf("unexpected map name %q", byID.Name)
	}

	byName, err := mapStore.GetByName(ctx, "tenants")
	if err != nil {
		t.Fatalf("get shard map by name: %v", err)
	}
	if byName.ID != created.ID {
		t.Fatalf("expected same map by name, got %q vs %q", byName.ID, created.ID)
	}

	if _, err := mapStore.GetByName(ctx, "missing"); err == nil {
		t.Fatalf("expected lookup of unknown map to fail")
	}
}

func TestShardMapStoreRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	mapStore, _, cleanup := newStores(t)
	defer cleanup()

	if _, err := mapStore.Create(ctx, shard.CreateMapInput{Name: "  ", Kind: shard.MapKindList}); err == nil {
		t.Fatalf("expected empty map name to be rejected")
	}
	if _, err := mapStore.Create(ctx, shard.CreateMapInput{Name: "ranges", Kind: shard.MapKind("ring")}); err == nil {
		t.Fatalf("expected unknown map kind to be rejected")
	}
}

func TestShardMapStoreEnforcesUniqueNames(t *testing.T) {
	ctx := context.Background()
	mapStore, _, cleanup := newStores(t)
	defer cleanup()

	if _, err := mapStore.Create(ctx, shard.CreateMapInput{Name: "tenants", Kind: shard.MapKindList}); err != nil {
		t.Fatalf("create shard map: %v", err)
	}
	if _, err := mapStore.Create(ctx, shard.CreateMapInput{Name: "tenants", Kind: shard.MapKindRange}); err == nil {
		t.Fatalf("expected duplicate map name to be rejected")
	}
}

func TestShardMapStoreList(t *testing.T) {
	ctx := context.Background()
	mapStore, _, cleanup := newStores(t)
	defer cleanup()

	for _, name := range []string{"alpha", "beta"} {
		if _, err := mapStore.Create(ctx, shard.CreateMapInput{Name: name, Kind: shard.MapKindRange}); err != nil {
			t.Fatalf("create shard map %s: %v", name, err)
		}
	}

	listed, err := mapStore.List(ctx)
	if err != nil {
		t.Fatalf("list shard maps: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected two maps, got %d", len(listed))
	}
	if listed[0].Name != "alpha" || listed[1].Name != "beta" {
		t.Fatalf("expected maps in creation order, got %q then %q", listed[0].Name, listed[1].Name)
	}
}

func TestShardStoreAddAndFetch(t *testing.T) {
	ctx := context.Background()
	mapStore, shardStore, cleanup := newStores(t)
	defer cleanup()

	parent, err := mapStore.Create(ctx, shard.CreateMapInput{Name: "tenants", Kind: shard.MapKindList})
	if err != nil {
		t.Fatalf("create shard map: %v", err)
	}

	added, err := shardStore.Add(ctx, shard.AddShardInput{
		MapID:    parent.ID,
		Location: tenantLocation(1),
	})
	if err != nil {
		t.Fatalf("add shard: %v", err)
	}
	if added.Status != shard.StatusOnline {
		t.Fatalf("expected default online status, got %q", added.Status)
	}
	if added.MapID != parent.ID {
		t.Fatalf("expected shard bound to map %q, got %q", parent.ID, added.MapID)
	}

	fetched, err := shardStore.Get(ctx, added.ID)
	if err != nil {
		t.Fatalf("get shard: %v", err)
	}
	if fetched.Location != tenantLocation(1) {
		t.Fatalf("unexpected location %#v", fetched.Location)
	}
}

func TestShardStoreRejectsDuplicateActiveLocation(t *testing.T) {
	ctx := context.Background()
	mapStore, shardStore, cleanup := newStores(t)
	defer cleanup()

	parent, err := mapStore.Create(ctx, shard.CreateMapInput{Name: "tenants", Kind: shard.MapKindList})
	if err != nil {
		t.Fatalf("create shard map: %v", err)
	}

	first, err := shardStore.Add(ctx, shard.AddShardInput{
		MapID:    parent.ID,
		Location: tenantLocation(1),
	})
	if err != nil {
		t.Fatalf("add shard: %v", err)
	}

	if _, err := shardStore.Add(ctx, shard.AddShardInput{
		MapID:    parent.ID,
		Location: tenantLocation(1),
	}); err == nil {
		t.Fatalf("expected duplicate location to be rejected")
	}

	if err := shardStore.Remove(ctx, first.ID); err != nil {
		t.Fatalf("remove shard: %v", err)
	}

	// Removing the shard frees the location for reuse.
	if _, err := shardStore.Add(ctx, shard.AddShardInput{
		MapID:    parent.ID,
		Location: tenantLocation(1),
	}); err != nil {
		t.Fatalf("re-add shard after removal: %v", err)
	}
}

func TestShardStoreListByMap(t *testing.T) {
	ctx := context.Background()
	mapStore, shardStore, cleanup := newStores(t)
	defer cleanup()

	parent, err := mapStore.Create(ctx, shard.CreateMapInput{Name: "tenants", Kind: shard.MapKindList})
	if err != nil {
		t.Fatalf("create shard map: %v", err)
	}
	other, err := mapStore.Create(ctx, shard.CreateMapInput{Name: "archive", Kind: shard.MapKindRange})
	if err != nil {
		t.Fatalf("create other shard map: %v", err)
	}

	for n := 1; n <= 3; n++ {
		if _, err := shardStore.Add(ctx, shard.AddShardInput{
			MapID:    parent.ID,
			Location: tenantLocation(n),
		}); err != nil {
			t.Fatalf("add shard %d: %v", n, err)
		}
	}
	if _, err := shardStore.Add(ctx, shard.AddShardInput{
		MapID:    other.ID,
		Location: tenantLocation(9),
	}); err != nil {
		t.Fatalf("add shard to other map: %v", err)
	}

	listed, err := shardStore.ListByMap(ctx, parent.ID)
	if err != nil {
		t.Fatalf("list shards: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected three shards for map, got %d", len(listed))
	}
	for _, item := range listed {
		if item.MapID != parent.ID {
			t.Fatalf("expected shards for map %q only, got %q", parent.ID, item.MapID)
		}
	}
}

func TestShardStoreUpdateStatus(t *testing.T) {
	ctx := context.Background()
	mapStore, shardStore, cleanup := newStores(t)
	defer cleanup()

	parent, err := mapStore.Create(ctx, shard.CreateMapInput{Name: "tenants", Kind: shard.MapKindList})
	if err != nil {
		t.Fatalf("create shard map: %v", err)
	}
	added, err := shardStore.Add(ctx, shard.AddShardInput{
		MapID:    parent.ID,
		Location: tenantLocation(1),
	})
	if err != nil {
		t.Fatalf("add shard: %v", err)
	}

	if err := shardStore.UpdateStatus(ctx, added.ID, shard.StatusOffline, "maintenance window"); err != nil {
		t.Fatalf("update shard status: %v", err)
	}

	updated, err := shardStore.Get(ctx, added.ID)
	if err != nil {
		t.Fatalf("get shard: %v", err)
	}
	if updated.Status != shard.StatusOffline {
		t.Fatalf("expected offline status, got %q", updated.Status)
	}
	if updated.LastError != "maintenance window" {
		t.Fatalf("expected status reason recorded, got %q", updated.LastError)
	}

	if err := shardStore.UpdateStatus(ctx, added.ID, shard.Status("degraded"), ""); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestShardStoreRemoveHidesShard(t *testing.T) {
	ctx := context.Background()
	mapStore, shardStore, cleanup := newStores(t)
	defer cleanup()

	parent, err := mapStore.Create(ctx, shard.CreateMapInput{Name: "tenants", Kind: shard.MapKindList})
	if err != nil {
		t.Fatalf("create shard map: %v", err)
	}
	added, err := shardStore.Add(ctx, shard.AddShardInput{
		MapID:    parent.ID,
		Location: tenantLocation(1),
	})
	if err != nil {
		t.Fatalf("add shard: %v", err)
	}

	if err := shardStore.Remove(ctx, added.ID); err != nil {
		t.Fatalf("remove shard: %v", err)
	}
	if _, err := shardStore.Get(ctx, added.ID); err == nil {
		t.Fatalf("expected removed shard to be invisible")
	}

	listed, err := shardStore.ListByMap(ctx, parent.ID)
	if err != nil {
		t.Fatalf("list shards: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected no shards after removal, got %d", len(listed))
	}
}

func TestRepositoryFactoryRejectsUnknownClient(t *testing.T) {
	factory := sqlstore.NewRepositoryFactory()
	if _, err := factory.BuildStores("not a client"); err == nil {
		t.Fatalf("expected unsupported client to be rejected")
	}
	if _, err := factory.BuildStores(nil); err == nil || !strings.Contains(err.Error(), "required") {
		t.Fatalf("expected missing client error, got %v", err)
	}
}
