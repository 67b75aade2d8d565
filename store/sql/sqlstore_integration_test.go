package sqlstore_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	productmigrations "github.com/goliatone/go-productwebhook/migrations"
	"github.com/goliatone/go-productwebhook/scope"
	"github.com/goliatone/go-productwebhook/security"
	sqlstore "github.com/goliatone/go-productwebhook/store/sql"
)

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"product_webhook_config",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "product_webhook_config" {
		t.Fatalf("expected product_webhook_config table, got %q", tableName)
	}
}

func TestConfigStore_StoreScopeOverridesDefault(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.ConfigStore()
	if store == nil || factory.ConfigSource() == nil {
		t.Fatalf("expected config store from factory")
	}

	mustSet(t, store, scope.DefaultRef(), scope.KeyEnabled, "1")
	mustSet(t, store, scope.DefaultRef(), scope.KeyEndpoint, "https://default.example.com/hook")
	mustSet(t, store, scope.DefaultRef(), scope.KeyTimeout, "15")
	mustSet(t, store, scope.StoreRef(2), scope.KeyEndpoint, "https://store2.example.com/hook")
	mustSet(t, store, scope.StoreRef(2), scope.KeyUseQueue, "1")
	mustSet(t, store, scope.StoreRef(2), scope.KeyAllowedAttributes, "sku, name")

	cfg, err := store.EndpointConfig(ctx, 2)
	if err != nil {
		t.Fatalf("endpoint config: %v", err)
	}
	if !cfg.Enabled || !cfg.UseQueue {
		t.Fatalf("expected enabled queued config, got %+v", cfg)
	}
	if cfg.Endpoint != "https://store2.example.com/hook" {
		t.Fatalf("expected store endpoint, got %q", cfg.Endpoint)
	}
	if cfg.TimeoutSeconds != 15 {
		t.Fatalf("expected inherited timeout 15, got %d", cfg.TimeoutSeconds)
	}
	if strings.Join(cfg.AllowedAttributes, ",") != "sku,name" {
		t.Fatalf("unexpected allow list %v", cfg.AllowedAttributes)
	}

	other, err := store.EndpointConfig(ctx, 3)
	if err != nil {
		t.Fatalf("endpoint config store 3: %v", err)
	}
	if other.Endpoint != "https://default.example.com/hook" || other.UseQueue {
		t.Fatalf("expected default-scope config for store 3, got %+v", other)
	}
}

func TestConfigStore_SetUpdatesInPlaceAndReadsEveryCall(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromDB(client.DB())
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.ConfigStore()

	mustSet(t, store, scope.StoreRef(1), scope.KeyEnabled, "1")
	mustSet(t, store, scope.StoreRef(1), scope.KeyEndpoint, "https://one.example.com")

	first, err := store.EndpointConfig(ctx, 1)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if !first.Enabled {
		t.Fatalf("expected enabled config")
	}

	mustSet(t, store, scope.StoreRef(1), scope.KeyEnabled, "0")
	second, err := store.EndpointConfig(ctx, 1)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if second.Enabled {
		t.Fatalf("expected disabled config after update")
	}

	var rows int
	if err := client.DB().NewRaw(
		"SELECT COUNT(*) FROM product_webhook_config WHERE scope = ? AND scope_id = ? AND path = ?",
		scope.ScopeStores, 1, scope.KeyEnabled,
	).Scan(ctx, &rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected upsert to keep a single row, got %d", rows)
	}

	if err := store.Delete(ctx, scope.StoreRef(1), scope.KeyEndpoint); err != nil {
		t.Fatalf("delete endpoint: %v", err)
	}
	values, err := store.Values(ctx, scope.StoreRef(1))
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	if _, ok := values[scope.KeyEndpoint]; ok {
		t.Fatalf("expected endpoint removed, got %v", values)
	}
}

func TestConfigStore_ValuesStayWithinTheirStore(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromDB(client.DB())
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.ConfigStore()

	mustSet(t, store, scope.StoreRef(1), scope.KeyEndpoint, "https://one.example.com/hook")
	mustSet(t, store, scope.StoreRef(2), scope.KeyEndpoint, "https://two.example.com/hook")
	mustSet(t, store, scope.StoreRef(2), scope.KeyUseQueue, "1")

	one, err := store.Values(ctx, scope.StoreRef(1))
	if err != nil {
		t.Fatalf("values store 1: %v", err)
	}
	if len(one) != 1 || one[scope.KeyEndpoint] != "https://one.example.com/hook" {
		t.Fatalf("unexpected store 1 values %v", one)
	}
	two, err := store.Values(ctx, scope.StoreRef(2))
	if err != nil {
		t.Fatalf("values store 2: %v", err)
	}
	if len(two) != 2 || two[scope.KeyEndpoint] != "https://two.example.com/hook" || two[scope.KeyUseQueue] != "1" {
		t.Fatalf("unexpected store 2 values %v", two)
	}
	none, err := store.Values(ctx, scope.StoreRef(3))
	if err != nil {
		t.Fatalf("values store 3: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no values for store 3, got %v", none)
	}
}

func TestConfigStore_RejectsUnknownScopeAndKey(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.ConfigStore()
	if err := store.Set(ctx, scope.Ref{Scope: "websites", ID: 1}, scope.KeyEnabled, "1"); err == nil {
		t.Fatalf("expected unsupported scope error")
	}
	if err := store.Set(ctx, scope.StoreRef(1), "colour", "blue"); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestConfigStore_SealsSecretAtRest(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	cipher, err := security.NewAppKeyCipherFromString("sqlstore-test-key")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, sqlstore.WithSecretCipher(cipher))
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.ConfigStore()
	mustSet(t, store, scope.StoreRef(4), scope.KeySecret, "whsec_plain")

	values, err := store.Values(ctx, scope.StoreRef(4))
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	stored := values[scope.KeySecret]
	if stored == "whsec_plain" || !security.IsSealed([]byte(stored)) {
		t.Fatalf("expected sealed secret at rest, got %q", stored)
	}

	cfg, err := store.EndpointConfig(ctx, 4)
	if err != nil {
		t.Fatalf("endpoint config: %v", err)
	}
	if cfg.Secret != "whsec_plain" {
		t.Fatalf("expected opened secret, got %q", cfg.Secret)
	}
}

func TestConfigStore_NilStore(t *testing.T) {
	var store *sqlstore.ConfigStore
	if _, err := store.EndpointConfig(context.Background(), 1); err == nil {
		t.Fatalf("expected not configured error")
	}
	if err := store.Set(context.Background(), scope.StoreRef(1), scope.KeyEnabled, "1"); err == nil {
		t.Fatalf("expected not configured error on set")
	}
}

func TestOpen_RejectsUnsupportedDriver(t *testing.T) {
	if _, err := sqlstore.Open(sqlstore.ConnectionConfig{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := sqlstore.Open(sqlstore.ConnectionConfig{Driver: sqlstore.DriverSQLite}); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}

func mustSet(t *testing.T, store *sqlstore.ConfigStore, ref scope.Ref, key, value string) {
	t.Helper()
	if err := store.Set(context.Background(), ref, key, value); err != nil {
		t.Fatalf("set %s %s: %v", ref, key, err)
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:productwebhook-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	client, err := sqlstore.Open(sqlstore.ConnectionConfig{
		Driver:         sqlstore.DriverSQLite,
		DSN:            dsn,
		PingTimeout:    time.Second,
		OtelIdentifier: "go-productwebhook-tests",
	})
	if err != nil {
		t.Fatalf("open sqlite client: %v", err)
	}

	ctx := context.Background()
	if err := productmigrations.Apply(ctx, client, sqlstore.MigrationDialect(sqlstore.DriverSQLite)); err != nil {
		_ = client.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
