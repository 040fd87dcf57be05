package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gocrud/engine/logging"
	"github.com/gocrud/engine/storage"
)

func newSqliteStore(t *testing.T) *storage.SqliteStore {
	t.Helper()
	store, err := storage.NewSqliteStore(filepath.Join(t.TempDir(), "saves.db"), logging.NewLogger("StorageTest"))
	if err != nil {
		t.Fatalf("NewSqliteStore failed: %v", err)
	}
	if err := store.Startup(); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Shutdown(); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
	})
	return store
}

func TestSqliteRoundTrip(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "slot1", []byte(`{"level":3}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, err := store.Get(ctx, "slot1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(value) != `{"level":3}` {
		t.Errorf("Expected original payload, got %q", value)
	}

	// 同键重写走 upsert 而非报错
	if err := store.Set(ctx, "slot1", []byte(`{"level":4}`)); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	value, err = store.Get(ctx, "slot1")
	if err != nil {
		t.Fatalf("Get after overwrite failed: %v", err)
	}
	if string(value) != `{"level":4}` {
		t.Errorf("Expected updated payload, got %q", value)
	}
}

func TestSqliteGetMissingKey(t *testing.T) {
	store := newSqliteStore(t)

	_, err := store.Get(context.Background(), "ghost")
	var notFound *storage.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
	if notFound.Key != "ghost" {
		t.Errorf("Expected key 'ghost' in error, got '%s'", notFound.Key)
	}
}

func TestSqliteDeleteIsIdempotent(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "slot1", []byte("data")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "slot1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "slot1"); err == nil {
		t.Error("Expected key to be gone after delete")
	}
	if err := store.Delete(ctx, "slot1"); err != nil {
		t.Errorf("Second delete should be a no-op, got %v", err)
	}
}

func TestSqliteKeysSorted(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Expected empty store, got %v", keys)
	}

	for _, key := range []string{"charlie", "alpha", "bravo"} {
		if err := store.Set(ctx, key, []byte(key)); err != nil {
			t.Fatal(err)
		}
	}
	keys, err = store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	want := []string{"alpha", "bravo", "charlie"}
	if len(keys) != len(want) {
		t.Fatalf("Expected %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, keys)
		}
	}
}

func TestSqlitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves.db")
	logger := logging.NewLogger("StorageTest")
	ctx := context.Background()

	store, err := storage.NewSqliteStore(path, logger)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Startup(); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, "slot1", []byte("persisted")); err != nil {
		t.Fatal(err)
	}
	if err := store.Shutdown(); err != nil {
		t.Fatal(err)
	}

	reopened, err := storage.NewSqliteStore(path, logger)
	if err != nil {
		t.Fatal(err)
	}
	if err := reopened.Startup(); err != nil {
		t.Fatal(err)
	}
	defer reopened.Shutdown()

	value, err := reopened.Get(ctx, "slot1")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(value) != "persisted" {
		t.Errorf("Expected persisted payload, got %q", value)
	}
}

func TestCacheFallsThroughWhenUnavailable(t *testing.T) {
	logger := logging.NewLogger("StorageTest")
	inner, err := storage.NewSqliteStore(filepath.Join(t.TempDir(), "saves.db"), logger)
	if err != nil {
		t.Fatal(err)
	}

	// 127.0.0.1:1 拒绝连接，缓存所有操作都应降级到内层仓库
	cached, err := storage.NewCachedStore(inner, storage.CacheOptions{Addr: "127.0.0.1:1"}, logger)
	if err != nil {
		t.Fatalf("NewCachedStore failed: %v", err)
	}
	// 启动链会迁移内层表结构；缓存探测失败只告警
	if err := cached.Startup(); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}
	defer cached.Shutdown()

	ctx := context.Background()
	if err := cached.Set(ctx, "slot1", []byte("payload")); err != nil {
		t.Fatalf("Set through unavailable cache failed: %v", err)
	}
	value, err := cached.Get(ctx, "slot1")
	if err != nil {
		t.Fatalf("Get through unavailable cache failed: %v", err)
	}
	if string(value) != "payload" {
		t.Errorf("Expected payload, got %q", value)
	}

	keys, err := cached.Keys(ctx)
	if err != nil || len(keys) != 1 {
		t.Fatalf("Keys through unavailable cache failed: %v %v", keys, err)
	}
	if err := cached.Delete(ctx, "slot1"); err != nil {
		t.Fatalf("Delete through unavailable cache failed: %v", err)
	}

	var notFound *storage.NotFoundError
	if _, err := cached.Get(ctx, "slot1"); !errors.As(err, &notFound) {
		t.Errorf("Expected NotFoundError after delete, got %v", err)
	}
}

func TestCacheRejectsInvalidTTL(t *testing.T) {
	inner := newSqliteStore(t)

	_, err := storage.NewCachedStore(inner, storage.CacheOptions{Addr: "127.0.0.1:1", TTL: "soon"},
		logging.NewLogger("StorageTest"))
	if err == nil {
		t.Fatal("Expected invalid ttl to be rejected")
	}
}
