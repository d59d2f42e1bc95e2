package cache

import (
	"context"
	"testing"
	"time"
)

func newTestMemoryCache(t *testing.T, opts *Options) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(opts)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := newTestMemoryCache(t, nil)
	ctx := context.Background()

	if err := c.Set(ctx, "key1", []byte("value1"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("expected value1, got %s", val)
	}
}

func TestMemoryCache_GetMiss(t *testing.T) {
	c := newTestMemoryCache(t, nil)

	_, err := c.Get(context.Background(), "missing")
	if err != ErrKeyNotFound {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := newTestMemoryCache(t, nil)
	ctx := context.Background()

	c.Set(ctx, "short", []byte("v"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, err := c.Get(ctx, "short"); err != ErrKeyNotFound {
		t.Errorf("expected expired key to miss, got %v", err)
	}
}

func TestMemoryCache_ValueIsCopied(t *testing.T) {
	c := newTestMemoryCache(t, nil)
	ctx := context.Background()

	original := []byte("original")
	c.Set(ctx, "key", original, time.Minute)
	original[0] = 'X'

	val, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "original" {
		t.Errorf("stored value mutated: %s", val)
	}

	// Мутация возвращённого значения не влияет на кэш
	val[0] = 'Y'
	val2, _ := c.Get(ctx, "key")
	if string(val2) != "original" {
		t.Errorf("returned value not isolated: %s", val2)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	c := newTestMemoryCache(t, nil)
	ctx := context.Background()

	c.Set(ctx, "key", []byte("v"), time.Minute)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "key"); err != ErrKeyNotFound {
		t.Errorf("expected miss after delete, got %v", err)
	}

	// Удаление несуществующего ключа не ошибка
	if err := c.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete of missing key should not error: %v", err)
	}
}

func TestMemoryCache_Exists(t *testing.T) {
	c := newTestMemoryCache(t, nil)
	ctx := context.Background()

	c.Set(ctx, "key", []byte("v"), time.Minute)

	ok, err := c.Exists(ctx, "key")
	if err != nil || !ok {
		t.Errorf("expected key to exist, ok=%v err=%v", ok, err)
	}

	ok, err = c.Exists(ctx, "missing")
	if err != nil || ok {
		t.Errorf("expected missing key, ok=%v err=%v", ok, err)
	}
}

func TestMemoryCache_GetWithTTL(t *testing.T) {
	c := newTestMemoryCache(t, nil)
	ctx := context.Background()

	c.Set(ctx, "key", []byte("v"), time.Minute)

	val, ttl, err := c.GetWithTTL(ctx, "key")
	if err != nil {
		t.Fatalf("GetWithTTL failed: %v", err)
	}
	if string(val) != "v" {
		t.Errorf("unexpected value: %s", val)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("unexpected ttl: %v", ttl)
	}
}

func TestMemoryCache_KeysAndDeleteByPattern(t *testing.T) {
	c := newTestMemoryCache(t, nil)
	ctx := context.Background()

	c.Set(ctx, "routes:v1:aaa", []byte("1"), time.Minute)
	c.Set(ctx, "routes:v1:bbb", []byte("2"), time.Minute)
	c.Set(ctx, "ports:v1:SGSIN", []byte("3"), time.Minute)

	keys, err := c.Keys(ctx, "routes:v1:*")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 route keys, got %v", keys)
	}

	n, err := c.DeleteByPattern(ctx, "routes:v1:*")
	if err != nil {
		t.Fatalf("DeleteByPattern failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}

	// Порт остаётся
	if ok, _ := c.Exists(ctx, "ports:v1:SGSIN"); !ok {
		t.Error("port key should survive route pattern delete")
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	c := newTestMemoryCache(t, nil)
	ctx := context.Background()

	c.Set(ctx, "key", []byte("value"), time.Minute)
	c.Get(ctx, "key")     // hit
	c.Get(ctx, "missing") // miss

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d/%d", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %v", stats.HitRate)
	}
	if stats.TotalKeys != 1 {
		t.Errorf("expected 1 key, got %d", stats.TotalKeys)
	}
	if stats.Backend != BackendMemory {
		t.Errorf("expected memory backend, got %s", stats.Backend)
	}
}

func TestMemoryCache_EvictLRU(t *testing.T) {
	c := newTestMemoryCache(t, &Options{
		DefaultTTL: time.Minute,
		MaxEntries: 3,
	})
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	time.Sleep(2 * time.Millisecond)
	c.Set(ctx, "b", []byte("2"), time.Minute)
	time.Sleep(2 * time.Millisecond)
	c.Set(ctx, "c", []byte("3"), time.Minute)
	time.Sleep(2 * time.Millisecond)

	// Трогаем "a", чтобы LRU стал "b"
	c.Get(ctx, "a")
	time.Sleep(2 * time.Millisecond)

	c.Set(ctx, "d", []byte("4"), time.Minute)

	if ok, _ := c.Exists(ctx, "b"); ok {
		t.Error("expected b to be evicted as LRU")
	}
	if ok, _ := c.Exists(ctx, "a"); !ok {
		t.Error("recently accessed a should survive")
	}
	if ok, _ := c.Exists(ctx, "d"); !ok {
		t.Error("new entry d should be present")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	c := newTestMemoryCache(t, nil)
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	stats, _ := c.Stats(ctx)
	if stats.TotalKeys != 0 {
		t.Errorf("expected empty cache, got %d keys", stats.TotalKeys)
	}
}

func TestMemoryCache_Closed(t *testing.T) {
	c := NewMemoryCache(nil)
	ctx := context.Background()

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Повторное закрытие безопасно
	if err := c.Close(); err != nil {
		t.Errorf("second Close should be nil: %v", err)
	}

	if _, err := c.Get(ctx, "key"); err != ErrCacheClosed {
		t.Errorf("expected ErrCacheClosed, got %v", err)
	}
	if err := c.Set(ctx, "key", []byte("v"), 0); err != ErrCacheClosed {
		t.Errorf("expected ErrCacheClosed on Set, got %v", err)
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"*", "anything", true},
		{"", "anything", true},
		{"routes:v1:*", "routes:v1:abc", true},
		{"routes:v1:*", "ports:v1:abc", false},
		{"ports:v1:SGSIN", "ports:v1:SGSIN", true},
		{"ports:v1:SGSIN", "ports:v1:NLRTM", false},
	}

	for _, tt := range tests {
		if got := matchPattern(tt.pattern, tt.key); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.key, got, tt.want)
		}
	}
}
