package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/competitiveedge/engine/internal/domain"
)

func newTestCache(t *testing.T, opts Options) *MemoryCache {
	t.Helper()
	cache := NewMemoryCache(opts)
	t.Cleanup(cache.Close)
	return cache
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := newTestCache(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		value   interface{}
		ttl     time.Duration
		wantErr bool
	}{
		{
			name:  "store and retrieve vector",
			key:   "embedding:m:lasko heater",
			value: []float32{0.1, 0.2, 0.3},
			ttl:   1 * time.Minute,
		},
		{
			name:  "store and retrieve string",
			key:   "test-key-1",
			value: "test-value",
			ttl:   1 * time.Minute,
		},
		{
			name:  "store with short TTL",
			key:   "test-key-3",
			value: []float32{1},
			ttl:   1 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cache.Set(ctx, tt.key, tt.value, tt.ttl)
			if (err != nil) != tt.wantErr {
				t.Errorf("Set() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			// For short TTL test, wait for expiration
			if tt.ttl < 10*time.Millisecond {
				time.Sleep(10 * time.Millisecond)
				_, err := cache.Get(ctx, tt.key)
				if err != domain.ErrCacheMiss {
					t.Errorf("Expected cache miss after expiration, got error = %v", err)
				}
				return
			}

			got, err := cache.Get(ctx, tt.key)
			if err != nil {
				t.Errorf("Get() error = %v", err)
				return
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.value) {
				t.Errorf("Get() = %v, want %v", got, tt.value)
			}
		})
	}
}

func TestMemoryCache_VectorsAreCopied(t *testing.T) {
	cache := newTestCache(t, Options{})
	ctx := context.Background()

	vec := []float32{1, 2, 3}
	if err := cache.Set(ctx, "v", vec, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	vec[0] = 99

	got, _ := cache.Get(ctx, "v")
	stored := got.([]float32)
	if stored[0] != 1 {
		t.Errorf("cached vector changed with caller slice: %v", stored)
	}

	stored[1] = 99
	again, _ := cache.Get(ctx, "v")
	if again.([]float32)[1] != 2 {
		t.Errorf("cached vector changed through returned slice: %v", again)
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache := newTestCache(t, Options{})
	ctx := context.Background()

	_, err := cache.Get(ctx, "non-existent-key")
	if err != domain.ErrCacheMiss {
		t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_SetCanceledContext(t *testing.T) {
	cache := newTestCache(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := cache.Set(ctx, "k", "v", time.Minute); err == nil {
		t.Error("Set() with canceled context should fail")
	}
	if cache.Size() != 0 {
		t.Errorf("Size() = %d, want 0", cache.Size())
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := newTestCache(t, Options{})
	ctx := context.Background()

	key := "delete-test"
	if err := cache.Set(ctx, key, "value", 1*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := cache.Get(ctx, key); err != nil {
		t.Fatalf("Get() before delete error = %v", err)
	}

	if err := cache.Delete(ctx, key); err != nil {
		t.Errorf("Delete() error = %v", err)
	}

	if _, err := cache.Get(ctx, key); err != domain.ErrCacheMiss {
		t.Errorf("Get() after delete error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Exists(t *testing.T) {
	cache := newTestCache(t, Options{})
	ctx := context.Background()

	key := "exists-test"

	exists, err := cache.Exists(ctx, key)
	if err != nil {
		t.Errorf("Exists() error = %v", err)
	}
	if exists {
		t.Errorf("Exists() = true, want false for non-existent key")
	}

	if err := cache.Set(ctx, key, "value", 1*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	exists, _ = cache.Exists(ctx, key)
	if !exists {
		t.Errorf("Exists() = false, want true after setting value")
	}

	shortKey := "short-ttl"
	if err := cache.Set(ctx, shortKey, "value", 1*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	exists, _ = cache.Exists(ctx, shortKey)
	if exists {
		t.Errorf("Exists() = true, want false after expiration")
	}
}

func TestMemoryCache_MaxEntries(t *testing.T) {
	cache := newTestCache(t, Options{MaxEntries: 3})
	ctx := context.Background()

	// "a" expires first, so it is the one evicted
	ttls := map[string]time.Duration{"a": time.Minute, "b": time.Hour, "c": 2 * time.Hour}
	for _, key := range []string{"a", "b", "c"} {
		if err := cache.Set(ctx, key, key, ttls[key]); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	if err := cache.Set(ctx, "d", "d", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if size := cache.Size(); size != 3 {
		t.Errorf("Size() = %d, want 3", size)
	}
	if _, err := cache.Get(ctx, "a"); err != domain.ErrCacheMiss {
		t.Errorf("expected a to be evicted, got err = %v", err)
	}

	// overwriting an existing key never evicts
	if err := cache.Set(ctx, "b", "b2", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if size := cache.Size(); size != 3 {
		t.Errorf("Size() = %d, want 3 after overwrite", size)
	}
}

func TestMemoryCache_EvictionFollowsRefreshedExpiry(t *testing.T) {
	cache := newTestCache(t, Options{MaxEntries: 3})
	ctx := context.Background()

	_ = cache.Set(ctx, "a", "a", time.Minute)
	_ = cache.Set(ctx, "b", "b", time.Hour)
	_ = cache.Set(ctx, "c", "c", 2*time.Hour)

	// refreshing "a" makes "b" the soonest to expire
	_ = cache.Set(ctx, "a", "a2", 3*time.Hour)
	_ = cache.Set(ctx, "d", "d", 4*time.Hour)

	if _, err := cache.Get(ctx, "b"); err != domain.ErrCacheMiss {
		t.Errorf("expected b to be evicted, got err = %v", err)
	}
	if v, err := cache.Get(ctx, "a"); err != nil || v != "a2" {
		t.Errorf("Get(a) = %v, %v; want a2", v, err)
	}

	// a deleted key frees its slot without evicting another
	_ = cache.Delete(ctx, "c")
	_ = cache.Set(ctx, "e", "e", time.Minute)
	if size := cache.Size(); size != 3 {
		t.Errorf("Size() = %d, want 3", size)
	}
	for _, key := range []string{"a", "d", "e"} {
		if _, err := cache.Get(ctx, key); err != nil {
			t.Errorf("Get(%s) error = %v", key, err)
		}
	}
}

func TestMemoryCache_BoundedUnderLoad(t *testing.T) {
	cache := newTestCache(t, Options{MaxEntries: 100})
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		// later keys live longer, so the newest 100 survive
		if err := cache.Set(ctx, fmt.Sprintf("k%d", i), i, time.Hour+time.Duration(i)*time.Second); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	if size := cache.Size(); size != 100 {
		t.Errorf("Size() = %d, want 100", size)
	}
	if _, err := cache.Get(ctx, "k9999"); err != nil {
		t.Errorf("Get(k9999) error = %v", err)
	}
	if _, err := cache.Get(ctx, "k0"); err != domain.ErrCacheMiss {
		t.Errorf("expected k0 to be evicted, got err = %v", err)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache := newTestCache(t, Options{})
	ctx := context.Background()

	_ = cache.Set(ctx, "k", []float32{1}, time.Minute)
	_, _ = cache.Get(ctx, "k")
	_, _ = cache.Get(ctx, "k")
	_, _ = cache.Get(ctx, "missing")

	stats := cache.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("Stats() = %+v, want 2 hits, 1 miss, 1 entry", stats)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := newTestCache(t, Options{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		if err := cache.Set(ctx, key, i, 1*time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	if size := cache.Size(); size != 5 {
		t.Fatalf("Size() = %d, want 5 before clear", size)
	}

	cache.Clear()

	if size := cache.Size(); size != 0 {
		t.Errorf("Size() = %d, want 0 after clear", size)
	}
}

func TestMemoryCache_CleanupLoop(t *testing.T) {
	cache := newTestCache(t, Options{CleanupInterval: 5 * time.Millisecond})
	ctx := context.Background()

	_ = cache.Set(ctx, "gone", "v", time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for cache.Size() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if size := cache.Size(); size != 0 {
		t.Errorf("Size() = %d, want expired entry removed by cleanup", size)
	}

	cache.Close()
	cache.Close()
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := newTestCache(t, Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("embedding:m:%d", id)
			if err := cache.Set(ctx, key, []float32{float32(id)}, 1*time.Minute); err != nil {
				t.Errorf("Concurrent Set() error = %v", err)
			}
			if _, err := cache.Get(ctx, key); err != nil {
				t.Errorf("Concurrent Get() error = %v", err)
			}
		}(i)
	}
	wg.Wait()
}
