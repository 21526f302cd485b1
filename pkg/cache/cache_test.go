package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tanaylab/mcbrowse/pkg/observability"
)

var errRefused = errors.New("connection refused")

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

// exerciseCache checks the behavior every backend shares.
func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "figure:a"); err != nil || hit {
		t.Fatalf("Get(empty) = %v, %v; want miss", hit, err)
	}
	if err := c.Set(ctx, "figure:a", []byte("one"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "figure:a")
	if err != nil || !hit || string(data) != "one" {
		t.Fatalf("Get = %q, %v, %v; want one", data, hit, err)
	}
	if err := c.Set(ctx, "figure:a", []byte("two"), 0); err != nil {
		t.Fatal(err)
	}
	if data, _, _ := c.Get(ctx, "figure:a"); string(data) != "two" {
		t.Errorf("overwrite = %q, want two", data)
	}
	if err := c.Delete(ctx, "figure:a"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "figure:a"); hit {
		t.Error("Get after Delete hit")
	}
	if err := c.Delete(ctx, "figure:missing"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	exerciseCache(t, c)
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "old", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "fresh", []byte("y"), time.Hour); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)

	st, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Entries != 2 || st.Expired != 1 || st.Bytes == 0 {
		t.Errorf("Stats() = %+v", st)
	}

	removed, err := c.Clear(true)
	if err != nil || removed != 1 {
		t.Errorf("Clear(expired) = %d, %v; want 1", removed, err)
	}
	if _, hit, _ := c.Get(ctx, "fresh"); !hit {
		t.Error("fresh entry removed")
	}
	if removed, _ := c.Clear(false); removed != 1 {
		t.Errorf("Clear(all) = %d, want 1", removed)
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry = %v, %v; want miss", hit, err)
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("corrupt entry not removed")
	}
}

func TestMemoryCache(t *testing.T) {
	c, err := NewMemoryCache(0)
	if err != nil {
		t.Fatal(err)
	}
	exerciseCache(t, c)
}

func TestMemoryCacheEviction(t *testing.T) {
	ctx := context.Background()
	c, _ := NewMemoryCache(2)
	c.Set(ctx, "a", []byte("1"), 0)
	c.Set(ctx, "b", []byte("2"), 0)
	c.Get(ctx, "a")
	c.Set(ctx, "c", []byte("3"), 0)

	if _, hit, _ := c.Get(ctx, "b"); hit {
		t.Error("least recently used entry survived")
	}
	if _, hit, _ := c.Get(ctx, "a"); !hit {
		t.Error("recently used entry evicted")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	c, _ := NewMemoryCache(4)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", []byte("v"), time.Minute)
	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry hit")
	}
	if c.Len() != 0 {
		t.Error("expired entry not evicted")
	}
}

func TestMemoryCacheCopiesData(t *testing.T) {
	ctx := context.Background()
	c, _ := NewMemoryCache(4)
	data := []byte("abc")
	c.Set(ctx, "k", data, 0)
	data[0] = 'X'
	if got, _, _ := c.Get(ctx, "k"); string(got) != "abc" {
		t.Errorf("Get = %q, want abc", got)
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("MCBROWSE_TEST_REDIS")
	if addr == "" {
		t.Skip("MCBROWSE_TEST_REDIS not set")
	}
	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr, Prefix: "mcbrowse-test:"})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	exerciseCache(t, c)
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	fk := k.FigureKey("ds1", "v1")
	if !strings.HasPrefix(fk, "figure:") {
		t.Errorf("FigureKey = %s", fk)
	}
	if fk == k.FigureKey("ds1", "v2") || fk == k.FigureKey("ds2", "v1") {
		t.Error("different digests should produce different figure keys")
	}
	if fk != k.FigureKey("ds1", "v1") {
		t.Error("FigureKey should be deterministic")
	}

	ak1 := k.ArtifactKey(fk, ArtifactKeyOpts{Format: "svg"})
	ak2 := k.ArtifactKey(fk, ArtifactKeyOpts{Format: "png"})
	ak3 := k.ArtifactKey(fk, ArtifactKeyOpts{Format: "png", Scale: 2})
	if ak1 == ak2 || ak2 == ak3 {
		t.Error("different ArtifactKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(ak1, "artifact:svg:") {
		t.Errorf("ArtifactKey = %s", ak1)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "pbmc:")
	fk := scoped.FigureKey("ds", "v")
	if fk != "pbmc:"+NewDefaultKeyer().FigureKey("ds", "v") {
		t.Errorf("FigureKey = %s", fk)
	}
	if ak := scoped.ArtifactKey(fk, ArtifactKeyOpts{Format: "svg"}); !strings.HasPrefix(ak, "pbmc:artifact:svg:") {
		t.Errorf("ArtifactKey = %s", ak)
	}

	if key := NewScopedKeyer(nil, "p:").FigureKey("a", "b"); !strings.HasPrefix(key, "p:figure:") {
		t.Errorf("nil inner key = %s", key)
	}
}

func TestKeyType(t *testing.T) {
	tests := map[string]string{
		"figure:abc":            "figure",
		"artifact:svg:abc":      "artifact",
		"pbmc:artifact:png:abc": "artifact",
		"other":                 "other",
	}
	for key, want := range tests {
		if got := KeyType(key); got != want {
			t.Errorf("KeyType(%q) = %q, want %q", key, got, want)
		}
	}
}

type countingHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets int
}

func (h *countingHooks) OnCacheHit(context.Context, string)      { h.hits++ }
func (h *countingHooks) OnCacheMiss(context.Context, string)     { h.misses++ }
func (h *countingHooks) OnCacheSet(context.Context, string, int) { h.sets++ }

func TestInstrument(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetCacheHooks(hooks)
	t.Cleanup(observability.Reset)

	ctx := context.Background()
	mem, _ := NewMemoryCache(4)
	c := Instrument(mem)
	if Instrument(c) != c {
		t.Error("Instrument should not wrap twice")
	}

	c.Get(ctx, "figure:x")
	c.Set(ctx, "figure:x", []byte("1"), 0)
	c.Get(ctx, "figure:x")
	if hooks.hits != 1 || hooks.misses != 1 || hooks.sets != 1 {
		t.Errorf("hooks = %+v", hooks)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(errRefused)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != errRefused.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if !errors.Is(err, errRefused) {
		t.Error("wrapped error should stay visible to errors.Is")
	}
	if IsRetryable(errRefused) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	retryDelay = time.Millisecond
	t.Cleanup(func() { retryDelay = time.Second })
	ctx := context.Background()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("success: err=%v calls=%d", err, calls)
	}

	calls = 0
	plain := errors.New("bad password")
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return plain
	})
	if err != plain || calls != 1 {
		t.Errorf("non-retryable: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(errRefused)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("retry: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return Retryable(errRefused)
	})
	if !IsRetryable(err) || calls != 3 {
		t.Errorf("exhausted: err=%v calls=%d", err, calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(errRefused)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
