package cache

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var errTransient = errors.New("connection reset")

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache.Get should always miss")
	}
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if err := c.Clear(ctx); err != nil {
		t.Errorf("Clear error: %v", err)
	}
}

// exercise runs the behavior every backend shares.
func exercise(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "missing"); hit || err != nil {
		t.Fatalf("Get(missing) = hit %v, err %v", hit, err)
	}
	if err := c.Set(ctx, "a", []byte("alpha"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "a")
	if err != nil || !hit || string(data) != "alpha" {
		t.Fatalf("Get(a) = %q, %v, %v", data, hit, err)
	}

	if err := c.Set(ctx, "short", []byte("x"), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry returned")
	}

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("deleted entry returned")
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Errorf("deleting a missing key: %v", err)
	}

	for _, k := range []string{"x", "y"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "x"); hit {
		t.Error("entry survived Clear")
	}
}

func TestFileCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	exercise(t, c)

	if c.Dir() != dir {
		t.Errorf("Dir() = %q", c.Dir())
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Clear removed the cache directory: %v", err)
	}
}

func TestFileCacheTruncatedEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path("k"), []byte{0, 1, 2}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("truncated entry: hit %v, err %v", hit, err)
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("truncated entry should be removed")
	}
}

func TestMemoryCache(t *testing.T) {
	c, err := NewMemoryCache(8)
	if err != nil {
		t.Fatal(err)
	}
	exercise(t, c)

	ctx := context.Background()
	small, _ := NewMemoryCache(2)
	for _, k := range []string{"a", "b", "c"} {
		_ = small.Set(ctx, k, []byte(k), 0)
	}
	if small.Len() != 2 {
		t.Errorf("Len() = %d, want 2", small.Len())
	}
	if _, hit, _ := small.Get(ctx, "a"); hit {
		t.Error("least recently used entry should be evicted")
	}

	buf := []byte("orig")
	_ = c.Set(ctx, "copy", buf, 0)
	buf[0] = 'X'
	if got, _, _ := c.Get(ctx, "copy"); string(got) != "orig" {
		t.Errorf("Set should copy data, got %q", got)
	}

	if _, err := NewMemoryCache(0); err == nil {
		t.Error("NewMemoryCache(0) should fail")
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("STUBDEX_TEST_REDIS")
	if addr == "" {
		t.Skip("STUBDEX_TEST_REDIS not set")
	}
	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr, Prefix: "stubdex-test:"})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	exercise(t, c)
}

func TestRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisCache(ctx, RedisConfig{Addr: "127.0.0.1:1"}); err == nil {
		t.Error("NewRedisCache should fail for a closed port")
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c, _ := NewMemoryCache(4)

	type entry struct{ Name string }
	var got entry
	if err := GetJSON(ctx, c, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("GetJSON(miss) = %v", err)
	}
	if err := SetJSON(ctx, c, "k", entry{Name: "Array"}, 0); err != nil {
		t.Fatal(err)
	}
	if err := GetJSON(ctx, c, "k", &got); err != nil || got.Name != "Array" {
		t.Errorf("GetJSON = %+v, %v", got, err)
	}

	_ = c.Set(ctx, "bad", []byte("{"), 0)
	if err := GetJSON(ctx, c, "bad", &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("undecodable entry: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "bad"); hit {
		t.Error("undecodable entry should be dropped")
	}
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
	base := ParseKeyOpts{Parser: "ruby", Version: "3", Path: "core/array.rb", Hash: "abc"}

	key := k.ParseKey(base)
	if !strings.HasPrefix(key, "parse:") {
		t.Errorf("ParseKey = %q", key)
	}
	if key != k.ParseKey(base) {
		t.Error("ParseKey should be deterministic")
	}
	for name, opts := range map[string]ParseKeyOpts{
		"version": {Parser: "ruby", Version: "4", Path: "core/array.rb", Hash: "abc"},
		"path":    {Parser: "ruby", Version: "3", Path: "core/hash.rb", Hash: "abc"},
		"content": {Parser: "ruby", Version: "3", Path: "core/array.rb", Hash: "abd"},
	} {
		if k.ParseKey(opts) == key {
			t.Errorf("changing %s should change the key", name)
		}
	}

	a1 := k.ArtifactKey("h", ArtifactKeyOpts{Format: "svg"})
	a2 := k.ArtifactKey("h", ArtifactKeyOpts{Format: "svg", Detailed: true})
	if a1 == a2 || !strings.HasPrefix(a1, "artifact:") {
		t.Errorf("ArtifactKey = %q, %q", a1, a2)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "core:")
	opts := ParseKeyOpts{Parser: "ruby", Path: "a.rb"}
	if got := scoped.ParseKey(opts); got != "core:"+NewDefaultKeyer().ParseKey(opts) {
		t.Errorf("ScopedKeyer ParseKey = %q", got)
	}

	nilInner := NewScopedKeyer(nil, "p:")
	if got := nilInner.ArtifactKey("h", ArtifactKeyOpts{}); !strings.HasPrefix(got, "p:artifact:") {
		t.Errorf("nil inner key = %q", got)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(errTransient)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != errTransient.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if IsRetryable(ErrCacheMiss) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestClassify(t *testing.T) {
	if classify(nil) != nil {
		t.Error("classify(nil) != nil")
	}
	if !IsRetryable(classify(io.EOF)) {
		t.Error("EOF should be retryable")
	}
	if IsRetryable(classify(errors.New("WRONGTYPE"))) {
		t.Error("server errors should not be retryable")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("success: err %v, calls %d", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return ErrCacheMiss
	})
	if err != ErrCacheMiss || calls != 1 {
		t.Errorf("non-retryable: err %v, calls %d", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(errTransient)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("retry: err %v, calls %d", err, calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(errTransient)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
