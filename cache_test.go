package polycache

import (
	"context"
	"errors"
	"testing"

	"github.com/unkn0wn-root/polycache/adapter"
	"github.com/unkn0wn-root/polycache/adapter/memory"
	_ "github.com/unkn0wn-root/polycache/adapter/stream"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	m, err := memory.New(adapter.Options{})
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	c, err := New(m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresAdapter(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("nil adapter must be rejected")
	}
}

func TestRegistryConstruction(t *testing.T) {
	// stream is registered by its blank import above; memory by its direct one.
	a, err := adapter.New("stream", adapter.Options{StorageDir: t.TempDir()})
	if err != nil {
		t.Fatalf("adapter.New(stream): %v", err)
	}
	c, err := New(a)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close(context.Background())

	ctx := context.Background()
	if ok, err := c.Set(ctx, "k", "v", adapter.DefaultTTL()); err != nil || !ok {
		t.Fatalf("Set through registry-built adapter: ok=%v err=%v", ok, err)
	}
	if v, _ := c.Get(ctx, "k", nil); v != "v" {
		t.Fatalf("Get: %v", v)
	}
}

func TestUnknownAdapterName(t *testing.T) {
	_, err := adapter.New("apcu", adapter.Options{})
	if err == nil {
		t.Fatalf("unknown adapter name must fail")
	}
	var cfgErr *adapter.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
}

func TestKeyValidation(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	bad := []string{
		"",
		"user:1",
		"a/b",
		`a\b`,
		"a{b}",
		"a(b)",
		"user@host",
	}
	for _, key := range bad {
		_, err := c.Get(ctx, key, nil)
		if err == nil {
			t.Errorf("key %q must be rejected", key)
			continue
		}
		var invalid *InvalidKeyError
		if !errors.As(err, &invalid) {
			t.Errorf("key %q: expected InvalidKeyError, got %T", key, err)
		}
	}

	if _, err := c.Get(ctx, "user-1.profile", nil); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
}

func TestValidationCoversEveryEntryPoint(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	const bad = "a:b"

	if _, err := c.Has(ctx, bad); err == nil {
		t.Errorf("Has must validate")
	}
	if _, err := c.Set(ctx, bad, "v", adapter.DefaultTTL()); err == nil {
		t.Errorf("Set must validate")
	}
	if _, err := c.SetForever(ctx, bad, "v"); err == nil {
		t.Errorf("SetForever must validate")
	}
	if _, err := c.Delete(ctx, bad); err == nil {
		t.Errorf("Delete must validate")
	}
	if _, err := c.DeleteMultiple(ctx, []string{"ok", bad}); err == nil {
		t.Errorf("DeleteMultiple must validate")
	}
	if _, err := c.GetMultiple(ctx, []string{"ok", bad}, nil); err == nil {
		t.Errorf("GetMultiple must validate")
	}
	if _, err := c.SetMultiple(ctx, map[string]any{bad: "v"}, adapter.DefaultTTL()); err == nil {
		t.Errorf("SetMultiple must validate")
	}
	if _, _, err := c.Increment(ctx, bad, 1); err == nil {
		t.Errorf("Increment must validate")
	}
	if _, _, err := c.Decrement(ctx, bad, 1); err == nil {
		t.Errorf("Decrement must validate")
	}
}

func TestGetDefaultSubstitution(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	v, err := c.Get(ctx, "missing", "fallback")
	if err != nil || v != "fallback" {
		t.Fatalf("miss must yield the default: v=%v err=%v", v, err)
	}

	c.Set(ctx, "present", "stored", adapter.DefaultTTL())
	v, err = c.Get(ctx, "present", "fallback")
	if err != nil || v != "stored" {
		t.Fatalf("hit must ignore the default: v=%v err=%v", v, err)
	}

	// A stored nil is a hit, not a miss.
	c.Set(ctx, "stored-nil", nil, adapter.DefaultTTL())
	v, err = c.Get(ctx, "stored-nil", "fallback")
	if err != nil || v != nil {
		t.Fatalf("stored nil must not be replaced by the default: v=%v err=%v", v, err)
	}
}

func TestDeleteMultiple(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	c.Set(ctx, "a", "1", adapter.DefaultTTL())
	c.Set(ctx, "b", "2", adapter.DefaultTTL())

	ok, err := c.DeleteMultiple(ctx, []string{"a", "b", "never-existed"})
	if err != nil || !ok {
		t.Fatalf("DeleteMultiple: ok=%v err=%v", ok, err)
	}
	for _, k := range []string{"a", "b"} {
		if ok, _ := c.Has(ctx, k); ok {
			t.Fatalf("key %q must be gone", k)
		}
	}
}

func TestAdapterAccessor(t *testing.T) {
	c := newTestCache(t)
	if c.Adapter() == nil {
		t.Fatalf("Adapter must expose the wrapped adapter")
	}
	if c.Adapter().Prefix() != "pc-memo-" {
		t.Fatalf("unexpected prefix: %q", c.Adapter().Prefix())
	}
}
