package polycache

import (
	"context"
	"errors"
	"strings"

	"github.com/unkn0wn-root/polycache/adapter"
)

// reservedKeyChars carry protocol meaning in one backend or another, so the
// facade rejects them everywhere rather than letting behavior diverge per
// backend.
const reservedKeyChars = `{}()/\@:`

// Cache is a thin facade over one Adapter: it validates caller keys and
// substitutes a caller-supplied default for misses. Everything else is the
// adapter's contract unchanged.
type Cache struct {
	a adapter.Adapter
}

// New wraps an adapter. The adapter's lifecycle belongs to the Cache after
// this call; Close tears it down.
func New(a adapter.Adapter) (*Cache, error) {
	if a == nil {
		return nil, errors.New("polycache: adapter is required")
	}
	return &Cache{a: a}, nil
}

// Adapter exposes the wrapped adapter for callers that need the raw
// contract.
func (c *Cache) Adapter() adapter.Adapter { return c.a }

func validateKey(key string) error {
	if key == "" {
		return &InvalidKeyError{Key: key, Reason: "key must not be empty"}
	}
	if strings.ContainsAny(key, reservedKeyChars) {
		return &InvalidKeyError{Key: key, Reason: "key must not contain " + reservedKeyChars}
	}
	return nil
}

func validateKeys(keys []string) error {
	for _, k := range keys {
		if err := validateKey(k); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether a live entry exists for key.
func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	return c.a.Has(ctx, key)
}

// Get returns the stored value for key, or def when the key misses.
func (c *Cache) Get(ctx context.Context, key string, def any) (any, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	v, ok, err := c.a.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// Set stores value under key. A resolved TTL of zero or less deletes the
// key instead.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl adapter.TTL) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	return c.a.Set(ctx, key, value, ttl)
}

// SetForever stores value with no expiration.
func (c *Cache) SetForever(ctx context.Context, key string, value any) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	return c.a.SetForever(ctx, key, value)
}

// Delete removes key. Deleting an absent key is still success.
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	return c.a.Delete(ctx, key)
}

// DeleteMultiple removes every key; true only when every delete succeeded.
func (c *Cache) DeleteMultiple(ctx context.Context, keys []string) (bool, error) {
	if err := validateKeys(keys); err != nil {
		return false, err
	}
	all := true
	for _, k := range keys {
		ok, err := c.a.Delete(ctx, k)
		if err != nil {
			return false, err
		}
		if !ok {
			all = false
		}
	}
	return all, nil
}

// GetMultiple fetches several keys, def standing in for misses. Every
// requested key is present in the result.
func (c *Cache) GetMultiple(ctx context.Context, keys []string, def any) (map[string]any, error) {
	if err := validateKeys(keys); err != nil {
		return nil, err
	}
	return c.a.GetMultiple(ctx, keys, def)
}

// SetMultiple stores every pair; true only when every set succeeded.
func (c *Cache) SetMultiple(ctx context.Context, values map[string]any, ttl adapter.TTL) (bool, error) {
	for k := range values {
		if err := validateKey(k); err != nil {
			return false, err
		}
	}
	return c.a.SetMultiple(ctx, values, ttl)
}

// Increment adds step to the counter at key, creating it at step when
// absent. ok=false reports a non-numeric stored value or backend failure.
func (c *Cache) Increment(ctx context.Context, key string, step int64) (int64, bool, error) {
	if err := validateKey(key); err != nil {
		return 0, false, err
	}
	return c.a.Increment(ctx, key, step)
}

// Decrement subtracts step from the counter at key, creating it at -step
// when absent.
func (c *Cache) Decrement(ctx context.Context, key string, step int64) (int64, bool, error) {
	if err := validateKey(key); err != nil {
		return 0, false, err
	}
	return c.a.Decrement(ctx, key, step)
}

// Clear removes every entry owned by the adapter's prefix.
func (c *Cache) Clear(ctx context.Context) (bool, error) {
	return c.a.Clear(ctx)
}

// Close releases the adapter's backend connection.
func (c *Cache) Close(ctx context.Context) error {
	return c.a.Close(ctx)
}
