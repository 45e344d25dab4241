// Package adapter defines the uniform cache contract implemented by every
// backend, plus the option/TTL/prefix/event plumbing the backends share.
//
// Backends live in subpackages (memory, stream, redis, memcached, shm, lfu)
// and self-register by name in an init function, so constructing by name
// only needs a blank import of the backend package:
//
//	import (
//	    "github.com/unkn0wn-root/polycache/adapter"
//	    _ "github.com/unkn0wn-root/polycache/adapter/redis"
//	)
//
//	a, err := adapter.New("redis", adapter.Options{Prefix: "app-"})
//
// Error policy: construction and connection bring-up failures return typed
// errors (*ConfigError, *ConnError). Steady-state backend failures degrade:
// reads report a miss, writes report ok=false, and the adapter logs the
// cause. A cache outage must never abort the caller's business logic.
package adapter

import (
	"context"
	"sort"
	"sync"
)

// Adapter is one backend-specific implementation of the cache contract.
//
// Keys are raw caller keys; every implementation prepends its configured
// prefix before touching the backend, so two adapters with different
// prefixes never collide on a shared store.
//
// An Adapter is not safe for concurrent use from multiple goroutines unless
// the backend client underneath is; callers either dedicate an adapter per
// goroutine or serialize access.
type Adapter interface {
	// Has reports whether a live (non-expired) entry exists for key.
	Has(ctx context.Context, key string) (bool, error)

	// Get returns the deserialized value. ok=false reports a miss,
	// distinguishable from a stored nil.
	Get(ctx context.Context, key string) (v any, ok bool, err error)

	// Set stores value under key. A resolved TTL of zero or less deletes
	// the key instead of storing it.
	Set(ctx context.Context, key string, value any, ttl TTL) (bool, error)

	// SetForever stores value with no expiration.
	SetForever(ctx context.Context, key string, value any) (bool, error)

	// Delete removes key. Idempotent: deleting an absent key reports true.
	Delete(ctx context.Context, key string) (bool, error)

	// Increment adds step to the counter at key, creating it at step when
	// absent. ok=false reports a non-numeric stored value or backend
	// failure. Atomic where the backend has native counters.
	Increment(ctx context.Context, key string, step int64) (int64, bool, error)

	// Decrement subtracts step from the counter at key, creating it at
	// -step when absent.
	Decrement(ctx context.Context, key string, step int64) (int64, bool, error)

	// Clear removes every entry owned by this adapter's prefix. Backends
	// without prefix-scoped bulk delete may flush the whole store and
	// document it. Idempotent: clearing an empty store reports true.
	Clear(ctx context.Context) (bool, error)

	// Keys enumerates raw keys (own prefix already stripped) that start
	// with the given sub-prefix. Order is unspecified.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// GetMultiple fetches several keys, one round trip where the backend
	// has a native multi-get. Every requested key is present in the result,
	// def standing in for misses. Go maps are unordered; range over your
	// own keys slice when traversal order matters.
	GetMultiple(ctx context.Context, keys []string, def any) (map[string]any, error)

	// SetMultiple stores every pair; reports true only when every
	// individual set succeeded.
	SetMultiple(ctx context.Context, values map[string]any, ttl TTL) (bool, error)

	// Prefix returns this adapter's key prefix.
	Prefix() string

	// Close releases the backend connection, if one was opened.
	Close(ctx context.Context) error
}

// Factory builds an adapter from options.
type Factory func(opts Options) (Adapter, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes an adapter available under name. Backend packages call it
// from init. Registering a nil factory or the same name twice panics.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("polycache: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("polycache: Register called twice for adapter " + name)
	}
	registry[name] = f
}

// New constructs the named adapter. Unknown names fail with *ConfigError;
// the backend connection itself is opened lazily on first use, not here.
func New(name string, opts Options) (Adapter, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &ConfigError{Adapter: name, Reason: "unknown adapter (missing blank import of the backend package?)"}
	}
	return f(opts)
}

// Adapters lists the registered backend names, sorted.
func Adapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
