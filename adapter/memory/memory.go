// Package memory implements the cache contract on an in-process map.
//
// TTLs are tracked as absolute expiry timestamps and checked lazily on
// read: an expired entry is treated as absent and purged when touched.
// The store is exclusively owned by its adapter, so Clear drops the whole
// map, which is exactly this adapter's prefix and nothing else.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/polycache/adapter"
)

func init() {
	adapter.Register("memory", func(opts adapter.Options) (adapter.Adapter, error) {
		return New(opts)
	})
}

type entry struct {
	payload   []byte
	expiresAt time.Time // zero => no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is the in-process backend. Safe for concurrent use.
type Memory struct {
	adapter.Base
	mu    sync.Mutex
	store map[string]entry
}

var _ adapter.Adapter = (*Memory)(nil)

func New(opts adapter.Options) (*Memory, error) {
	base, err := adapter.NewBase("memory", "pc-memo-", opts)
	if err != nil {
		return nil, err
	}
	return &Memory{Base: base, store: make(map[string]entry)}, nil
}

// lookup returns the live entry for a storage key, lazily purging it when
// expired. Callers hold mu.
func (m *Memory) lookup(k string) (entry, bool) {
	e, ok := m.store[k]
	if !ok {
		return entry{}, false
	}
	if e.expired(time.Now()) {
		delete(m.store, k)
		return entry{}, false
	}
	return e, true
}

func (m *Memory) Has(_ context.Context, key string) (bool, error) {
	m.EmitBefore(adapter.OpHas, key)
	m.mu.Lock()
	_, ok := m.lookup(m.PrefixedKey(key))
	m.mu.Unlock()
	m.EmitAfter(adapter.OpHas, key)
	return ok, nil
}

func (m *Memory) Get(_ context.Context, key string) (any, bool, error) {
	m.EmitBefore(adapter.OpGet, key)
	defer m.EmitAfter(adapter.OpGet, key)

	m.mu.Lock()
	e, ok := m.lookup(m.PrefixedKey(key))
	m.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	v, err := m.Unserialize(e.payload)
	if err != nil {
		m.Swallow(adapter.OpGet, key, err)
		return nil, false, nil
	}
	return v, true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value any, ttl adapter.TTL) (bool, error) {
	d := m.ResolveTTL(ttl)
	if d <= 0 {
		return m.Delete(ctx, key)
	}
	return m.put(key, value, time.Now().Add(d))
}

func (m *Memory) SetForever(_ context.Context, key string, value any) (bool, error) {
	return m.put(key, value, time.Time{})
}

func (m *Memory) put(key string, value any, expiresAt time.Time) (bool, error) {
	m.EmitBefore(adapter.OpSet, key)
	defer m.EmitAfter(adapter.OpSet, key)

	p, err := m.Serialize(value)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	m.store[m.PrefixedKey(key)] = entry{payload: p, expiresAt: expiresAt}
	m.mu.Unlock()
	return true, nil
}

func (m *Memory) Delete(_ context.Context, key string) (bool, error) {
	m.EmitBefore(adapter.OpDelete, key)
	m.mu.Lock()
	delete(m.store, m.PrefixedKey(key))
	m.mu.Unlock()
	m.EmitAfter(adapter.OpDelete, key)
	return true, nil
}

func (m *Memory) Increment(_ context.Context, key string, step int64) (int64, bool, error) {
	return m.add(adapter.OpIncrement, key, step)
}

func (m *Memory) Decrement(_ context.Context, key string, step int64) (int64, bool, error) {
	return m.add(adapter.OpDecrement, key, -step)
}

func (m *Memory) add(op adapter.Op, key string, delta int64) (int64, bool, error) {
	m.EmitBefore(op, key)
	defer m.EmitAfter(op, key)

	m.mu.Lock()
	defer m.mu.Unlock()

	k := m.PrefixedKey(key)
	e, ok := m.lookup(k)
	if !ok {
		// fresh counter starts at the delta itself
		m.store[k] = entry{
			payload:   adapter.FormatCounter(delta),
			expiresAt: time.Now().Add(m.DefaultTTL()),
		}
		return delta, true, nil
	}
	cur, numeric := adapter.ParseCounter(e.payload)
	if !numeric {
		return 0, false, nil
	}
	next := cur + delta
	e.payload = adapter.FormatCounter(next)
	m.store[k] = e
	return next, true, nil
}

func (m *Memory) Clear(_ context.Context) (bool, error) {
	m.mu.Lock()
	m.store = make(map[string]entry)
	m.mu.Unlock()
	return true, nil
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for k, e := range m.store {
		if e.expired(now) {
			delete(m.store, k)
			continue
		}
		raw, ok := m.StripPrefix(k)
		if !ok || !strings.HasPrefix(raw, prefix) {
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}

func (m *Memory) GetMultiple(ctx context.Context, keys []string, def any) (map[string]any, error) {
	return adapter.GetMultipleSerial(ctx, m, keys, def)
}

func (m *Memory) SetMultiple(ctx context.Context, values map[string]any, ttl adapter.TTL) (bool, error) {
	return adapter.SetMultipleSerial(ctx, m, values, ttl)
}

func (m *Memory) Close(context.Context) error { return nil }
