// Package memcached implements the cache contract on Memcached via
// bradfitz/gomemcache.
//
// Documented backend limitations:
//   - Memcached cannot enumerate keys, so Keys always returns nil.
//   - There is no prefix-scoped bulk delete, so Clear flushes the whole
//     instance (every prefix), per the contract's allowance.
//   - Counters are memcached's native unsigned counters: steps must be
//     positive, and a decrement below zero floors at zero. A missing key is
//     seeded with an explicit store instead.
package memcached

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/unkn0wn-root/polycache/adapter"
)

func init() {
	adapter.Register("memcached", func(opts adapter.Options) (adapter.Adapter, error) {
		return New(opts)
	})
}

const defaultPort = 11211

// Memcached is the gomemcache backend.
type Memcached struct {
	adapter.Base
	opts adapter.Options
	addr string

	mu      sync.Mutex
	client  *memcache.Client
	connErr error
}

var _ adapter.Adapter = (*Memcached)(nil)

func New(opts adapter.Options) (*Memcached, error) {
	base, err := adapter.NewBase("memcached", "pc-memc-", opts)
	if err != nil {
		return nil, err
	}
	addr := opts.Addr(defaultPort)
	if opts.Socket != "" {
		addr = opts.Socket
	}
	return &Memcached{Base: base, opts: opts, addr: addr}, nil
}

// conn opens and verifies the client on first use. Bring-up failures are
// sticky; construct a new adapter to retry.
func (m *Memcached) conn() (*memcache.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connErr != nil {
		return nil, m.connErr
	}
	if m.client != nil {
		return m.client, nil
	}

	client := memcache.New(m.addr)
	if t := coalesceDur(m.opts.ConnectTimeout, m.opts.Timeout); t > 0 {
		client.Timeout = t
	}
	if m.opts.Persistent {
		client.MaxIdleConns = 16
	}
	if err := client.Ping(); err != nil {
		m.connErr = &adapter.ConnError{
			Backend: "memcached",
			Addr:    m.addr,
			Stage:   "connect",
			Err:     err,
		}
		return nil, m.connErr
	}
	m.client = client
	return client, nil
}

func coalesceDur(a, b time.Duration) time.Duration {
	if a > 0 {
		return a
	}
	return b
}

func (m *Memcached) Has(ctx context.Context, key string) (bool, error) {
	m.EmitBefore(adapter.OpHas, key)
	defer m.EmitAfter(adapter.OpHas, key)

	c, err := m.conn()
	if err != nil {
		return false, err
	}
	_, err = c.Get(m.PrefixedKey(key))
	if err == memcache.ErrCacheMiss {
		return false, nil
	}
	if err != nil {
		m.Swallow(adapter.OpHas, key, err)
		return false, nil
	}
	return true, nil
}

func (m *Memcached) Get(ctx context.Context, key string) (any, bool, error) {
	m.EmitBefore(adapter.OpGet, key)
	defer m.EmitAfter(adapter.OpGet, key)

	c, err := m.conn()
	if err != nil {
		return nil, false, err
	}
	it, err := c.Get(m.PrefixedKey(key))
	if err == memcache.ErrCacheMiss {
		return nil, false, nil
	}
	if err != nil {
		m.Swallow(adapter.OpGet, key, err)
		return nil, false, nil
	}
	v, err := m.Unserialize(it.Value)
	if err != nil {
		m.Swallow(adapter.OpGet, key, err)
		return nil, false, nil
	}
	return v, true, nil
}

func (m *Memcached) Set(ctx context.Context, key string, value any, ttl adapter.TTL) (bool, error) {
	d := m.ResolveTTL(ttl)
	if d <= 0 {
		return m.Delete(ctx, key)
	}
	return m.put(key, value, int32(d/time.Second))
}

func (m *Memcached) SetForever(_ context.Context, key string, value any) (bool, error) {
	return m.put(key, value, 0) // 0 = no expiration for memcached
}

func (m *Memcached) put(key string, value any, expSeconds int32) (bool, error) {
	m.EmitBefore(adapter.OpSet, key)
	defer m.EmitAfter(adapter.OpSet, key)

	c, err := m.conn()
	if err != nil {
		return false, err
	}
	p, err := m.Serialize(value)
	if err != nil {
		return false, err
	}
	if err := c.Set(&memcache.Item{
		Key:        m.PrefixedKey(key),
		Value:      p,
		Expiration: expSeconds,
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memcached) Delete(_ context.Context, key string) (bool, error) {
	m.EmitBefore(adapter.OpDelete, key)
	defer m.EmitAfter(adapter.OpDelete, key)

	c, err := m.conn()
	if err != nil {
		return false, err
	}
	err = c.Delete(m.PrefixedKey(key))
	if err != nil && err != memcache.ErrCacheMiss {
		m.Swallow(adapter.OpDelete, key, err)
		return false, nil
	}
	return true, nil
}

func (m *Memcached) Increment(_ context.Context, key string, step int64) (int64, bool, error) {
	m.EmitBefore(adapter.OpIncrement, key)
	defer m.EmitAfter(adapter.OpIncrement, key)
	return m.counter(adapter.OpIncrement, key, step)
}

func (m *Memcached) Decrement(_ context.Context, key string, step int64) (int64, bool, error) {
	m.EmitBefore(adapter.OpDecrement, key)
	defer m.EmitAfter(adapter.OpDecrement, key)
	return m.counter(adapter.OpDecrement, key, -step)
}

func (m *Memcached) counter(op adapter.Op, key string, delta int64) (int64, bool, error) {
	c, err := m.conn()
	if err != nil {
		return 0, false, err
	}
	k := m.PrefixedKey(key)

	var n uint64
	if delta >= 0 {
		n, err = c.Increment(k, uint64(delta))
	} else {
		n, err = c.Decrement(k, uint64(-delta))
	}
	if err == memcache.ErrCacheMiss {
		// native counters cannot create; seed explicitly
		seed := delta
		if err := c.Add(&memcache.Item{
			Key:        k,
			Value:      adapter.FormatCounter(seed),
			Expiration: int32(m.DefaultTTL() / time.Second),
		}); err != nil {
			if err == memcache.ErrNotStored {
				// lost the seeding race; retry the native op once
				return m.counter(op, key, delta)
			}
			m.Swallow(op, key, err)
			return 0, false, nil
		}
		return seed, true, nil
	}
	if err != nil {
		// non-numeric stored value or protocol failure
		m.Swallow(op, key, err)
		return 0, false, nil
	}
	return int64(n), true, nil
}

// Clear flushes the entire memcached instance: the protocol offers no
// prefix-scoped bulk delete.
func (m *Memcached) Clear(context.Context) (bool, error) {
	c, err := m.conn()
	if err != nil {
		return false, err
	}
	if err := c.FlushAll(); err != nil {
		m.Swallow(adapter.OpDelete, "", err)
		return false, nil
	}
	return true, nil
}

// Keys always returns nil: memcached cannot enumerate keys.
func (m *Memcached) Keys(context.Context, string) ([]string, error) {
	return nil, nil
}

func (m *Memcached) GetMultiple(ctx context.Context, keys []string, def any) (map[string]any, error) {
	c, err := m.conn()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return map[string]any{}, nil
	}

	storage := make([]string, len(keys))
	for i, k := range keys {
		storage[i] = m.PrefixedKey(k)
		m.EmitBefore(adapter.OpGet, k)
	}
	defer func() {
		for _, k := range keys {
			m.EmitAfter(adapter.OpGet, k)
		}
	}()

	items, err := c.GetMulti(storage)
	if err != nil {
		m.Swallow(adapter.OpGet, strings.Join(keys, ","), err)
		return adapter.GetMultipleSerial(ctx, m, keys, def)
	}

	out := make(map[string]any, len(keys))
	for i, k := range keys {
		out[k] = def
		it, ok := items[storage[i]]
		if !ok {
			continue
		}
		v, err := m.Unserialize(it.Value)
		if err != nil {
			m.Swallow(adapter.OpGet, k, err)
			continue
		}
		out[k] = v
	}
	return out, nil
}

func (m *Memcached) SetMultiple(ctx context.Context, values map[string]any, ttl adapter.TTL) (bool, error) {
	return adapter.SetMultipleSerial(ctx, m, values, ttl)
}

// Close is a no-op: gomemcache pools connections internally and exposes no
// shutdown.
func (m *Memcached) Close(context.Context) error { return nil }
