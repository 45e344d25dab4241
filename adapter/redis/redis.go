// Package redis implements the cache contract on Redis via go-redis.
//
// The connection is opened lazily on first use and verified through a
// staged pipeline (connect, auth, select); each stage failing surfaces as a
// typed *adapter.ConnError carrying the backend address. There is no
// reconnect-on-failure: once bring-up fails the adapter keeps failing and a
// new instance must be constructed to retry.
//
// Multi-get uses a single MGET round trip. Counters use native INCRBY and
// DECRBY, so they are atomic across processes.
package redis

import (
	"context"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/polycache/adapter"
)

func init() {
	adapter.Register("redis", func(opts adapter.Options) (adapter.Adapter, error) {
		return New(opts)
	})
}

const defaultPort = 6379

// Redis is the go-redis backend.
type Redis struct {
	adapter.Base
	opts adapter.Options
	addr string

	mu      sync.Mutex
	client  *goredis.Client
	connErr error // sticky bring-up failure
}

var _ adapter.Adapter = (*Redis)(nil)

func New(opts adapter.Options) (*Redis, error) {
	base, err := adapter.NewBase("redis", "pc-reds-", opts)
	if err != nil {
		return nil, err
	}
	addr := opts.Addr(defaultPort)
	if opts.Socket != "" {
		addr = opts.Socket
	}
	return &Redis{Base: base, opts: opts, addr: addr}, nil
}

// conn opens the client on first use. Bring-up failures are sticky: every
// later operation returns the same typed error until a fresh adapter is
// built.
func (r *Redis) conn(ctx context.Context) (*goredis.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connErr != nil {
		return nil, r.connErr
	}
	if r.client != nil {
		return r.client, nil
	}

	ro := &goredis.Options{
		Addr:            r.addr,
		Password:        r.opts.Auth,
		DB:              r.opts.Index,
		DialTimeout:     adapterTimeout(r.opts.ConnectTimeout, r.opts.Timeout),
		ReadTimeout:     r.opts.ReadTimeout,
		MinRetryBackoff: r.opts.RetryInterval,
		TLSConfig:       r.opts.TLSConfig(),
	}
	if r.opts.Socket != "" {
		ro.Network = "unix"
	}
	if !r.opts.Persistent {
		// drop idle connections quickly when pooling is not wanted
		ro.ConnMaxIdleTime = time.Second
	}
	if r.opts.PersistentID != "" {
		ro.ClientName = r.opts.PersistentID
	}

	client := goredis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		r.connErr = &adapter.ConnError{
			Backend: "redis",
			Addr:    r.addr,
			Stage:   stageOf(err),
			Err:     err,
		}
		return nil, r.connErr
	}
	r.client = client
	return client, nil
}

func adapterTimeout(connect, generic time.Duration) time.Duration {
	if connect > 0 {
		return connect
	}
	return generic
}

// stageOf classifies a bring-up failure into the setup stage it belongs to.
func stageOf(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NOAUTH"),
		strings.Contains(msg, "WRONGPASS"),
		strings.Contains(msg, "invalid password"),
		strings.Contains(msg, "Client sent AUTH"):
		return "auth"
	case strings.Contains(msg, "DB index"),
		strings.Contains(msg, "SELECT"):
		return "select"
	default:
		return "connect"
	}
}

func (r *Redis) Has(ctx context.Context, key string) (bool, error) {
	r.EmitBefore(adapter.OpHas, key)
	defer r.EmitAfter(adapter.OpHas, key)

	c, err := r.conn(ctx)
	if err != nil {
		return false, err
	}
	n, err := c.Exists(ctx, r.PrefixedKey(key)).Result()
	if err != nil {
		r.Swallow(adapter.OpHas, key, err)
		return false, nil
	}
	return n > 0, nil
}

func (r *Redis) Get(ctx context.Context, key string) (any, bool, error) {
	r.EmitBefore(adapter.OpGet, key)
	defer r.EmitAfter(adapter.OpGet, key)

	c, err := r.conn(ctx)
	if err != nil {
		return nil, false, err
	}
	b, err := c.Get(ctx, r.PrefixedKey(key)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		r.Swallow(adapter.OpGet, key, err)
		return nil, false, nil
	}
	v, err := r.Unserialize(b)
	if err != nil {
		r.Swallow(adapter.OpGet, key, err)
		return nil, false, nil
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl adapter.TTL) (bool, error) {
	d := r.ResolveTTL(ttl)
	if d <= 0 {
		return r.Delete(ctx, key)
	}
	return r.put(ctx, key, value, d)
}

func (r *Redis) SetForever(ctx context.Context, key string, value any) (bool, error) {
	return r.put(ctx, key, value, 0) // 0 = no expiration for go-redis SET
}

func (r *Redis) put(ctx context.Context, key string, value any, d time.Duration) (bool, error) {
	r.EmitBefore(adapter.OpSet, key)
	defer r.EmitAfter(adapter.OpSet, key)

	c, err := r.conn(ctx)
	if err != nil {
		return false, err
	}
	p, err := r.Serialize(value)
	if err != nil {
		return false, err
	}
	if err := c.Set(ctx, r.PrefixedKey(key), p, d).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) Delete(ctx context.Context, key string) (bool, error) {
	r.EmitBefore(adapter.OpDelete, key)
	defer r.EmitAfter(adapter.OpDelete, key)

	c, err := r.conn(ctx)
	if err != nil {
		return false, err
	}
	// deleting an absent key is still success
	if err := c.Del(ctx, r.PrefixedKey(key)).Err(); err != nil {
		r.Swallow(adapter.OpDelete, key, err)
		return false, nil
	}
	return true, nil
}

func (r *Redis) Increment(ctx context.Context, key string, step int64) (int64, bool, error) {
	r.EmitBefore(adapter.OpIncrement, key)
	defer r.EmitAfter(adapter.OpIncrement, key)

	c, err := r.conn(ctx)
	if err != nil {
		return 0, false, err
	}
	n, err := c.IncrBy(ctx, r.PrefixedKey(key), step).Result()
	if err != nil {
		// WRONGTYPE / non-integer value: type mismatch, not an outage
		r.Swallow(adapter.OpIncrement, key, err)
		return 0, false, nil
	}
	return n, true, nil
}

func (r *Redis) Decrement(ctx context.Context, key string, step int64) (int64, bool, error) {
	r.EmitBefore(adapter.OpDecrement, key)
	defer r.EmitAfter(adapter.OpDecrement, key)

	c, err := r.conn(ctx)
	if err != nil {
		return 0, false, err
	}
	n, err := c.DecrBy(ctx, r.PrefixedKey(key), step).Result()
	if err != nil {
		r.Swallow(adapter.OpDecrement, key, err)
		return 0, false, nil
	}
	return n, true, nil
}

// Clear deletes only this adapter's prefix: a SCAN over prefix* with
// batched DELs, never FLUSHDB.
func (r *Redis) Clear(ctx context.Context) (bool, error) {
	c, err := r.conn(ctx)
	if err != nil {
		return false, err
	}
	iter := c.Scan(ctx, 0, r.Prefix()+"*", 1000).Iterator()
	batch := make([]string, 0, 128)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := c.Del(ctx, batch...).Err()
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				r.Swallow(adapter.OpDelete, "", err)
				return false, nil
			}
		}
	}
	if err := iter.Err(); err != nil {
		r.Swallow(adapter.OpDelete, "", err)
		return false, nil
	}
	if err := flush(); err != nil {
		r.Swallow(adapter.OpDelete, "", err)
		return false, nil
	}
	return true, nil
}

func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	c, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	iter := c.Scan(ctx, 0, r.Prefix()+prefix+"*", 1000).Iterator()
	for iter.Next(ctx) {
		if raw, ok := r.StripPrefix(iter.Val()); ok {
			out = append(out, raw)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Redis) GetMultiple(ctx context.Context, keys []string, def any) (map[string]any, error) {
	c, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return map[string]any{}, nil
	}

	storage := make([]string, len(keys))
	for i, k := range keys {
		storage[i] = r.PrefixedKey(k)
		r.EmitBefore(adapter.OpGet, k)
	}
	defer func() {
		for _, k := range keys {
			r.EmitAfter(adapter.OpGet, k)
		}
	}()

	vals, err := c.MGet(ctx, storage...).Result()
	if err != nil {
		r.Swallow(adapter.OpGet, strings.Join(keys, ","), err)
		return adapter.GetMultipleSerial(ctx, r, keys, def)
	}

	out := make(map[string]any, len(keys))
	for i, k := range keys {
		out[k] = def
		raw, ok := vals[i].(string)
		if !ok {
			continue // nil = miss
		}
		v, err := r.Unserialize([]byte(raw))
		if err != nil {
			r.Swallow(adapter.OpGet, k, err)
			continue
		}
		out[k] = v
	}
	return out, nil
}

func (r *Redis) SetMultiple(ctx context.Context, values map[string]any, ttl adapter.TTL) (bool, error) {
	return adapter.SetMultipleSerial(ctx, r, values, ttl)
}

func (r *Redis) Close(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	if err != nil && err != goredis.ErrClosed {
		return err
	}
	return nil
}
