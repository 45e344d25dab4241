// Package lfu implements the cache contract on a bounded, cost-aware
// in-process store backed by ristretto. Use it when the working set must
// stay under a memory budget and frequency-based admission should decide
// what survives; entries may be rejected or evicted under pressure, so a
// successful Set does not guarantee a later hit.
//
// Documented backend limitations:
//   - ristretto cannot enumerate keys, so Keys always returns nil.
//   - Clear drops the whole store; it is exclusively owned by this adapter,
//     so that is exactly this adapter's prefix.
//
// Writes call Wait before returning so a Set is immediately visible to a
// following Get.
package lfu

import (
	"context"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/polycache/adapter"
)

func init() {
	adapter.Register("lfu", func(opts adapter.Options) (adapter.Adapter, error) {
		return New(opts)
	})
}

const (
	numCounters = 1e6
	maxCost     = 256 << 20 // 256 MiB of payload bytes
	bufferItems = 64
)

// LFU is the ristretto backend.
type LFU struct {
	adapter.Base
	mu sync.Mutex // counters only
	c  *rc.Cache
}

var _ adapter.Adapter = (*LFU)(nil)

func New(opts adapter.Options) (*LFU, error) {
	base, err := adapter.NewBase("lfu", "pc-lfu-", opts)
	if err != nil {
		return nil, err
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: bufferItems,
	})
	if err != nil {
		return nil, &adapter.ConfigError{Adapter: "lfu", Reason: "creating store", Err: err}
	}
	return &LFU{Base: base, c: c}, nil
}

// lookup returns the stored payload bytes for a storage key. ristretto
// enforces per-entry TTL natively, so no framing is needed here.
func (l *LFU) lookup(k string) ([]byte, bool) {
	v, ok := l.c.Get(k)
	if !ok {
		return nil, false
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		l.c.Del(k)
		return nil, false
	}
	return b, true
}

func (l *LFU) Has(_ context.Context, key string) (bool, error) {
	l.EmitBefore(adapter.OpHas, key)
	_, ok := l.lookup(l.PrefixedKey(key))
	l.EmitAfter(adapter.OpHas, key)
	return ok, nil
}

func (l *LFU) Get(_ context.Context, key string) (any, bool, error) {
	l.EmitBefore(adapter.OpGet, key)
	defer l.EmitAfter(adapter.OpGet, key)

	p, ok := l.lookup(l.PrefixedKey(key))
	if !ok {
		return nil, false, nil
	}
	v, err := l.Unserialize(p)
	if err != nil {
		l.Swallow(adapter.OpGet, key, err)
		return nil, false, nil
	}
	return v, true, nil
}

func (l *LFU) Set(ctx context.Context, key string, value any, ttl adapter.TTL) (bool, error) {
	d := l.ResolveTTL(ttl)
	if d <= 0 {
		return l.Delete(ctx, key)
	}
	return l.put(key, value, d)
}

func (l *LFU) SetForever(_ context.Context, key string, value any) (bool, error) {
	return l.put(key, value, 0) // 0 = no TTL for ristretto
}

func (l *LFU) put(key string, value any, d time.Duration) (bool, error) {
	l.EmitBefore(adapter.OpSet, key)
	defer l.EmitAfter(adapter.OpSet, key)

	p, err := l.Serialize(value)
	if err != nil {
		return false, err
	}
	ok := l.c.SetWithTTL(l.PrefixedKey(key), p, int64(len(p)), d)
	l.c.Wait()
	if !ok {
		// rejected by admission policy under pressure
		l.Logger().Debug("set rejected by admission policy", adapter.Fields{"key": key})
	}
	return ok, nil
}

func (l *LFU) Delete(_ context.Context, key string) (bool, error) {
	l.EmitBefore(adapter.OpDelete, key)
	l.c.Del(l.PrefixedKey(key))
	l.c.Wait()
	l.EmitAfter(adapter.OpDelete, key)
	return true, nil
}

func (l *LFU) Increment(_ context.Context, key string, step int64) (int64, bool, error) {
	return l.add(adapter.OpIncrement, key, step)
}

func (l *LFU) Decrement(_ context.Context, key string, step int64) (int64, bool, error) {
	return l.add(adapter.OpDecrement, key, -step)
}

func (l *LFU) add(op adapter.Op, key string, delta int64) (int64, bool, error) {
	l.EmitBefore(op, key)
	defer l.EmitAfter(op, key)

	l.mu.Lock()
	defer l.mu.Unlock()

	k := l.PrefixedKey(key)
	p, ok := l.lookup(k)
	if !ok {
		next := delta
		payload := adapter.FormatCounter(next)
		if !l.c.SetWithTTL(k, payload, int64(len(payload)), l.DefaultTTL()) {
			return 0, false, nil
		}
		l.c.Wait()
		return next, true, nil
	}
	cur, numeric := adapter.ParseCounter(p)
	if !numeric {
		return 0, false, nil
	}
	next := cur + delta
	payload := adapter.FormatCounter(next)
	if !l.c.SetWithTTL(k, payload, int64(len(payload)), l.DefaultTTL()) {
		return 0, false, nil
	}
	l.c.Wait()
	return next, true, nil
}

func (l *LFU) Clear(context.Context) (bool, error) {
	l.c.Clear()
	return true, nil
}

// Keys always returns nil: ristretto cannot enumerate keys.
func (l *LFU) Keys(context.Context, string) ([]string, error) {
	return nil, nil
}

func (l *LFU) GetMultiple(ctx context.Context, keys []string, def any) (map[string]any, error) {
	return adapter.GetMultipleSerial(ctx, l, keys, def)
}

func (l *LFU) SetMultiple(ctx context.Context, values map[string]any, ttl adapter.TTL) (bool, error) {
	return adapter.SetMultipleSerial(ctx, l, values, ttl)
}

func (l *LFU) Close(context.Context) error {
	l.c.Wait()
	l.c.Close()
	return nil
}
