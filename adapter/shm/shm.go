// Package shm implements the cache contract on an APCu-style shared
// in-process segment backed by bigcache: zero-GC storage sharded across
// goroutine-safe segments, sized for many small entries.
//
// bigcache has no per-entry TTL, so entries carry the internal/entry
// framing: the expiry travels in a header ahead of the payload and is
// checked lazily on read, with expired entries purged when touched. The
// segment is exclusively owned by its adapter, so Clear resets the whole
// segment, which is exactly this adapter's prefix.
//
// Counters are guarded by an adapter-level mutex: atomic within the
// process, which is the scope of the backend itself.
package shm

import (
	"context"
	"strings"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/polycache/adapter"
	"github.com/unkn0wn-root/polycache/internal/entry"
)

func init() {
	adapter.Register("shm", func(opts adapter.Options) (adapter.Adapter, error) {
		return New(opts)
	})
}

// Shm is the bigcache backend.
type Shm struct {
	adapter.Base
	mu sync.Mutex // counters only
	c  *bc.BigCache
}

var _ adapter.Adapter = (*Shm)(nil)

func New(opts adapter.Options) (*Shm, error) {
	base, err := adapter.NewBase("shm", "pc-shm-", opts)
	if err != nil {
		return nil, err
	}

	conf := bc.DefaultConfig(72 * time.Hour)
	// Expiry is enforced lazily through the entry framing; no background
	// sweep goroutine.
	conf.CleanWindow = 0
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, &adapter.ConfigError{Adapter: "shm", Reason: "creating segment", Err: err}
	}
	return &Shm{Base: base, c: c}, nil
}

// lookup returns the live framed entry for a storage key, lazily purging it
// when expired or corrupt.
func (s *Shm) lookup(k string) (entry.Entry, bool) {
	b, err := s.c.Get(k)
	if err != nil {
		return entry.Entry{}, false
	}
	e, err := entry.Decode(b)
	if err != nil {
		_ = s.c.Delete(k) // self-heal corrupt
		return entry.Entry{}, false
	}
	if e.Expired(time.Now()) {
		_ = s.c.Delete(k)
		return entry.Entry{}, false
	}
	return e, true
}

func (s *Shm) Has(_ context.Context, key string) (bool, error) {
	s.EmitBefore(adapter.OpHas, key)
	_, ok := s.lookup(s.PrefixedKey(key))
	s.EmitAfter(adapter.OpHas, key)
	return ok, nil
}

func (s *Shm) Get(_ context.Context, key string) (any, bool, error) {
	s.EmitBefore(adapter.OpGet, key)
	defer s.EmitAfter(adapter.OpGet, key)

	e, ok := s.lookup(s.PrefixedKey(key))
	if !ok {
		return nil, false, nil
	}
	v, err := s.Unserialize(e.Payload)
	if err != nil {
		s.Swallow(adapter.OpGet, key, err)
		return nil, false, nil
	}
	return v, true, nil
}

func (s *Shm) Set(ctx context.Context, key string, value any, ttl adapter.TTL) (bool, error) {
	d := s.ResolveTTL(ttl)
	if d <= 0 {
		return s.Delete(ctx, key)
	}
	return s.put(key, value, time.Now().Add(d))
}

func (s *Shm) SetForever(_ context.Context, key string, value any) (bool, error) {
	return s.put(key, value, time.Time{})
}

func (s *Shm) put(key string, value any, expiresAt time.Time) (bool, error) {
	s.EmitBefore(adapter.OpSet, key)
	defer s.EmitAfter(adapter.OpSet, key)

	p, err := s.Serialize(value)
	if err != nil {
		return false, err
	}
	if err := s.c.Set(s.PrefixedKey(key), entry.Encode(expiresAt, p)); err != nil {
		s.Swallow(adapter.OpSet, key, err)
		return false, nil
	}
	return true, nil
}

func (s *Shm) Delete(_ context.Context, key string) (bool, error) {
	s.EmitBefore(adapter.OpDelete, key)
	defer s.EmitAfter(adapter.OpDelete, key)

	err := s.c.Delete(s.PrefixedKey(key))
	if err != nil && err != bc.ErrEntryNotFound {
		s.Swallow(adapter.OpDelete, key, err)
		return false, nil
	}
	return true, nil
}

func (s *Shm) Increment(_ context.Context, key string, step int64) (int64, bool, error) {
	return s.add(adapter.OpIncrement, key, step)
}

func (s *Shm) Decrement(_ context.Context, key string, step int64) (int64, bool, error) {
	return s.add(adapter.OpDecrement, key, -step)
}

func (s *Shm) add(op adapter.Op, key string, delta int64) (int64, bool, error) {
	s.EmitBefore(op, key)
	defer s.EmitAfter(op, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.PrefixedKey(key)
	e, ok := s.lookup(k)
	if !ok {
		next := delta
		framed := entry.Encode(time.Now().Add(s.DefaultTTL()), adapter.FormatCounter(next))
		if err := s.c.Set(k, framed); err != nil {
			s.Swallow(op, key, err)
			return 0, false, nil
		}
		return next, true, nil
	}
	cur, numeric := adapter.ParseCounter(e.Payload)
	if !numeric {
		return 0, false, nil
	}
	next := cur + delta
	if err := s.c.Set(k, entry.Encode(e.ExpiresAt, adapter.FormatCounter(next))); err != nil {
		s.Swallow(op, key, err)
		return 0, false, nil
	}
	return next, true, nil
}

func (s *Shm) Clear(context.Context) (bool, error) {
	if err := s.c.Reset(); err != nil {
		s.Swallow(adapter.OpDelete, "", err)
		return false, nil
	}
	return true, nil
}

func (s *Shm) Keys(_ context.Context, prefix string) ([]string, error) {
	now := time.Now()
	var out []string

	it := s.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue
		}
		raw, ok := s.StripPrefix(info.Key())
		if !ok || !strings.HasPrefix(raw, prefix) {
			continue
		}
		expiresAt, _, err := entry.ParseHeader(info.Value())
		if err != nil {
			continue
		}
		if !expiresAt.IsZero() && now.After(expiresAt) {
			_ = s.c.Delete(info.Key())
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}

func (s *Shm) GetMultiple(ctx context.Context, keys []string, def any) (map[string]any, error) {
	return adapter.GetMultipleSerial(ctx, s, keys, def)
}

func (s *Shm) SetMultiple(ctx context.Context, values map[string]any, ttl adapter.TTL) (bool, error) {
	return adapter.SetMultipleSerial(ctx, s, values, ttl)
}

func (s *Shm) Close(context.Context) error { return s.c.Close() }
