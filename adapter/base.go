package adapter

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/unkn0wn-root/polycache/serializer"
)

// Base carries the plumbing every backend composes: key prefix, resolved
// serializer, default TTL, logger and event listener. Construct with
// NewBase; the zero value is not usable.
type Base struct {
	name       string
	prefix     string
	ser        serializer.Serializer
	serName    string
	defaultTTL time.Duration
	log        Logger
	listener   Listener
}

// NewBase resolves the shared options for the named backend. The serializer
// name is resolved eagerly so an unsupported name fails at construction,
// not at first use. When opts.NativeSerializer is set the none/passthrough
// codec is pinned regardless of DefaultSerializer, leaving serialization to
// the backend client.
func NewBase(name, defaultPrefix string, opts Options) (Base, error) {
	factory := opts.Serializers
	if factory == nil {
		factory = serializer.NewFactory()
	}

	serName := coalesce(opts.DefaultSerializer, serializer.Gob)
	if opts.NativeSerializer {
		serName = serializer.None
	}
	ser, err := factory.New(serName)
	if err != nil {
		return Base{}, &ConfigError{Adapter: name, Reason: "resolving serializer", Err: err}
	}

	return Base{
		name:       name,
		prefix:     coalesce(opts.Prefix, defaultPrefix),
		ser:        ser,
		serName:    serName,
		defaultTTL: coalesce(opts.DefaultTTL, DefaultLifetime),
		log:        coalesce[Logger](opts.Logger, NopLogger{}),
		listener:   coalesce[Listener](opts.Listener, NopListener{}),
	}, nil
}

func (b *Base) Prefix() string                    { return b.prefix }
func (b *Base) SerializerName() string            { return b.serName }
func (b *Base) Serializer() serializer.Serializer { return b.ser }
func (b *Base) DefaultTTL() time.Duration         { return b.defaultTTL }
func (b *Base) Logger() Logger                    { return b.log }

// PrefixedKey maps a raw caller key to its backend storage key.
func (b *Base) PrefixedKey(key string) string { return b.prefix + key }

// StripPrefix recovers the raw key from a storage key. ok=false when the
// storage key belongs to a different namespace.
func (b *Base) StripPrefix(storageKey string) (string, bool) {
	if !strings.HasPrefix(storageKey, b.prefix) {
		return "", false
	}
	return storageKey[len(b.prefix):], true
}

// ResolveTTL applies the adapter default to an unset TTL.
func (b *Base) ResolveTTL(t TTL) time.Duration { return t.Resolve(b.defaultTTL) }

// Serialize encodes v with the adapter's serializer.
func (b *Base) Serialize(v any) ([]byte, error) { return b.ser.Serialize(v) }

// Unserialize decodes a stored payload.
func (b *Base) Unserialize(p []byte) (any, error) { return b.ser.Unserialize(p) }

// EmitBefore/EmitAfter notify the listener around an operation. key is the
// raw caller key.
func (b *Base) EmitBefore(op Op, key string) { b.listener.Before(Event{Op: op, Key: key}) }
func (b *Base) EmitAfter(op Op, key string)  { b.listener.After(Event{Op: op, Key: key}) }

// Swallow logs a steady-state backend failure that is being degraded into a
// miss/false return.
func (b *Base) Swallow(op Op, key string, err error) {
	b.log.Warn("backend operation failed", Fields{
		"adapter": b.name,
		"op":      string(op),
		"key":     key,
		"err":     err,
	})
}

// Counters are stored as raw base-10 integer payloads, the representation
// Redis and Memcached natively increment. ParseCounter rejects anything
// else, which is how a non-numeric stored value surfaces as ok=false.

func ParseCounter(p []byte) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(string(p)), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func FormatCounter(n int64) []byte {
	return []byte(strconv.FormatInt(n, 10))
}

// GetMultipleSerial is the fallback multi-get for backends without a native
// one: repeated single-key gets, def filling misses. Runs in input key
// order.
func GetMultipleSerial(ctx context.Context, a Adapter, keys []string, def any) (map[string]any, error) {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		v, ok, err := a.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			v = def
		}
		out[k] = v
	}
	return out, nil
}

// SetMultipleSerial stores pairs one by one; true only when every set
// succeeded.
func SetMultipleSerial(ctx context.Context, a Adapter, values map[string]any, ttl TTL) (bool, error) {
	all := true
	for k, v := range values {
		ok, err := a.Set(ctx, k, v, ttl)
		if err != nil {
			return false, err
		}
		if !ok {
			all = false
		}
	}
	return all, nil
}
