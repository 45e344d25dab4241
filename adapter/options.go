package adapter

import (
	"crypto/tls"
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"

	"github.com/unkn0wn-root/polycache/serializer"
)

// DefaultLifetime is the TTL applied when neither the options nor the call
// supply one.
const DefaultLifetime = time.Hour

// Options configures an adapter. Zero fields fall back to documented
// defaults; fields not recognized by a backend are ignored by it. Options
// are read once at construction and never again.
type Options struct {
	// Network backends.
	Host           string        `env:"HOST"`            // default 127.0.0.1
	Port           int           `env:"PORT"`            // default per backend (redis 6379, memcached 11211)
	Socket         string        `env:"SOCKET"`          // unix socket path; overrides Host/Port where supported
	Index          int           `env:"INDEX"`           // redis logical database
	Auth           string        `env:"AUTH"`            // password
	Timeout        time.Duration `env:"TIMEOUT"`         // per-operation timeout
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT"` // connection bring-up timeout
	ReadTimeout    time.Duration `env:"READ_TIMEOUT"`
	RetryInterval  time.Duration `env:"RETRY_INTERVAL"`
	Persistent     bool          `env:"PERSISTENT"`    // keep connections pooled across requests
	PersistentID   string        `env:"PERSISTENT_ID"` // pool identity for persistent connections
	SSL            bool          `env:"SSL"`           // enable TLS with default config
	TLS            *tls.Config   `env:"-"`             // explicit TLS config; implies SSL

	// Cache-wide.
	Prefix            string        `env:"PREFIX"` // key namespace; default per backend
	DefaultSerializer string        `env:"DEFAULT_SERIALIZER"`
	DefaultTTL        time.Duration `env:"DEFAULT_TTL"`
	// NativeSerializer lets the backend client own serialization: the core
	// pins the none/passthrough codec so values reach the client raw and are
	// never double-encoded.
	NativeSerializer bool `env:"NATIVE_SERIALIZER"`

	// Stream backend.
	StorageDir string `env:"STORAGE_DIR"`

	// Shared plumbing; never read from the environment.
	Serializers *serializer.Factory `env:"-"`
	Logger      Logger              `env:"-"`
	Listener    Listener            `env:"-"`
}

// OptionsFromEnv builds Options from environment variables. Every field's
// variable name is prefixed, e.g. OptionsFromEnv("CACHE_") reads CACHE_HOST,
// CACHE_PORT, CACHE_DEFAULT_TTL and so on.
func OptionsFromEnv(prefix string) (Options, error) {
	var o Options
	if err := env.ParseWithOptions(&o, env.Options{Prefix: prefix}); err != nil {
		return Options{}, err
	}
	return o, nil
}

// Addr resolves the backend address from Host/Port with defaults applied.
func (o Options) Addr(defaultPort int) string {
	host := coalesce(o.Host, "127.0.0.1")
	port := coalesce(o.Port, defaultPort)
	return fmt.Sprintf("%s:%d", host, port)
}

// TLSConfig returns the effective TLS configuration, or nil when TLS is off.
func (o Options) TLSConfig() *tls.Config {
	if o.TLS != nil {
		return o.TLS
	}
	if o.SSL {
		return &tls.Config{}
	}
	return nil
}

// coalesce returns def when v is the zero value of T, otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
