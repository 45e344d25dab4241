package serializer

import "fmt"

// Limit wraps another serializer to enforce a maximum allowed payload size
// at Unserialize time. Serialize is forwarded to Inner unchanged.
// If MaxUnserialize <= 0, size limiting is disabled.
//
// Typical use: protect against oversized payloads coming back from a shared
// backend that other processes also write to.
type Limit struct {
	// Inner is the underlying serializer being wrapped. It must be set.
	Inner Serializer
	// MaxUnserialize is the maximum permitted length (in bytes) of the
	// incoming payload for Unserialize. Longer payloads return an error
	// without invoking Inner.
	MaxUnserialize int
}

func (l Limit) Serialize(v any) ([]byte, error) { return l.Inner.Serialize(v) }

func (l Limit) Unserialize(b []byte) (any, error) {
	if l.MaxUnserialize > 0 && len(b) > l.MaxUnserialize {
		return nil, fmt.Errorf("polycache: payload too large: %d > %d", len(b), l.MaxUnserialize)
	}
	return l.Inner.Unserialize(b)
}
