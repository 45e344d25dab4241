package serializer

import (
	"bytes"
	"encoding/gob"
	"time"
)

func init() {
	// gob transmits interface values by concrete type name, so every type
	// that may flow through Serialize(any) needs registration up front.
	// Callers with their own types call RegisterType before first use.
	gob.Register(int(0))
	gob.Register(int8(0))
	gob.Register(int16(0))
	gob.Register(int32(0))
	gob.Register(int64(0))
	gob.Register(uint(0))
	gob.Register(uint8(0))
	gob.Register(uint16(0))
	gob.Register(uint32(0))
	gob.Register(uint64(0))
	gob.Register(float32(0))
	gob.Register(float64(0))
	gob.Register(false)
	gob.Register("")
	gob.Register([]byte(nil))
	gob.Register([]any(nil))
	gob.Register([]string(nil))
	gob.Register(map[string]any(nil))
	gob.Register(map[string]string(nil))
	gob.Register(time.Time{})
}

// RegisterType makes a concrete type transmittable through GobSerializer.
// Equivalent to gob.Register; exposed so callers don't need to import
// encoding/gob themselves.
func RegisterType(v any) { gob.Register(v) }

// GobSerializer is the native Go object-graph codec. It preserves concrete
// Go types across the round trip (an int comes back an int), which the
// structural codecs (json, msgpack, cbor) do not guarantee. The format is
// stable within a single Go version but not intended for cross-language use.
type GobSerializer struct{}

func (GobSerializer) Serialize(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobSerializer) Unserialize(b []byte) (any, error) {
	var v any
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
