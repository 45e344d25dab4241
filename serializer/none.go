package serializer

import "fmt"

// NoneSerializer is the identity passthrough codec for values that are
// already their own wire representation. Its domain is restricted to string
// and []byte; any other value is rejected at Serialize.
//
// Unserialize returns a string, so []byte inputs round-trip to their string
// form. Use this codec when callers only ever store strings (counters are
// the common case: the raw integer payload is what backend-native
// increments operate on).
type NoneSerializer struct{}

func (NoneSerializer) Serialize(v any) ([]byte, error) {
	switch s := v.(type) {
	case string:
		return []byte(s), nil
	case []byte:
		return s, nil
	default:
		return nil, fmt.Errorf("polycache: none serializer requires string or []byte, got %T", v)
	}
}

func (NoneSerializer) Unserialize(b []byte) (any, error) {
	return string(b), nil
}
