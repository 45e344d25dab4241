package serializer

import "encoding/json"

// JSONSerializer stores values as JSON. Decoded values use JSON's generic
// representation: numbers come back as float64 and objects as
// map[string]any. Pick gob when concrete Go types must survive the
// round trip.
type JSONSerializer struct{}

func (JSONSerializer) Serialize(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONSerializer) Unserialize(b []byte) (any, error) {
	var v any
	err := json.Unmarshal(b, &v)
	return v, err
}
