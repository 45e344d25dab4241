package serializer

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// CBORSerializer stores values as CBOR (RFC 8949). The zero value is NOT
// ready to use; construct with NewCBORSerializer. Integers decode to int64
// and maps to map[string]any so the decoded shape matches the other
// structural codecs. Time values encode as RFC3339Nano.
type CBORSerializer struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Serializer = CBORSerializer{}

// NewCBORSerializer constructs a CBOR codec with preferred (compact)
// encoding options.
func NewCBORSerializer() (CBORSerializer, error) {
	eo := cbor.PreferredUnsortedEncOptions()
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBORSerializer{}, err
	}
	dm, err := (cbor.DecOptions{
		IntDec:         cbor.IntDecConvertSigned,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}).DecMode()
	if err != nil {
		return CBORSerializer{}, err
	}
	return CBORSerializer{enc: em, dec: dm}, nil
}

func (c CBORSerializer) Serialize(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c CBORSerializer) Unserialize(b []byte) (any, error) {
	var v any
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
