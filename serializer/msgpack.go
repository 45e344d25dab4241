package serializer

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackSerializer stores values as MessagePack. Decoding is loose:
// integers come back as int64 and maps as map[string]any, so the decoded
// shape is deterministic regardless of how compactly the value encoded.
type MsgpackSerializer struct{}

func (MsgpackSerializer) Serialize(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgpackSerializer) Unserialize(b []byte) (any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.UseLooseInterfaceDecoding(true)
	var v any
	err := dec.Decode(&v)
	return v, err
}
