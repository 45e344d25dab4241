// Package entry implements the on-wire framing for stored cache entries:
// a fixed header carrying the absolute expiry, followed by the serialized
// payload. The header is readable on its own so backends can test a key for
// expiry without touching the payload (stream reads only HeaderLen bytes).
package entry

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const version byte = 1

// HeaderLen is the fixed size of the framing header:
// magic(4) | ver(1) | exp(u64 be, unix seconds; 0 = no expiry) | vlen(u32 be)
const HeaderLen = 4 + 1 + 8 + 4

var (
	ErrCorrupt = errors.New("polycache: corrupt entry")
	magic4     = [...]byte{'P', 'L', 'Y', 'C'}
)

// Entry is a decoded stored value with its absolute expiry.
// A zero ExpiresAt means the entry never expires.
type Entry struct {
	ExpiresAt time.Time
	Payload   []byte
}

// Expired reports whether the entry's TTL has elapsed at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames payload with the given absolute expiry. A zero expiresAt
// encodes "never expires".
func Encode(expiresAt time.Time, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(HeaderLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte

	var exp uint64
	if !expiresAt.IsZero() {
		exp = uint64(expiresAt.Unix())
	}
	binary.BigEndian.PutUint64(u8[:], exp)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// ParseHeader decodes just the framing header. hdr must hold at least
// HeaderLen bytes; anything past the header is ignored. Returns the absolute
// expiry (zero time = never) and the declared payload length.
func ParseHeader(hdr []byte) (expiresAt time.Time, vlen int, err error) {
	if len(hdr) < HeaderLen || !hasMagic(hdr) || hdr[4] != version {
		return time.Time{}, 0, ErrCorrupt
	}
	exp := binary.BigEndian.Uint64(hdr[5:13])
	n := binary.BigEndian.Uint32(hdr[13:17])
	if exp != 0 {
		expiresAt = time.Unix(int64(exp), 0)
	}
	return expiresAt, int(n), nil
}

// Decode parses a complete framed entry. The returned payload aliases b
// (zero-copy). Trailing bytes after the declared payload are corruption.
func Decode(b []byte) (Entry, error) {
	expiresAt, vlen, err := ParseHeader(b)
	if err != nil {
		return Entry{}, err
	}
	if vlen != len(b)-HeaderLen {
		return Entry{}, ErrCorrupt
	}
	return Entry{ExpiresAt: expiresAt, Payload: b[HeaderLen:]}, nil
}
