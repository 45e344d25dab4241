// Package stream implements the cache contract on the filesystem: one file
// per key under StorageDir, inside a directory named after the adapter's
// prefix so two differently-prefixed adapters sharing a StorageDir never
// see each other's files.
//
// Each file holds the entry framing from internal/entry, expiry header
// first and serialized payload after, so Has can test a key for expiry by
// reading only the header. Expired files are treated as absent and removed
// when touched.
//
// Increment and Decrement are read-modify-write on the file and therefore
// not atomic across processes.
package stream

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/unkn0wn-root/polycache/adapter"
	"github.com/unkn0wn-root/polycache/internal/entry"
)

const fileExt = ".cache"

func init() {
	adapter.Register("stream", func(opts adapter.Options) (adapter.Adapter, error) {
		return New(opts)
	})
}

// Stream is the filesystem backend.
type Stream struct {
	adapter.Base
	dir string
}

var _ adapter.Adapter = (*Stream)(nil)

func New(opts adapter.Options) (*Stream, error) {
	if opts.StorageDir == "" {
		return nil, &adapter.ConfigError{Adapter: "stream", Reason: "StorageDir is required"}
	}
	base, err := adapter.NewBase("stream", "pc-strm-", opts)
	if err != nil {
		return nil, err
	}
	return &Stream{
		Base: base,
		dir:  filepath.Join(opts.StorageDir, base.Prefix()),
	}, nil
}

// path maps a raw key to its file. Keys are hex-escaped so arbitrary key
// bytes cannot traverse or collide in the filesystem namespace.
func (s *Stream) path(key string) string {
	return filepath.Join(s.dir, hex.EncodeToString([]byte(key))+fileExt)
}

func keyFromFilename(name string) (string, bool) {
	if !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	raw, err := hex.DecodeString(strings.TrimSuffix(name, fileExt))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (s *Stream) Has(_ context.Context, key string) (bool, error) {
	s.EmitBefore(adapter.OpHas, key)
	defer s.EmitAfter(adapter.OpHas, key)

	f, err := os.Open(s.path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.Swallow(adapter.OpHas, key, err)
		}
		return false, nil
	}
	defer f.Close()

	hdr := make([]byte, entry.HeaderLen)
	if _, err := io.ReadFull(f, hdr); err != nil {
		s.Swallow(adapter.OpHas, key, err)
		return false, nil
	}
	expiresAt, _, err := entry.ParseHeader(hdr)
	if err != nil {
		s.Swallow(adapter.OpHas, key, err)
		return false, nil
	}
	if !expiresAt.IsZero() && time.Now().After(expiresAt) {
		f.Close()
		_ = os.Remove(s.path(key))
		return false, nil
	}
	return true, nil
}

func (s *Stream) Get(_ context.Context, key string) (any, bool, error) {
	s.EmitBefore(adapter.OpGet, key)
	defer s.EmitAfter(adapter.OpGet, key)

	e, ok := s.read(key)
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

// read loads and validates the entry file for key, lazily removing it when
// expired or corrupt.
func (s *Stream) read(key string) (entry.Entry, bool) {
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.Swallow(adapter.OpGet, key, err)
		}
		return entry.Entry{}, false
	}
	e, err := entry.Decode(b)
	if err != nil {
		_ = os.Remove(s.path(key)) // self-heal corrupt file
		return entry.Entry{}, false
	}
	if e.Expired(time.Now()) {
		_ = os.Remove(s.path(key))
		return entry.Entry{}, false
	}
	return e, true
}

func (s *Stream) Set(ctx context.Context, key string, value any, ttl adapter.TTL) (bool, error) {
	d := s.ResolveTTL(ttl)
	if d <= 0 {
		return s.Delete(ctx, key)
	}
	return s.put(key, value, time.Now().Add(d))
}

func (s *Stream) SetForever(_ context.Context, key string, value any) (bool, error) {
	return s.put(key, value, time.Time{})
}

func (s *Stream) put(key string, value any, expiresAt time.Time) (bool, error) {
	s.EmitBefore(adapter.OpSet, key)
	defer s.EmitAfter(adapter.OpSet, key)

	p, err := s.Serialize(value)
	if err != nil {
		return false, err
	}
	if err := s.write(key, entry.Encode(expiresAt, p)); err != nil {
		s.Swallow(adapter.OpSet, key, err)
		return false, nil
	}
	return true, nil
}

// write lands the framed entry atomically: temp file in the same directory,
// then rename, so concurrent readers never observe a partial write.
func (s *Stream) write(key string, framed []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "put-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(framed); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(key))
}

func (s *Stream) Delete(_ context.Context, key string) (bool, error) {
	s.EmitBefore(adapter.OpDelete, key)
	defer s.EmitAfter(adapter.OpDelete, key)

	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.Swallow(adapter.OpDelete, key, err)
		return false, nil
	}
	return true, nil
}

func (s *Stream) Increment(_ context.Context, key string, step int64) (int64, bool, error) {
	return s.add(adapter.OpIncrement, key, step)
}

func (s *Stream) Decrement(_ context.Context, key string, step int64) (int64, bool, error) {
	return s.add(adapter.OpDecrement, key, -step)
}

func (s *Stream) add(op adapter.Op, key string, delta int64) (int64, bool, error) {
	s.EmitBefore(op, key)
	defer s.EmitAfter(op, key)

	e, ok := s.read(key)
	if !ok {
		framed := entry.Encode(time.Now().Add(s.DefaultTTL()), adapter.FormatCounter(delta))
		if err := s.write(key, framed); err != nil {
			s.Swallow(op, key, err)
			return 0, false, nil
		}
		return delta, true, nil
	}
	cur, numeric := adapter.ParseCounter(e.Payload)
	if !numeric {
		return 0, false, nil
	}
	next := cur + delta
	if err := s.write(key, entry.Encode(e.ExpiresAt, adapter.FormatCounter(next))); err != nil {
		s.Swallow(op, key, err)
		return 0, false, nil
	}
	return next, true, nil
}

// Clear removes this adapter's namespace directory only; other prefixes
// sharing the StorageDir are untouched.
func (s *Stream) Clear(_ context.Context) (bool, error) {
	if err := os.RemoveAll(s.dir); err != nil {
		s.Swallow(adapter.OpDelete, "", err)
		return false, nil
	}
	return true, nil
}

func (s *Stream) Keys(_ context.Context, prefix string) ([]string, error) {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []string
	for _, de := range ents {
		if de.IsDir() {
			continue
		}
		key, ok := keyFromFilename(de.Name())
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		// header-only expiry probe; expired files are lazily dropped
		if live := s.probe(key); live {
			out = append(out, key)
		}
	}
	return out, nil
}

func (s *Stream) probe(key string) bool {
	f, err := os.Open(s.path(key))
	if err != nil {
		return false
	}
	defer f.Close()
	hdr := make([]byte, entry.HeaderLen)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return false
	}
	expiresAt, _, err := entry.ParseHeader(hdr)
	if err != nil {
		return false
	}
	if !expiresAt.IsZero() && time.Now().After(expiresAt) {
		f.Close()
		_ = os.Remove(s.path(key))
		return false
	}
	return true
}

func (s *Stream) GetMultiple(ctx context.Context, keys []string, def any) (map[string]any, error) {
	return adapter.GetMultipleSerial(ctx, s, keys, def)
}

func (s *Stream) SetMultiple(ctx context.Context, values map[string]any, ttl adapter.TTL) (bool, error) {
	return adapter.SetMultipleSerial(ctx, s, values, ttl)
}

func (s *Stream) Close(context.Context) error { return nil }
