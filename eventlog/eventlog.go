// Package eventlog is an adapter.Listener that mirrors operation events to
// slog, with per-operation sampling so hot read paths don't flood the log
// and an optional key redactor for caches holding sensitive key material.
//
// Combine with adapter.NewAsyncListener to take the sink fully off the hot
// path.
package eventlog

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/polycache/adapter"
)

type Options struct {
	// Sampling per operation to avoid floods; 0/1 = log all.
	GetEvery   uint64
	HasEvery   uint64
	WriteEvery uint64 // set/delete/increment/decrement
	// Optional key redactor. Defaults to a SHA-256 prefix.
	Redact func(string) string
}

type Listener struct {
	l    *slog.Logger
	opts Options

	getCtr   atomic.Uint64
	hasCtr   atomic.Uint64
	writeCtr atomic.Uint64
}

var _ adapter.Listener = (*Listener)(nil)

func New(l *slog.Logger, opts Options) *Listener {
	return &Listener{l: l, opts: opts}
}

func (s *Listener) redact(k string) string {
	if s.opts.Redact != nil {
		return s.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (s *Listener) pass(e adapter.Event) bool {
	if s.l == nil {
		return false
	}
	switch e.Op {
	case adapter.OpGet:
		return sample(s.opts.GetEvery, &s.getCtr)
	case adapter.OpHas:
		return sample(s.opts.HasEvery, &s.hasCtr)
	default:
		return sample(s.opts.WriteEvery, &s.writeCtr)
	}
}

func (s *Listener) Before(e adapter.Event) {
	if !s.pass(e) {
		return
	}
	s.l.Debug("polycache.before",
		"op", string(e.Op),
		"key", s.redact(e.Key))
}

func (s *Listener) After(e adapter.Event) {
	if !s.pass(e) {
		return
	}
	s.l.Debug("polycache.after",
		"op", string(e.Op),
		"key", s.redact(e.Key))
}
