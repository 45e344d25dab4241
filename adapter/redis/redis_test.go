package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unkn0wn-root/polycache/adapter"
)

func TestDefaults(t *testing.T) {
	r, err := New(adapter.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Prefix() != "pc-reds-" {
		t.Fatalf("default prefix: got %q", r.Prefix())
	}
	if r.addr != "127.0.0.1:6379" {
		t.Fatalf("default addr: got %q", r.addr)
	}
}

func TestSocketOverridesAddr(t *testing.T) {
	r, err := New(adapter.Options{Host: "ignored", Port: 9999, Socket: "/run/redis.sock"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.addr != "/run/redis.sock" {
		t.Fatalf("socket must win over host/port: got %q", r.addr)
	}
}

func TestUnsupportedSerializerFailsConstruction(t *testing.T) {
	if _, err := New(adapter.Options{DefaultSerializer: "igbinary"}); err == nil {
		t.Fatalf("unsupported serializer must fail at construction")
	}
}

func TestConnFailureIsTypedAndSticky(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Port 1 is never a redis server.
	r, err := New(adapter.Options{Host: "127.0.0.1", Port: 1, ConnectTimeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, _, err = r.Get(ctx, "k")
	if err == nil {
		t.Fatalf("unreachable server must surface a connection error")
	}
	var connErr *adapter.ConnError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnError, got %T: %v", err, err)
	}
	if connErr.Backend != "redis" || connErr.Stage != "connect" {
		t.Fatalf("unexpected ConnError: %+v", connErr)
	}

	// Every later call must return the same sticky error.
	_, err2 := r.Has(ctx, "k")
	if !errors.Is(err2, err) {
		t.Fatalf("bring-up failure must be sticky: %v vs %v", err, err2)
	}
}

func TestStageClassification(t *testing.T) {
	cases := []struct {
		msg  string
		want string
	}{
		{"NOAUTH Authentication required.", "auth"},
		{"WRONGPASS invalid username-password pair", "auth"},
		{"ERR Client sent AUTH, but no password is set", "auth"},
		{"ERR invalid password", "auth"},
		{"ERR DB index is out of range", "select"},
		{"ERR SELECT is not allowed in this context", "select"},
		{"dial tcp 127.0.0.1:6379: connection refused", "connect"},
		{"i/o timeout", "connect"},
	}
	for _, c := range cases {
		if got := stageOf(errors.New(c.msg)); got != c.want {
			t.Errorf("stageOf(%q) = %q, want %q", c.msg, got, c.want)
		}
	}
}

func TestAdapterTimeoutFallback(t *testing.T) {
	if d := adapterTimeout(0, 3*time.Second); d != 3*time.Second {
		t.Fatalf("generic timeout must apply when connect timeout is unset: %v", d)
	}
	if d := adapterTimeout(time.Second, 3*time.Second); d != time.Second {
		t.Fatalf("connect timeout must win when set: %v", d)
	}
}

func TestCloseBeforeConnect(t *testing.T) {
	r, err := New(adapter.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close on a never-connected adapter: %v", err)
	}
}
