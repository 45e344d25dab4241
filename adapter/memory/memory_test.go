package memory

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/polycache/adapter"
	"github.com/unkn0wn-root/polycache/serializer"
)

func newTestAdapter(t *testing.T, opts adapter.Options) *Memory {
	t.Helper()
	m, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestAdapter(t, adapter.Options{})

	if ok, err := m.Set(ctx, "k", "value", adapter.DefaultTTL()); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	v, ok, err := m.Get(ctx, "k")
	if err != nil || !ok || v != "value" {
		t.Fatalf("Get: v=%v ok=%v err=%v", v, ok, err)
	}

	// gob preserves concrete types
	if ok, _ := m.Set(ctx, "n", 42, adapter.DefaultTTL()); !ok {
		t.Fatalf("Set int failed")
	}
	v, ok, _ = m.Get(ctx, "n")
	if !ok || v != 42 {
		t.Fatalf("int round trip: %v %v", v, ok)
	}
}

func TestGetMissVsStoredNil(t *testing.T) {
	ctx := context.Background()
	m := newTestAdapter(t, adapter.Options{})

	if _, ok, _ := m.Get(ctx, "missing"); ok {
		t.Fatalf("missing key must miss")
	}
	// A stored nil is a hit distinguishable from a miss.
	if ok, err := m.Set(ctx, "nil-value", nil, adapter.DefaultTTL()); err != nil || !ok {
		t.Fatalf("Set nil: %v %v", ok, err)
	}
	v, ok, _ := m.Get(ctx, "nil-value")
	if !ok || v != nil {
		t.Fatalf("stored nil must hit: v=%v ok=%v", v, ok)
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := newTestAdapter(t, adapter.Options{})

	if ok, _ := m.Set(ctx, "k", "v", adapter.Duration(40*time.Millisecond)); !ok {
		t.Fatalf("Set failed")
	}
	if ok, _ := m.Has(ctx, "k"); !ok {
		t.Fatalf("entry must be live before TTL elapses")
	}
	time.Sleep(60 * time.Millisecond)
	if ok, _ := m.Has(ctx, "k"); ok {
		t.Fatalf("expired entry must read as absent")
	}
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatalf("expired entry must miss")
	}
}

func TestZeroTTLMeansDelete(t *testing.T) {
	ctx := context.Background()
	m := newTestAdapter(t, adapter.Options{})

	if ok, _ := m.Set(ctx, "k", "v", adapter.DefaultTTL()); !ok {
		t.Fatalf("seed Set failed")
	}
	if ok, err := m.Set(ctx, "k", "v2", adapter.Seconds(0)); err != nil || !ok {
		t.Fatalf("Set with zero TTL: ok=%v err=%v", ok, err)
	}
	if ok, _ := m.Has(ctx, "k"); ok {
		t.Fatalf("zero TTL must delete, not store")
	}
	// Negative is the same.
	m.Set(ctx, "k", "v", adapter.DefaultTTL())
	m.Set(ctx, "k", "v", adapter.Seconds(-10))
	if ok, _ := m.Has(ctx, "k"); ok {
		t.Fatalf("negative TTL must delete")
	}
}

func TestSetForever(t *testing.T) {
	ctx := context.Background()
	m := newTestAdapter(t, adapter.Options{DefaultTTL: 10 * time.Millisecond})

	if ok, _ := m.SetForever(ctx, "k", "v"); !ok {
		t.Fatalf("SetForever failed")
	}
	time.Sleep(30 * time.Millisecond)
	if ok, _ := m.Has(ctx, "k"); !ok {
		t.Fatalf("forever entry must outlive the default TTL")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	m := newTestAdapter(t, adapter.Options{})

	if ok, err := m.Delete(ctx, "never-existed"); err != nil || !ok {
		t.Fatalf("deleting an absent key must succeed: ok=%v err=%v", ok, err)
	}
	m.Set(ctx, "k", "v", adapter.DefaultTTL())
	if ok, _ := m.Delete(ctx, "k"); !ok {
		t.Fatalf("Delete failed")
	}
	if ok, _ := m.Has(ctx, "k"); ok {
		t.Fatalf("key must be gone after Delete")
	}
	if ok, _ := m.Delete(ctx, "k"); !ok {
		t.Fatalf("second Delete must also succeed")
	}
}

func TestClearIdempotent(t *testing.T) {
	ctx := context.Background()
	m := newTestAdapter(t, adapter.Options{})

	m.Set(ctx, "a", "1", adapter.DefaultTTL())
	m.Set(ctx, "b", "2", adapter.DefaultTTL())

	if ok, err := m.Clear(ctx); err != nil || !ok {
		t.Fatalf("Clear: ok=%v err=%v", ok, err)
	}
	if ok, _ := m.Has(ctx, "a"); ok {
		t.Fatalf("cleared key still present")
	}
	if ok, err := m.Clear(ctx); err != nil || !ok {
		t.Fatalf("Clear on empty store must still succeed: ok=%v err=%v", ok, err)
	}
}

func TestCounters(t *testing.T) {
	ctx := context.Background()
	m := newTestAdapter(t, adapter.Options{})

	n, ok, err := m.Increment(ctx, "hits", 5)
	if err != nil || !ok || n != 5 {
		t.Fatalf("fresh Increment: n=%d ok=%v err=%v", n, ok, err)
	}
	n, ok, _ = m.Increment(ctx, "hits", 3)
	if !ok || n != 8 {
		t.Fatalf("second Increment: n=%d ok=%v", n, ok)
	}
	n, ok, _ = m.Decrement(ctx, "hits", 2)
	if !ok || n != 6 {
		t.Fatalf("Decrement: n=%d ok=%v", n, ok)
	}

	// Fresh decrement seeds at -step.
	n, ok, _ = m.Decrement(ctx, "debt", 4)
	if !ok || n != -4 {
		t.Fatalf("fresh Decrement: n=%d ok=%v", n, ok)
	}
}

func TestIncrementNonNumeric(t *testing.T) {
	ctx := context.Background()
	m := newTestAdapter(t, adapter.Options{})

	m.Set(ctx, "k", map[string]any{"not": "numeric"}, adapter.DefaultTTL())
	if _, ok, err := m.Increment(ctx, "k", 1); err != nil || ok {
		t.Fatalf("Increment on non-numeric value must report ok=false, got ok=%v err=%v", ok, err)
	}
}

func TestGetMultipleFillsDefaults(t *testing.T) {
	ctx := context.Background()
	m := newTestAdapter(t, adapter.Options{})

	m.Set(ctx, "k1", "a", adapter.DefaultTTL())
	m.Set(ctx, "k2", "b", adapter.DefaultTTL())

	got, err := m.GetMultiple(ctx, []string{"k1", "k2", "missing"}, "D")
	if err != nil {
		t.Fatalf("GetMultiple: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("every requested key must be present, got %d", len(got))
	}
	if got["k1"] != "a" || got["k2"] != "b" || got["missing"] != "D" {
		t.Fatalf("unexpected result: %#v", got)
	}
}

func TestSetMultiple(t *testing.T) {
	ctx := context.Background()
	m := newTestAdapter(t, adapter.Options{})

	ok, err := m.SetMultiple(ctx, map[string]any{"a": "1", "b": "2"}, adapter.DefaultTTL())
	if err != nil || !ok {
		t.Fatalf("SetMultiple: ok=%v err=%v", ok, err)
	}
	for _, k := range []string{"a", "b"} {
		if ok, _ := m.Has(ctx, k); !ok {
			t.Fatalf("key %q missing after SetMultiple", k)
		}
	}
}

func TestKeysEnumeration(t *testing.T) {
	ctx := context.Background()
	m := newTestAdapter(t, adapter.Options{})

	m.Set(ctx, "user-1", "a", adapter.DefaultTTL())
	m.Set(ctx, "user-2", "b", adapter.DefaultTTL())
	m.Set(ctx, "order-1", "c", adapter.DefaultTTL())

	all, err := m.Keys(ctx, "")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	sort.Strings(all)
	want := []string{"order-1", "user-1", "user-2"}
	if len(all) != len(want) {
		t.Fatalf("Keys: got %v want %v", all, want)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Fatalf("Keys: got %v want %v", all, want)
		}
	}

	users, _ := m.Keys(ctx, "user-")
	if len(users) != 2 {
		t.Fatalf("sub-prefix filter: got %v", users)
	}
}

type recordingListener struct {
	mu     sync.Mutex
	before []adapter.Event
	after  []adapter.Event
}

func (r *recordingListener) Before(e adapter.Event) {
	r.mu.Lock()
	r.before = append(r.before, e)
	r.mu.Unlock()
}

func (r *recordingListener) After(e adapter.Event) {
	r.mu.Lock()
	r.after = append(r.after, e)
	r.mu.Unlock()
}

func TestEventsCarryRawKeys(t *testing.T) {
	ctx := context.Background()
	rec := &recordingListener{}
	m := newTestAdapter(t, adapter.Options{Prefix: "evt-", Listener: rec})

	m.Set(ctx, "k", "v", adapter.DefaultTTL())
	m.Get(ctx, "k")
	m.Has(ctx, "k")
	m.Increment(ctx, "c", 1)
	m.Decrement(ctx, "c", 1)
	m.Delete(ctx, "k")

	wantOps := []adapter.Op{
		adapter.OpSet, adapter.OpGet, adapter.OpHas,
		adapter.OpIncrement, adapter.OpDecrement, adapter.OpDelete,
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.before) != len(wantOps) || len(rec.after) != len(wantOps) {
		t.Fatalf("expected %d before/after events, got %d/%d",
			len(wantOps), len(rec.before), len(rec.after))
	}
	for i, op := range wantOps {
		if rec.before[i].Op != op {
			t.Fatalf("before[%d]: got %q want %q", i, rec.before[i].Op, op)
		}
		// Keys must be raw, never prefixed.
		if k := rec.before[i].Key; len(k) >= 4 && k[:4] == "evt-" {
			t.Fatalf("event key %q leaked the prefix", k)
		}
	}
}

func TestSerializerNameIsValidatedAtConstruction(t *testing.T) {
	if _, err := New(adapter.Options{DefaultSerializer: "igbinary"}); err == nil {
		t.Fatalf("unsupported serializer must fail at construction")
	}
}

func TestJSONSerializerOption(t *testing.T) {
	ctx := context.Background()
	m := newTestAdapter(t, adapter.Options{DefaultSerializer: serializer.JSON})

	m.Set(ctx, "k", map[string]any{"n": float64(3)}, adapter.DefaultTTL())
	v, ok, _ := m.Get(ctx, "k")
	if !ok {
		t.Fatalf("miss after Set")
	}
	mv, ok := v.(map[string]any)
	if !ok || mv["n"] != float64(3) {
		t.Fatalf("JSON round trip: %#v", v)
	}
}
