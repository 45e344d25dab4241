// Package polycache is a unified caching layer over interchangeable
// backends: one deterministic contract for get/set/delete/increment/clear
// and multi-key operations, with pluggable serialization, normalized TTLs,
// prefix-isolated namespaces, and before/after operation events.
//
// Components:
//   - adapter.Adapter: one backend-specific implementation of the contract
//     (memory, stream, redis, memcached, shm, lfu). Backends self-register;
//     construct by name with adapter.New after a blank import.
//   - serializer.Serializer: codec converting values <-> stored bytes,
//     resolved by name through a caching factory (none, gob, json, msgpack,
//     cbor).
//   - Cache: a thin facade over one adapter adding key validation and
//     default-value substitution for misses.
//
// Failure policy: construction and connection bring-up fail loudly with
// typed errors; once connected, backend failures degrade into miss/false
// returns so a cache outage never aborts the caller's business logic.
//
//	a, err := adapter.New("memory", adapter.Options{Prefix: "app-"})
//	c, err := polycache.New(a)
//	ok, _ := c.Set(ctx, "user-1", user, adapter.Seconds(300))
//	v, _ := c.Get(ctx, "user-1", nil)
package polycache
