// Package serializer converts arbitrary values to and from the byte form
// that backends store. Concrete codecs are resolved by name through a
// Factory so that an adapter can be configured with a serializer name and
// fail fast at construction when the name is unknown.
package serializer

import (
	"errors"
	"fmt"
	"sync"
)

// Registered serializer names.
const (
	None    = "none"
	Gob     = "gob"
	JSON    = "json"
	Msgpack = "msgpack"
	CBOR    = "cbor"
)

// ErrUnknown is wrapped by Factory.New for unregistered names.
var ErrUnknown = errors.New("polycache: unknown serializer")

// Serializer converts a value to a storable byte sequence and back.
// Implementations must round-trip: Unserialize(Serialize(x)) == x for every
// value in the codec's domain. The none codec is identity over strings and
// byte slices; every other codec must be total over any value.
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Unserialize(b []byte) (any, error)
}

// Constructor builds a Serializer instance. Constructors run at most once
// per Factory; the instance is cached and shared afterwards.
type Constructor func() (Serializer, error)

// Factory resolves serializers by name. The zero value is not usable;
// construct with NewFactory. Safe for concurrent use.
type Factory struct {
	mu        sync.Mutex
	ctors     map[string]Constructor
	instances map[string]Serializer
}

// NewFactory returns a Factory with the built-in codecs registered:
// none, gob, json, msgpack, cbor.
func NewFactory() *Factory {
	f := &Factory{
		ctors:     make(map[string]Constructor),
		instances: make(map[string]Serializer),
	}
	f.Register(None, func() (Serializer, error) { return NoneSerializer{}, nil })
	f.Register(Gob, func() (Serializer, error) { return GobSerializer{}, nil })
	f.Register(JSON, func() (Serializer, error) { return JSONSerializer{}, nil })
	f.Register(Msgpack, func() (Serializer, error) { return MsgpackSerializer{}, nil })
	f.Register(CBOR, func() (Serializer, error) { return NewCBORSerializer() })
	return f
}

// Register adds or replaces a named serializer. Replacing drops any cached
// instance built from the previous constructor.
func (f *Factory) Register(name string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctors[name] = ctor
	delete(f.instances, name)
}

// New resolves name to a Serializer, constructing it on first request and
// reusing the cached instance afterwards. Unknown names return an error
// matching ErrUnknown via errors.Is.
func (f *Factory) New(name string) (Serializer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.instances[name]; ok {
		return s, nil
	}
	ctor, ok := f.ctors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	s, err := ctor()
	if err != nil {
		return nil, fmt.Errorf("polycache: serializer %q: %w", name, err)
	}
	f.instances[name] = s
	return s, nil
}

// Names returns the registered serializer names in no particular order.
func (f *Factory) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.ctors))
	for n := range f.ctors {
		out = append(out, n)
	}
	return out
}
