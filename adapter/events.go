package adapter

// Op names an adapter operation for event notification purposes.
type Op string

const (
	OpGet       Op = "get"
	OpSet       Op = "set"
	OpHas       Op = "has"
	OpDelete    Op = "delete"
	OpIncrement Op = "increment"
	OpDecrement Op = "decrement"
)

// Event describes one adapter operation. Key is the raw caller key, never
// the prefixed storage key.
type Event struct {
	Op  Op
	Key string
}

// Listener receives a notification before and after every observable
// adapter operation. Implementations MUST be cheap and non-blocking; the
// adapter calls them inline on hot paths. Wrap with NewAsyncListener when
// the sink does real work.
//
// Listeners exist for observers (metrics, logging); adapters never depend
// on their behavior for correctness.
type Listener interface {
	Before(Event)
	After(Event)
}

// NopListener is the default no-op.
type NopListener struct{}

func (NopListener) Before(Event) {}
func (NopListener) After(Event)  {}
