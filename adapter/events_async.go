package adapter

import "sync"

// AsyncListener decouples event delivery from the adapter's hot path: events
// are queued and replayed to the inner listener by a small worker pool. When
// the queue is full events are dropped rather than blocking the caller.
type AsyncListener struct {
	inner Listener
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ Listener = (*AsyncListener)(nil)

func NewAsyncListener(inner Listener, workers, qlen int) *AsyncListener {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	l := &AsyncListener{inner: inner, q: make(chan func(), qlen)}
	l.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer l.wg.Done()
			for f := range l.q {
				f()
			}
		}()
	}
	return l
}

// Close drains the queue and stops the workers. Safe to call multiple times.
func (l *AsyncListener) Close() {
	l.once.Do(func() {
		close(l.q)
		l.wg.Wait()
	})
}

func (l *AsyncListener) try(f func()) {
	select {
	case l.q <- f:
	default: // drop
	}
}

func (l *AsyncListener) Before(e Event) { l.try(func() { l.inner.Before(e) }) }
func (l *AsyncListener) After(e Event)  { l.try(func() { l.inner.After(e) }) }
