package completion

import (
	"context"
	"sync"
)

// Locks serializes work per session name. Two callers holding the same name
// never overlap; different names proceed in parallel.
type Locks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// NewLocks returns an empty lock table.
func NewLocks() *Locks {
	return &Locks{entries: make(map[string]*lockEntry)}
}

// Acquire blocks until the session is free or ctx is done.
// The returned release func is safe to call more than once.
func (l *Locks) Acquire(ctx context.Context, name string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[name]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.entries[name] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(name, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.unref(name, e)
		})
	}, nil
}

// Held reports whether some caller currently holds or awaits the session.
func (l *Locks) Held(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[name]
	return ok
}

func (l *Locks) unref(name string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, name)
	}
}

