// Package lock serializes reconciliation passes per user.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotHeld is returned by a release when the lock had already expired or
// been taken over by another holder.
var ErrNotHeld = errors.New("lock not held")

// Release gives a lock back. Calling it more than once is a no-op.
type Release func() error

// Locker hands out exclusive locks by key.
type Locker interface {
	// Lock blocks until key is held or ctx is done.
	Lock(ctx context.Context, key string) (Release, error)
}

// Local is an in-process keyed mutex. The zero value is ready to use.
type Local struct {
	mu   sync.Mutex
	keys map[string]*localEntry
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns an empty Local locker.
func NewLocal() *Local {
	return &Local{}
}

// Lock implements Locker.
func (l *Local) Lock(ctx context.Context, key string) (Release, error) {
	l.mu.Lock()
	if l.keys == nil {
		l.keys = make(map[string]*localEntry)
	}
	e, ok := l.keys[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() error {
		once.Do(func() {
			<-e.ch
			l.drop(key, e)
		})
		return nil
	}, nil
}

func (l *Local) drop(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}

// held returns the number of keys with holders or waiters.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
