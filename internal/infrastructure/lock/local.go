package lock

import (
	"context"
	"sync"

	"github.com/thanhnm3/khomypham/internal/domain/inventory"
)

// LocalProductLocker is an in-process keyed mutex. Each key holds a one-slot
// semaphore that is created on first use and dropped when its last holder or
// waiter leaves, so the map only grows with keys currently in contention.
type LocalProductLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocalProductLocker creates a new LocalProductLocker
func NewLocalProductLocker() *LocalProductLocker {
	return &LocalProductLocker{slots: make(map[string]*slot)}
}

// Lock blocks until key is free or ctx is done
func (l *LocalProductLocker) Lock(ctx context.Context, key string) (func(), error) {
	s := l.acquireRef(key)

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.releaseRef(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.releaseRef(key, s)
		})
	}, nil
}

// Len returns the number of keys currently held or waited on
func (l *LocalProductLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func (l *LocalProductLocker) acquireRef(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalProductLocker) releaseRef(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

var _ inventory.ProductLocker = (*LocalProductLocker)(nil)
