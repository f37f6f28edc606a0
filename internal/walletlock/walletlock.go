// Package walletlock serializes mutations of a single wallet. Local works
// inside one process; Redis coordinates several walletd replicas.
package walletlock

import (
	"context"
	"errors"
	"sync"
)

// ErrTimeout is returned when the lock could not be taken before the wait elapsed.
var ErrTimeout = errors.New("wallet lock wait timed out")

// Locker hands out exclusive per-wallet locks.
type Locker interface {
	// Acquire blocks until walletID is held or ctx is done. The returned
	// function releases the lock and is safe to call more than once.
	Acquire(ctx context.Context, walletID string) (release func(), err error)
}

type slot struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process Locker keyed by wallet id. Slots are dropped once no
// goroutine holds or waits on them.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

func (l *Local) Acquire(ctx context.Context, walletID string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[walletID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[walletID] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(walletID, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(walletID, s)
		})
	}, nil
}

func (l *Local) unref(walletID string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, walletID)
	}
}

func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
