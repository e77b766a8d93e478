package adapters

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"banner-editor/internal/features/banners/domain"
)

type keyLock struct {
	held chan struct{}
	refs int
}

// MemoryLocker serializes work per key inside one process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// NewMemoryLocker creates a new MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyLock)}
}

// Lock waits for key until ctx is done.
func (m *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{held: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.held <- struct{}{}:
	case <-ctx.Done():
		m.drop(key, l)
		return nil, fmt.Errorf("lock %s: %w", key, errors.Join(domain.ErrLockUnavailable, ctx.Err()))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.held
			m.drop(key, l)
		})
	}, nil
}

func (m *MemoryLocker) drop(key string, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

func (m *MemoryLocker) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
