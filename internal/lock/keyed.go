package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout bounds how long Acquire waits for all keys.
const DefaultTimeout = 5 * time.Second

// KeyedMutex is an in-process Locker. Each key maps to a one-slot channel;
// slots are reference counted and removed when nobody holds or waits on them.
type KeyedMutex struct {
	timeout time.Duration

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates a KeyedMutex. A non-positive timeout uses DefaultTimeout.
func NewKeyedMutex(timeout time.Duration) *KeyedMutex {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &KeyedMutex{
		timeout: timeout,
		slots:   make(map[string]*slot),
	}
}

func (m *KeyedMutex) ref(key string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	return s
}

func (m *KeyedMutex) unref(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}

// Acquire takes every key in sorted order, waiting at most the configured
// timeout in total. On failure all keys taken so far are released.
func (m *KeyedMutex) Acquire(ctx context.Context, keys ...string) (Release, error) {
	keys = normalize(keys)

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	held := make([]*slot, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].ch
			m.unref(keys[i], held[i])
		}
	}

	for _, key := range keys {
		s := m.ref(key)
		select {
		case s.ch <- struct{}{}:
			held = append(held, s)
		case <-timer.C:
			m.unref(key, s)
			release()
			return nil, fmt.Errorf("key %s: %w", key, ErrTimeout)
		case <-ctx.Done():
			m.unref(key, s)
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}
