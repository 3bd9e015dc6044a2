package remote

import (
	"context"
	"sync"
)

// Realtime delivers insert notifications. Delivery is asynchronous, at most
// once per subscriber, with no replay.
type Realtime interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, fn func(payload []byte)) (Subscription, error)
	Close() error
}

type Subscription interface {
	Unsubscribe()
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

// MemoryRealtime fans out within the process. Used when REDIS_ADDR is not
// set and in tests.
type MemoryRealtime struct {
	mu        sync.RWMutex
	listeners map[string]map[int]func([]byte)
	nextID    int
}

func NewMemoryRealtime() *MemoryRealtime {
	return &MemoryRealtime{listeners: make(map[string]map[int]func([]byte))}
}

func (m *MemoryRealtime) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, fn := range m.listeners[channel] {
		go fn(payload)
	}
	return nil
}

func (m *MemoryRealtime) Subscribe(_ context.Context, channel string, fn func([]byte)) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listeners[channel] == nil {
		m.listeners[channel] = make(map[int]func([]byte))
	}
	id := m.nextID
	m.nextID++
	m.listeners[channel][id] = fn
	return &memorySubscription{m: m, channel: channel, id: id}, nil
}

func (m *MemoryRealtime) Close() error {
	m.mu.Lock()
	m.listeners = make(map[string]map[int]func([]byte))
	m.mu.Unlock()
	return nil
}

type memorySubscription struct {
	m       *MemoryRealtime
	channel string
	id      int
}

func (s *memorySubscription) Unsubscribe() {
	s.m.mu.Lock()
	delete(s.m.listeners[s.channel], s.id)
	s.m.mu.Unlock()
}
