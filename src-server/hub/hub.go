package hub

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

const (
	MessageTypeContentUpdate = "contentUpdate"
	MessageTypeGuestbookNew  = "guestbookNew"
	MessageTypeRSVPNew       = "rsvpNew"
	MessageTypeStatsUpdate   = "statsUpdate"
	MessageTypeRealtime      = "realtime"
	MessageTypeAutoRefresh   = "autoRefresh"
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
)

type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

var subscriberIDCounter atomic.Uint64

// Subscriber receives broadcast messages on C. The hub closes C when the
// subscriber is removed or falls too far behind.
type Subscriber struct {
	id   uint64
	send chan Message
}

func (s *Subscriber) C() <-chan Message {
	return s.send
}

// Hub fans broadcast messages out to every subscriber: websocket clients
// and in-process listeners alike.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]bool
	broadcast   chan Message
	onCount     func(int)
}

func New() *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]bool),
		broadcast:   make(chan Message, 256),
	}
}

// ObserveCount installs a hook called with the subscriber count after
// every change.
func (h *Hub) ObserveCount(fn func(int)) {
	h.mu.Lock()
	h.onCount = fn
	h.mu.Unlock()
}

func (h *Hub) Subscribe(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 16
	}
	s := &Subscriber{
		id:   subscriberIDCounter.Add(1),
		send: make(chan Message, buffer),
	}
	h.mu.Lock()
	h.subscribers[s] = true
	count := len(h.subscribers)
	onCount := h.onCount
	h.mu.Unlock()
	if onCount != nil {
		onCount(count)
	}
	return s
}

func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[s]; ok {
		delete(h.subscribers, s)
		close(s.send)
	}
	count := len(h.subscribers)
	onCount := h.onCount
	h.mu.Unlock()
	if onCount != nil {
		onCount(count)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast queues msg for delivery. It never blocks; when the queue is
// full the message is dropped and logged.
func (h *Hub) Broadcast(msgType string, data any) {
	select {
	case h.broadcast <- Message{Type: msgType, Data: data}:
	default:
		slog.Warn("broadcast channel full, dropping message", "type", msgType)
	}
}

// Run delivers queued messages until ctx is done, then closes every
// subscriber.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			slog.Debug("hub stopped")
			return
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg Message) {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subs = append(subs, s)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })

	var dropped []*Subscriber
	for _, s := range subs {
		select {
		case s.send <- msg:
		default:
			dropped = append(dropped, s)
		}
	}
	for _, s := range dropped {
		close(s.send)
		delete(h.subscribers, s)
	}
	count := len(h.subscribers)
	onCount := h.onCount
	h.mu.Unlock()

	if len(dropped) > 0 {
		slog.Warn("dropped slow subscribers", "count", len(dropped))
		if onCount != nil {
			onCount(count)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for s := range h.subscribers {
		close(s.send)
		delete(h.subscribers, s)
	}
	onCount := h.onCount
	h.mu.Unlock()
	if onCount != nil {
		onCount(0)
	}
}
