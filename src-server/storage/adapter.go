package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Adapter reads and writes JSON values over a Backend. Reads never fail:
// missing, unreadable or malformed values fall back to the caller's default.
type Adapter struct {
	backend Backend

	// serialises Update within the process, other writers are last-write-wins
	updateMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   map[int]func(key string)
	nextID      int

	onRead  func(time.Duration)
	onWrite func(time.Duration)
}

func NewAdapter(backend Backend) *Adapter {
	return &Adapter{
		backend:   backend,
		listeners: make(map[int]func(key string)),
	}
}

// ObserveLatency installs hooks called after each backend read and write.
func (a *Adapter) ObserveLatency(read, write func(time.Duration)) {
	a.onRead = read
	a.onWrite = write
}

// OnChange registers fn to run after every Set or Remove. The returned func
// removes the listener.
func (a *Adapter) OnChange(fn func(key string)) func() {
	a.listenersMu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.listenersMu.Unlock()
	return func() {
		a.listenersMu.Lock()
		delete(a.listeners, id)
		a.listenersMu.Unlock()
	}
}

func (a *Adapter) notify(key string) {
	a.listenersMu.RLock()
	fns := make([]func(string), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.listenersMu.RUnlock()
	for _, fn := range fns {
		fn(key)
	}
}

func (a *Adapter) read(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	data, ok, err := a.backend.Read(ctx, key)
	if a.onRead != nil {
		a.onRead(time.Since(start))
	}
	return data, ok, err
}

func (a *Adapter) write(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("(*Adapter).Set: can't marshal %q: %w", key, err)
	}
	start := time.Now()
	if err := a.backend.Write(ctx, key, data); err != nil {
		return fmt.Errorf("(*Adapter).Set: %w", err)
	}
	if a.onWrite != nil {
		a.onWrite(time.Since(start))
	}
	return nil
}

func (a *Adapter) Set(ctx context.Context, key string, value any) error {
	if err := a.write(ctx, key, value); err != nil {
		return err
	}
	a.notify(key)
	return nil
}

func (a *Adapter) Remove(ctx context.Context, key string) error {
	if err := a.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("(*Adapter).Remove: %w", err)
	}
	a.notify(key)
	return nil
}

// SetRaw stores bytes as-is. Used by migrations and tests that need to
// plant values the adapter did not encode.
func (a *Adapter) SetRaw(ctx context.Context, key string, data []byte) error {
	if err := a.backend.Write(ctx, key, data); err != nil {
		return fmt.Errorf("(*Adapter).SetRaw: %w", err)
	}
	a.notify(key)
	return nil
}

func (a *Adapter) Close() error {
	return a.backend.Close()
}

func Get[T any](ctx context.Context, a *Adapter, key string, def T) T {
	data, ok, err := a.read(ctx, key)
	switch {
	case err != nil:
		slog.Error("can't read local value", "key", key, "error", err)
		return def
	case !ok:
		return def
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		slog.Warn("malformed local value, using default", "key", key, "error", err)
		return def
	}
	return v
}

// Update runs a read-modify-write of key under the adapter's update lock.
// When fn returns an error nothing is written.
func Update[T any](ctx context.Context, a *Adapter, key string, def T, fn func(T) (T, error)) (T, error) {
	a.updateMu.Lock()
	current := Get(ctx, a, key, def)
	next, err := fn(current)
	if err != nil {
		a.updateMu.Unlock()
		return current, err
	}
	if err := a.write(ctx, key, next); err != nil {
		a.updateMu.Unlock()
		return current, err
	}
	a.updateMu.Unlock()
	a.notify(key)
	return next, nil
}
