package remote

import (
	"context"
	"errors"
	"fmt"
	"invitation/src-server/model"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Gateway wraps the remote store. It degrades to "unavailable" instead of
// failing: reads return empty values and writes report false.
type Gateway struct {
	backend  Backend
	realtime Realtime
	timeout  time.Duration
	cb       *gobreaker.CircuitBreaker[any]

	connected atomic.Bool
	mu        sync.RWMutex
	eventID   string

	onWrite     func(time.Duration)
	onConnected func(bool)

	changeMu sync.Mutex
	onChange []func(bool)
}

// NewGateway accepts a nil backend (remote disabled) and a nil realtime
// (no push notifications).
func NewGateway(backend Backend, realtime Realtime, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	g := &Gateway{
		backend:  backend,
		realtime: realtime,
		timeout:  timeout,
	}
	g.cb = newBreaker("remote-store")
	return g
}

// ObserveLatency installs metric hooks for remote writes and for changes of
// the connection flag.
func (g *Gateway) ObserveLatency(write func(time.Duration), connected func(bool)) {
	g.onWrite = write
	g.onConnected = connected
}

// OnConnectionChange registers fn to run whenever the connection flag
// flips.
func (g *Gateway) OnConnectionChange(fn func(connected bool)) {
	g.changeMu.Lock()
	g.onChange = append(g.onChange, fn)
	g.changeMu.Unlock()
}

func (g *Gateway) setConnected(v bool) {
	was := g.connected.Swap(v)
	if g.onConnected != nil {
		g.onConnected(v)
	}
	if was == v {
		return
	}
	g.changeMu.Lock()
	listeners := slices.Clone(g.onChange)
	g.changeMu.Unlock()
	for _, fn := range listeners {
		fn(v)
	}
}

func (g *Gateway) IsConnected() bool {
	return g.connected.Load()
}

func (g *Gateway) EventID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.eventID
}

// Initialize connects and resolves the active event, creating a default
// one when the store has none. It never panics.
func (g *Gateway) Initialize(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("remote initialize panicked", "panic", r)
			g.setConnected(false)
			ok = false
		}
	}()

	if g.backend == nil {
		slog.Info("remote store disabled, using local storage only")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.backend.Ping(ctx); err != nil {
		slog.Warn("remote store unreachable, using local storage only", "error", err)
		g.setConnected(false)
		return false
	}

	event, err := g.backend.ActiveEvent(ctx)
	if errors.Is(err, ErrNotFound) {
		event, err = g.backend.CreateEvent(ctx, model.EventInfo{
			ID:        uuid.NewString(),
			Title:     "Event",
			IsActive:  true,
			CreatedAt: time.Now().UTC(),
		})
		if err == nil {
			slog.Info("created default remote event", "event_id", event.ID)
		}
	}
	if err != nil {
		slog.Warn("can't resolve active remote event", "error", err)
		g.setConnected(false)
		return false
	}

	g.mu.Lock()
	g.eventID = event.ID
	g.mu.Unlock()
	g.setConnected(true)
	slog.Info("remote store connected", "event_id", event.ID)
	return true
}

// TestConnection pings the store regardless of the connection flag and
// reconnects when the ping succeeds.
func (g *Gateway) TestConnection(ctx context.Context) error {
	if g.backend == nil {
		return ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := g.backend.Ping(ctx); err != nil {
		g.setConnected(false)
		return fmt.Errorf("(*Gateway).TestConnection: %w", err)
	}
	if !g.IsConnected() && !g.Initialize(ctx) {
		return ErrUnavailable
	}
	return nil
}

func (g *Gateway) Close() error {
	g.setConnected(false)
	var errs []error
	if g.realtime != nil {
		errs = append(errs, g.realtime.Close())
	}
	if g.backend != nil {
		errs = append(errs, g.backend.Close())
	}
	return errors.Join(errs...)
}

// run executes fn through the circuit breaker with the gateway timeout.
func run[T any](ctx context.Context, g *Gateway, op string, fn func(ctx context.Context, eventID string) (T, error)) (result T, err error) {
	if !g.IsConnected() {
		return result, ErrUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("remote call panicked", "op", op, "panic", r)
			err = ErrUnavailable
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	eventID := g.EventID()
	res, err := g.cb.Execute(func() (any, error) {
		return fn(ctx, eventID)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("remote call failed", "op", op, "error", err)
		}
		return result, err
	}
	v, _ := res.(T)
	return v, nil
}

// write runs a best-effort write and reports whether it reached the store.
func (g *Gateway) write(ctx context.Context, op string, fn func(ctx context.Context, eventID string) error) bool {
	start := time.Now()
	_, err := run(ctx, g, op, func(ctx context.Context, eventID string) (struct{}, error) {
		return struct{}{}, fn(ctx, eventID)
	})
	if err != nil {
		return false
	}
	if g.onWrite != nil {
		g.onWrite(time.Since(start))
	}
	return true
}
