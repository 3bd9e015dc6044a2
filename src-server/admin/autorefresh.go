package admin

import (
	"context"
	"sync"
	"time"
)

const DefaultRefreshInterval = 5 * time.Second

// AutoRefresh re-runs fn on a ticker while enabled.
type AutoRefresh struct {
	interval time.Duration
	fn       func(ctx context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAutoRefresh(interval time.Duration, fn func(ctx context.Context)) *AutoRefresh {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &AutoRefresh{interval: interval, fn: fn}
}

// Toggle switches the timer on or off. Switching on twice keeps one timer.
func (a *AutoRefresh) Toggle(ctx context.Context, on bool) {
	if !on {
		a.Stop()
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.loop(ctx, a.done)
}

func (a *AutoRefresh) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.fn(ctx)
		}
	}
}

// Stop cancels the timer and waits for a running refresh to finish.
func (a *AutoRefresh) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (a *AutoRefresh) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}
