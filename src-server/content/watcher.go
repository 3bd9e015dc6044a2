package content

import (
	"context"
	"invitation/src-server/storage"
	"log/slog"
	"time"
)

const DefaultPollInterval = time.Second

// Watcher notices update flags written by other instances sharing the local
// store. It polls and also wakes up on store change notifications.
type Watcher struct {
	engine   *Engine
	interval time.Duration
	onUpdate func(ctx context.Context)

	lastApplied time.Time
}

func NewWatcher(engine *Engine, interval time.Duration, onUpdate func(ctx context.Context)) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{engine: engine, interval: interval, onUpdate: onUpdate}
}

// Check runs one poll. Updates this process propagated itself are already
// delivered and are skipped.
func (w *Watcher) Check(ctx context.Context) bool {
	flag := storage.Get(ctx, w.engine.store, storage.KeyContentUpdated, UpdateFlag{})
	applied := w.lastApplied
	if own := w.engine.LastPropagated(); own.After(applied) {
		applied = own
	}
	if !HasPendingUpdate(flag, applied) {
		return false
	}
	w.lastApplied = flag.At
	slog.Debug("content update detected", "at", flag.At)
	if w.onUpdate != nil {
		w.onUpdate(ctx)
	}
	return true
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	// start from the current flag, only later updates count
	w.lastApplied = storage.Get(ctx, w.engine.store, storage.KeyContentUpdated, UpdateFlag{}).At

	wake := make(chan struct{}, 1)
	unsubscribe := w.engine.store.OnChange(func(key string) {
		if key != storage.KeyContentUpdated {
			return
		}
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-wake:
		}
		w.Check(ctx)
	}
}
