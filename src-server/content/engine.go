package content

import (
	"context"
	"fmt"
	"invitation/src-server/hub"
	"invitation/src-server/model"
	"invitation/src-server/remote"
	"invitation/src-server/storage"
	"log/slog"
	"sync"
	"time"
)

type Source string

const (
	SourceDefaults Source = "defaults"
	SourceLocal    Source = "local"
	SourceRemote   Source = "remote"
)

type Broadcaster interface {
	Broadcast(msgType string, data any)
}

type SaveResult struct {
	SavedRemotely bool `json:"savedRemotely"`
}

// Engine keeps the guest page in line with the admin's overrides.
type Engine struct {
	store       *storage.Adapter
	gateway     *remote.Gateway
	broadcaster Broadcaster
	page        string
	now         func() time.Time

	mu             sync.Mutex
	lastPropagated time.Time
}

// NewEngine renders into page. broadcaster may be nil.
func NewEngine(store *storage.Adapter, gateway *remote.Gateway, broadcaster Broadcaster, page string) *Engine {
	return &Engine{
		store:       store,
		gateway:     gateway,
		broadcaster: broadcaster,
		page:        page,
		now:         time.Now,
	}
}

// Load returns the overrides in effect: the remote copy when connected and
// non-empty, else the local copy.
func (e *Engine) Load(ctx context.Context) (model.ContentOverrides, Source) {
	overrides := storage.Get(ctx, e.store, storage.KeyContentData, model.NewContentOverrides())
	source := SourceLocal
	if overrides.IsEmpty() {
		source = SourceDefaults
	}
	if e.gateway.IsConnected() {
		if remoteCopy := e.gateway.GetContentData(ctx); !remoteCopy.IsEmpty() {
			overrides, source = remoteCopy, SourceRemote
		}
	}
	return overrides, source
}

// Merged is Load laid over Defaults.
func (e *Engine) Merged(ctx context.Context) model.ContentOverrides {
	overrides, _ := e.Load(ctx)
	return Merge(Defaults(), overrides)
}

// Save persists locally first, then best-effort remotely, then propagates.
func (e *Engine) Save(ctx context.Context, overrides model.ContentOverrides) (SaveResult, error) {
	if err := e.store.Set(ctx, storage.KeyContentData, overrides); err != nil {
		return SaveResult{}, fmt.Errorf("(*Engine).Save: %w", err)
	}
	saved := e.gateway.SaveContentData(ctx, overrides)
	e.Propagate(ctx, overrides)
	slog.Info("content saved", "fields", len(overrides.Fields), "gallery", len(overrides.GalleryImages), "remote", saved)
	return SaveResult{SavedRemotely: saved}, nil
}

// Reset drops every override so the page shows the defaults again.
func (e *Engine) Reset(ctx context.Context) (SaveResult, error) {
	if err := e.store.Remove(ctx, storage.KeyContentData); err != nil {
		return SaveResult{}, fmt.Errorf("(*Engine).Reset: %w", err)
	}
	saved := e.gateway.ResetContentData(ctx)
	e.Propagate(ctx, model.NewContentOverrides())
	return SaveResult{SavedRemotely: saved}, nil
}

// Propagate tells already open pages about new overrides: through the hub
// right away and through the update flag for instances sharing the store.
// Both are fire-and-forget.
func (e *Engine) Propagate(ctx context.Context, overrides model.ContentOverrides) {
	at := e.now()
	e.mu.Lock()
	e.lastPropagated = at
	e.mu.Unlock()

	if e.broadcaster != nil {
		e.broadcaster.Broadcast(hub.MessageTypeContentUpdate, overrides)
	}
	if err := e.store.Set(ctx, storage.KeyContentUpdated, UpdateFlag{Pending: true, At: at}); err != nil {
		slog.Error("can't write content update flag", "error", err)
	}
}

func (e *Engine) LastPropagated() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPropagated
}

// RenderPage renders the current merged content into the page shell.
func (e *Engine) RenderPage(ctx context.Context) (string, error) {
	return RenderHTML(e.page, e.Merged(ctx))
}
