package content

import (
	"context"
	"invitation/src-server/hub"
	"log/slog"
	"sync"
)

// LivePage is the rendered guest page kept by the server. It re-renders on
// every contentUpdate broadcast, so a page served after an admin save
// already carries the new content.
type LivePage struct {
	engine *Engine
	hub    *hub.Hub

	mu       sync.RWMutex
	html     string
	renders  int
	rendered chan struct{}
}

func NewLivePage(engine *Engine, h *hub.Hub) *LivePage {
	return &LivePage{engine: engine, hub: h, rendered: make(chan struct{}, 1)}
}

func (p *LivePage) render(ctx context.Context) {
	out, err := p.engine.RenderPage(ctx)
	if err != nil {
		slog.Error("can't render guest page", "error", err)
		return
	}
	p.mu.Lock()
	p.html = out
	p.renders++
	p.mu.Unlock()
	select {
	case p.rendered <- struct{}{}:
	default:
	}
}

// Run renders once, then again after each contentUpdate until ctx is done.
// Rendering happens off the receive loop so a slow remote load never backs
// up the subscription; if the hub drops the subscription anyway, Run
// subscribes again and re-renders.
func (p *LivePage) Run(ctx context.Context) {
	dirty := make(chan struct{}, 1)
	go p.renderLoop(ctx, dirty)
	markDirty(dirty)
	for ctx.Err() == nil {
		sub := p.hub.Subscribe(16)
		p.listen(ctx, sub, dirty)
		p.hub.Unsubscribe(sub)
		if ctx.Err() == nil {
			slog.Warn("guest page subscription dropped, resubscribing")
			markDirty(dirty)
		}
	}
}

func (p *LivePage) listen(ctx context.Context, sub *hub.Subscriber, dirty chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			if msg.Type == hub.MessageTypeContentUpdate {
				markDirty(dirty)
			}
		}
	}
}

func (p *LivePage) renderLoop(ctx context.Context, dirty <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-dirty:
			p.render(ctx)
		}
	}
}

// markDirty coalesces pending renders into one.
func markDirty(dirty chan struct{}) {
	select {
	case dirty <- struct{}{}:
	default:
	}
}

// HTML returns the latest render, rendering on demand before Run's first.
func (p *LivePage) HTML(ctx context.Context) string {
	p.mu.RLock()
	out := p.html
	p.mu.RUnlock()
	if out == "" {
		p.render(ctx)
		p.mu.RLock()
		out = p.html
		p.mu.RUnlock()
	}
	return out
}

// Rendered fires after each render; at most one signal is buffered.
func (p *LivePage) Rendered() <-chan struct{} {
	return p.rendered
}

func (p *LivePage) Renders() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.renders
}
