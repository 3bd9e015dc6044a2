package remote

import (
	"context"
	"invitation/src-server/model"
	"log/slog"
	"sync"
)

// Feed holds the guestbook and RSVP subscriptions of one process and
// renews them each time the gateway reconnects, so a store that was down
// at boot still pushes inserts once it comes back.
type Feed struct {
	g           *Gateway
	ctx         context.Context
	onGuestbook func(model.GuestbookMessage)
	onRSVP      func(model.AttendeeRecord)

	mu     sync.Mutex
	subs   []Subscription
	closed bool
}

// Follow subscribes now and again after every reconnect. Either callback
// may be nil.
func (g *Gateway) Follow(ctx context.Context, onGuestbook func(model.GuestbookMessage), onRSVP func(model.AttendeeRecord)) *Feed {
	f := &Feed{g: g, ctx: ctx, onGuestbook: onGuestbook, onRSVP: onRSVP}
	f.renew()
	g.OnConnectionChange(func(connected bool) {
		if connected {
			slog.Info("remote store reconnected, renewing realtime subscriptions")
			f.renew()
		}
	})
	return f
}

func (f *Feed) renew() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.ctx.Err() != nil {
		return
	}
	for _, sub := range f.subs {
		sub.Unsubscribe()
	}
	f.subs = f.subs[:0]
	if f.onGuestbook != nil {
		f.subs = append(f.subs, f.g.SubscribeToGuestbook(f.ctx, f.onGuestbook))
	}
	if f.onRSVP != nil {
		f.subs = append(f.subs, f.g.SubscribeToRSVP(f.ctx, f.onRSVP))
	}
}

// Close drops the subscriptions; later reconnects leave the feed closed.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for _, sub := range f.subs {
		sub.Unsubscribe()
	}
	f.subs = nil
}
