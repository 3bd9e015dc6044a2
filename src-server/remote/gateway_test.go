package remote_test

import (
	"context"
	"errors"
	"invitation/src-server/model"
	"invitation/src-server/remote"
	"testing"
	"time"

	"github.com/google/uuid"
)

func connectedGateway(t *testing.T) (*remote.Gateway, *remote.MemoryBackend) {
	t.Helper()
	backend := remote.NewMemoryBackend()
	g := remote.NewGateway(backend, remote.NewMemoryRealtime(), time.Second)
	if !g.Initialize(context.Background()) {
		t.Fatal("initialize should succeed against the memory backend")
	}
	return g, backend
}

type panickyBackend struct {
	*remote.MemoryBackend
}

func (panickyBackend) Ping(context.Context) error {
	panic("boom")
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	// case: disabled
	g := remote.NewGateway(nil, nil, time.Second)
	if g.Initialize(ctx) || g.IsConnected() {
		t.Error("nil backend must not connect")
	}

	// case: unreachable
	backend := remote.NewMemoryBackend()
	backend.SetErr(errors.New("connection refused"))
	g = remote.NewGateway(backend, nil, time.Second)
	if g.Initialize(ctx) || g.IsConnected() {
		t.Error("failing backend must not connect")
	}

	// case: panicking backend never escapes
	g = remote.NewGateway(panickyBackend{remote.NewMemoryBackend()}, nil, time.Second)
	if g.Initialize(ctx) {
		t.Error("panicking backend must not connect")
	}

	// case: creates a default event
	g, _ = connectedGateway(t)
	if g.EventID() == "" {
		t.Error("event id should be resolved")
	}
	event, ok := g.GetEventInfo(ctx)
	if !ok || event.ID != g.EventID() || !event.IsActive {
		t.Error("unexpected event info", event)
	}
}

func TestWritesWhileDisconnected(t *testing.T) {
	ctx := context.Background()
	backend := remote.NewMemoryBackend()
	g := remote.NewGateway(backend, nil, time.Second)

	if g.SaveRSVP(ctx, model.ResponseNo, model.AttendeeRecord{ID: "1", Name: "a"}) {
		t.Error("disconnected write should report not saved")
	}
	if g.SaveGuestbookMessage(ctx, model.GuestbookMessage{ID: "1"}) {
		t.Error("disconnected write should report not saved")
	}
	if g.SaveContentData(ctx, model.NewContentOverrides()) {
		t.Error("disconnected write should report not saved")
	}
	if !g.GetContentData(ctx).IsEmpty() {
		t.Error("disconnected read should be empty")
	}
	if _, ok := g.ListRSVPs(ctx); ok {
		t.Error("disconnected read should report not ok")
	}
	if err := g.DeleteEntry(ctx, "x"); !errors.Is(err, remote.ErrUnavailable) {
		t.Error("expected ErrUnavailable, got", err)
	}
	sub := g.SubscribeToRSVP(ctx, func(model.AttendeeRecord) {})
	if sub == nil {
		t.Fatal("subscription must never be nil")
	}
	sub.Unsubscribe()
}

func TestWriteFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	g, backend := connectedGateway(t)
	backend.SetErr(errors.New("timeout"))
	if g.SaveRSVP(ctx, model.ResponseYes, model.AttendeeRecord{ID: "1", Name: "a"}) {
		t.Error("failed write should report false")
	}
	if !g.IsConnected() {
		t.Error("a failed call does not change the connection flag")
	}
}

func TestRSVPAndStatistics(t *testing.T) {
	ctx := context.Background()
	g, _ := connectedGateway(t)

	for i, resp := range []model.Response{model.ResponseYes, model.ResponseYes, model.ResponseNo, model.ResponseMaybe} {
		rec := model.AttendeeRecord{ID: uuid.NewString(), Name: "guest", CreatedAt: time.Now().Add(time.Duration(i) * time.Second)}
		if !g.SaveRSVP(ctx, resp, rec) {
			t.Fatal("save failed")
		}
	}
	qr := model.QRRecord{QRPayload: model.QRPayload{ID: "QR-1", Status: model.QRStatusActive}}
	if !g.SaveQRCode(ctx, qr) {
		t.Fatal("save qr failed")
	}
	if !g.MarkQRCodeUsed(ctx, "QR-1", time.Now()) {
		t.Fatal("mark used failed")
	}

	stats, ok := g.GetRSVPStatistics(ctx)
	if !ok {
		t.Fatal("stats failed")
	}
	if stats.TotalRSVP != 4 || stats.Yes != 2 || stats.No != 1 || stats.Maybe != 1 {
		t.Error("unexpected rsvp stats", stats)
	}
	if stats.QRGenerated != 1 || stats.QRUsed != 1 || stats.UsageRate() != 100 {
		t.Error("unexpected qr stats", stats)
	}

	rsvps, ok := g.ListRSVPs(ctx)
	if !ok || len(rsvps) != 4 {
		t.Fatal("expected 4 rsvps", len(rsvps))
	}
	if err := g.DeleteRSVP(ctx, rsvps[0].ID); err != nil {
		t.Error(err)
	}
	if err := g.DeleteRSVP(ctx, rsvps[0].ID); !errors.Is(err, remote.ErrNotFound) {
		t.Error("second delete should be not found, got", err)
	}
}

func TestGuestbookApprovedOnly(t *testing.T) {
	ctx := context.Background()
	g, _ := connectedGateway(t)

	base := time.Now()
	for i := range 60 {
		msg := model.GuestbookMessage{
			ID:        uuid.NewString(),
			Name:      "n",
			Message:   "m",
			Approved:  i != 0,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if !g.SaveGuestbookMessage(ctx, msg) {
			t.Fatal("save failed")
		}
	}

	msgs, ok := g.LoadGuestbookMessages(ctx, 0)
	if !ok || len(msgs) != remote.DefaultGuestbookLimit {
		t.Fatal("expected default limit", len(msgs))
	}
	if !msgs[0].CreatedAt.After(msgs[1].CreatedAt) {
		t.Error("messages should be newest first")
	}
	all, _ := g.ListGuestbookMessages(ctx)
	if len(all) != 60 {
		t.Error("admin listing should include unapproved", len(all))
	}

	hidden := all[len(all)-1]
	if hidden.Approved {
		t.Fatal("oldest message should be the unapproved one")
	}
	if err := g.SetGuestbookApproval(ctx, hidden.ID, true); err != nil {
		t.Error(err)
	}
	if err := g.DeleteGuestbookMessage(ctx, "missing"); !errors.Is(err, remote.ErrNotFound) {
		t.Error("expected not found, got", err)
	}
}

func TestContentSaveAndReset(t *testing.T) {
	ctx := context.Background()
	g, _ := connectedGateway(t)

	if !g.GetContentData(ctx).IsEmpty() {
		t.Error("fresh event should have no content")
	}
	c := model.NewContentOverrides()
	c.Set("eventTitle", "X")
	if !g.SaveContentData(ctx, c) {
		t.Fatal("save failed")
	}
	if g.GetContentData(ctx).Get("eventTitle") != "X" {
		t.Error("content not stored")
	}
	if !g.ResetContentData(ctx) {
		t.Fatal("reset failed")
	}
	if !g.GetContentData(ctx).IsEmpty() {
		t.Error("reset should clear content")
	}
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	g, _ := connectedGateway(t)

	got := make(chan model.GuestbookMessage, 1)
	sub := g.SubscribeToGuestbook(ctx, func(msg model.GuestbookMessage) { got <- msg })

	g.SaveGuestbookMessage(ctx, model.GuestbookMessage{ID: "g1", Name: "kim", Message: "hi", Approved: true})
	select {
	case msg := <-got:
		if msg.ID != "g1" || msg.Name != "kim" {
			t.Error("unexpected notification", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}

	sub.Unsubscribe()
	g.SaveGuestbookMessage(ctx, model.GuestbookMessage{ID: "g2", Name: "lee", Message: "yo", Approved: true})
	select {
	case msg := <-got:
		t.Error("no notification expected after unsubscribe", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFeedRenewsAfterReconnect(t *testing.T) {
	ctx := context.Background()
	backend := remote.NewMemoryBackend()
	backend.SetErr(errors.New("down"))
	g := remote.NewGateway(backend, remote.NewMemoryRealtime(), time.Second)
	if g.Initialize(ctx) {
		t.Fatal("initialize should fail while the store is down")
	}

	got := make(chan model.GuestbookMessage, 4)
	feed := g.Follow(ctx, func(msg model.GuestbookMessage) { got <- msg }, nil)
	defer feed.Close()

	backend.SetErr(nil)
	if err := g.TestConnection(ctx); err != nil {
		t.Fatal("reconnect failed", err)
	}
	if !g.SaveGuestbookMessage(ctx, model.GuestbookMessage{ID: "g1", Name: "kim", Message: "hi", Approved: true}) {
		t.Fatal("save should reach the store")
	}
	select {
	case msg := <-got:
		if msg.ID != "g1" {
			t.Error("unexpected notification", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("subscription was not renewed after reconnect")
	}

	// a second connect must not double deliveries
	if err := g.TestConnection(ctx); err != nil {
		t.Fatal(err)
	}
	g.SaveGuestbookMessage(ctx, model.GuestbookMessage{ID: "g2", Name: "lee", Message: "yo", Approved: true})
	<-got
	select {
	case msg := <-got:
		t.Error("duplicate notification", msg)
	case <-time.After(100 * time.Millisecond):
	}

	feed.Close()
	g.SaveGuestbookMessage(ctx, model.GuestbookMessage{ID: "g3", Name: "park", Message: "yo", Approved: true})
	select {
	case msg := <-got:
		t.Error("no notification expected after close", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEntriesAndMigrate(t *testing.T) {
	ctx := context.Background()
	g, _ := connectedGateway(t)

	entry := model.ScannedEntryRecord{QRPayload: model.QRPayload{ID: "QR-9"}, EntryTime: time.Now()}
	if !g.SaveEntry(ctx, entry) || !g.SaveEntry(ctx, entry) {
		t.Fatal("save entry failed")
	}
	entries, _ := g.ListEntries(ctx)
	if len(entries) != 1 {
		t.Error("duplicate entry stored", len(entries))
	}

	c := model.NewContentOverrides()
	c.Set("eventLocation", "Busan")
	report, err := g.Migrate(ctx,
		[]model.AttendeeRecord{{ID: "r1", Name: "a", Response: model.ResponseYes}},
		[]model.GuestbookMessage{{ID: "m1", Name: "b", Message: "c", Approved: true}},
		c,
	)
	if err != nil {
		t.Fatal(err)
	}
	if report.RSVPs != 1 || report.Guestbook != 1 || !report.Content {
		t.Error("unexpected report", report)
	}
}
