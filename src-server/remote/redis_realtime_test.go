package remote_test

import (
	"context"
	"invitation/src-server/model"
	"invitation/src-server/remote"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisRealtime(t *testing.T) {
	mr := miniredis.RunT(t)
	rt := remote.NewRedisRealtime(mr.Addr(), "")
	defer rt.Close()
	ctx := context.Background()

	got := make(chan string, 1)
	sub, err := rt.Subscribe(ctx, "invitation:e1:rsvp", func(payload []byte) {
		got <- string(payload)
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := rt.Publish(ctx, "invitation:e1:rsvp", []byte(`{"id":"1"}`)); err != nil {
		t.Fatal(err)
	}
	select {
	case payload := <-got:
		if payload != `{"id":"1"}` {
			t.Error("unexpected payload", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	sub.Unsubscribe()
	// a second call is harmless
	sub.Unsubscribe()
}

func TestGatewayOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rt := remote.NewRedisRealtime(mr.Addr(), "")
	g := remote.NewGateway(remote.NewMemoryBackend(), rt, time.Second)
	defer g.Close()
	ctx := context.Background()
	if !g.Initialize(ctx) {
		t.Fatal("initialize failed")
	}

	got := make(chan model.AttendeeRecord, 1)
	sub := g.SubscribeToRSVP(ctx, func(rec model.AttendeeRecord) { got <- rec })
	defer sub.Unsubscribe()

	if !g.SaveRSVP(ctx, model.ResponseYes, model.AttendeeRecord{ID: "r1", Name: "Kim"}) {
		t.Fatal("save failed")
	}
	select {
	case rec := <-got:
		if rec.Name != "Kim" || rec.Response != model.ResponseYes {
			t.Error("unexpected record", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("rsvp notification not received")
	}
}
