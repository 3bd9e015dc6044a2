package hub_test

import (
	"context"
	"invitation/src-server/hub"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := hub.New()
	go h.Run(ctx)

	a := h.Subscribe(4)
	b := h.Subscribe(4)
	h.Broadcast(hub.MessageTypeContentUpdate, "payload")

	for _, s := range []*hub.Subscriber{a, b} {
		select {
		case msg := <-s.C():
			if msg.Type != hub.MessageTypeContentUpdate || msg.Data != "payload" {
				t.Error("unexpected message", msg)
			}
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}

	h.Unsubscribe(a)
	if _, ok := <-a.C(); ok {
		t.Error("unsubscribed channel should be closed")
	}
	if h.Count() != 1 {
		t.Error("expected 1 subscriber, got", h.Count())
	}
	// unsubscribing twice is harmless
	h.Unsubscribe(a)
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := hub.New()
	go h.Run(ctx)

	counts := make(chan int, 8)
	h.ObserveCount(func(n int) { counts <- n })

	slow := h.Subscribe(1)
	h.Broadcast("a", nil)
	h.Broadcast("b", nil)
	waitFor(t, func() bool { return h.Count() == 0 })

	<-slow.C()
	if _, ok := <-slow.C(); ok {
		t.Error("dropped subscriber should be closed")
	}
}

func TestRunClosesSubscribersOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := hub.New()
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	s := h.Subscribe(1)
	cancel()
	<-done
	if _, ok := <-s.C(); ok {
		t.Error("subscriber should be closed on shutdown")
	}
}

func TestWebsocketClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := hub.New()
	go h.Run(ctx)

	closed := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := hub.Upgrade(h, w, r, func(c *hub.Client, msg hub.Message) {
			c.Send("echo", msg.Data)
		})
		if err != nil {
			t.Error(err)
			return
		}
		c.OnClose(func() { close(closed) })
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return h.Count() == 1 })

	// case: broadcast reaches the socket
	h.Broadcast(hub.MessageTypeContentUpdate, map[string]string{"eventLocation": "Busan"})
	var msg struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != hub.MessageTypeContentUpdate || msg.Data["eventLocation"] != "Busan" {
		t.Error("unexpected message", msg)
	}

	// case: ping gets a pong
	if err := conn.WriteJSON(hub.Message{Type: hub.MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	var pong hub.Message
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatal(err)
	}
	if pong.Type != hub.MessageTypePong {
		t.Error("expected pong, got", pong.Type)
	}

	// case: other messages reach the handler
	if err := conn.WriteJSON(hub.Message{Type: "hello", Data: "x"}); err != nil {
		t.Fatal(err)
	}
	var echo hub.Message
	if err := conn.ReadJSON(&echo); err != nil {
		t.Fatal(err)
	}
	if echo.Type != "echo" || echo.Data != "x" {
		t.Error("unexpected echo", echo)
	}

	conn.Close()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose not called")
	}
	waitFor(t, func() bool { return h.Count() == 0 })
}

func TestGroup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := hub.New()
	go h.Run(ctx)
	group := hub.NewGroup()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := hub.Upgrade(h, w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		group.Add(r.URL.Query().Get("admin"), c)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"?admin=kim", nil)
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return group.Count("kim") == 1 })

	if n := group.Send("lee", hub.MessageTypeStatsUpdate, 1); n != 0 {
		t.Error("nobody is listening as lee")
	}
	if n := group.Send("kim", hub.MessageTypeStatsUpdate, 2); n != 1 {
		t.Fatal("expected one delivery, got", n)
	}
	var msg hub.Message
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != hub.MessageTypeStatsUpdate {
		t.Error("unexpected message", msg)
	}

	conn.Close()
	waitFor(t, func() bool { return group.Count("kim") == 0 })
}
