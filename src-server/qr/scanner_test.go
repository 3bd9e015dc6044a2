package qr_test

import (
	"context"
	"errors"
	"image"
	"invitation/src-server/qr"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquire(t *testing.T) {
	ctx := context.Background()

	// case: environment camera available
	stream, c, err := qr.Acquire(ctx, qr.NewFrameFeed(qr.FacingEnvironment, qr.FacingUser))
	if err != nil || c.Facing != qr.FacingEnvironment {
		t.Error("expected environment camera", c, err)
	}
	stream.Stop()

	// case: laptop with a front camera only
	_, c, err = qr.Acquire(ctx, qr.NewFrameFeed(qr.FacingUser))
	if err != nil || c.Facing != qr.FacingUser {
		t.Error("expected user camera", c, err)
	}

	// case: no facing information
	_, c, err = qr.Acquire(ctx, qr.NewFrameFeed())
	if err != nil || c.Facing != qr.FacingAny {
		t.Error("expected unconstrained camera", c, err)
	}

	// case: permission denied
	feed := qr.NewFrameFeed(qr.FacingEnvironment)
	feed.Deny()
	if _, _, err := qr.Acquire(ctx, feed); !errors.Is(err, qr.ErrCameraUnavailable) || !errors.Is(err, qr.ErrCameraDenied) {
		t.Error("expected camera unavailable, got", err)
	}

	if _, _, err := qr.Acquire(ctx, nil); !errors.Is(err, qr.ErrCameraUnavailable) {
		t.Error("nil camera should be unavailable")
	}
}

func TestScannerStopsAtFirstDecode(t *testing.T) {
	ctx := context.Background()
	feed := qr.NewFrameFeed(qr.FacingEnvironment)
	stream, _, err := qr.Acquire(ctx, feed)
	if err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	decoded := make(chan string, 2)
	session := qr.NewScanner(qr.ZXingDecoder{}, 5*time.Millisecond).Start(ctx, stream, func(text string) {
		calls.Add(1)
		decoded <- text
	})

	// frames without a code keep the session sampling
	feed.Push(image.NewGray(image.Rect(0, 0, 64, 64)))
	time.Sleep(30 * time.Millisecond)
	if session.Stopped() {
		t.Fatal("session stopped without a decode")
	}

	code := qr.DefaultChain().Render(`{"id":"QR-1"}`)
	feed.Push(code.Image)
	select {
	case text := <-decoded:
		if text != `{"id":"QR-1"}` {
			t.Error("unexpected text", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("code was not decoded")
	}
	<-session.Done()

	feed.Push(code.Image)
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != 1 {
		t.Error("expected exactly one decode, got", calls.Load())
	}
	if session.ActiveTracks() != 0 || session.PendingTimers() != 0 || feed.OpenStreams() != 0 {
		t.Error("session should have released the camera and timer")
	}
	if text, ok := session.Result(); !ok || text != `{"id":"QR-1"}` {
		t.Error("unexpected result", text, ok)
	}
}

func TestStopReleasesEverything(t *testing.T) {
	ctx := context.Background()
	feed := qr.NewFrameFeed(qr.FacingEnvironment)
	stream, _, err := qr.Acquire(ctx, feed)
	if err != nil {
		t.Fatal(err)
	}
	session := qr.NewScanner(qr.ZXingDecoder{}, time.Millisecond).Start(ctx, stream, func(string) {
		t.Error("no decode expected")
	})
	if session.ActiveTracks() != 1 || session.PendingTimers() != 1 {
		t.Fatal("session should be sampling")
	}

	session.Stop()
	if session.ActiveTracks() != 0 {
		t.Error("tracks still active after stop")
	}
	if session.PendingTimers() != 0 {
		t.Error("timer still pending after stop")
	}
	if feed.OpenStreams() != 0 {
		t.Error("stream still registered on the feed")
	}
	session.Stop()
}

func TestContextEndsSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	feed := qr.NewFrameFeed()
	stream, _, _ := qr.Acquire(ctx, feed)
	session := qr.NewScanner(qr.ZXingDecoder{}, time.Millisecond).Start(ctx, stream, nil)
	cancel()
	select {
	case <-session.Done():
	case <-time.After(time.Second):
		t.Fatal("session ignored context cancellation")
	}
	if session.ActiveTracks() != 0 || session.PendingTimers() != 0 {
		t.Error("cancelled session should release everything")
	}
}
