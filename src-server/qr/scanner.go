package qr

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"
)

const DefaultSampleInterval = 100 * time.Millisecond

type Scanner struct {
	decoder  Decoder
	interval time.Duration
}

func NewScanner(decoder Decoder, interval time.Duration) *Scanner {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Scanner{decoder: decoder, interval: interval}
}

// Session samples one stream until the first decode, Stop, or ctx ends.
type Session struct {
	stream Stream
	ticker *time.Ticker

	mu      sync.Mutex
	stopped bool
	timers  int
	text    string
	decoded bool

	quit chan struct{}
	done chan struct{}
}

// Start begins sampling stream. onDecode runs at most once, on the
// sampling goroutine, after sampling has already stopped.
func (sc *Scanner) Start(ctx context.Context, stream Stream, onDecode func(text string)) *Session {
	s := &Session{
		stream: stream,
		ticker: time.NewTicker(sc.interval),
		timers: 1,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.loop(ctx, sc.decoder, onDecode)
	return s
}

func (s *Session) loop(ctx context.Context, decoder Decoder, onDecode func(string)) {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case <-ctx.Done():
			s.halt()
			return
		case <-s.ticker.C:
		}

		if s.Stopped() {
			return
		}
		frame, ok := s.stream.Frame()
		if !ok {
			continue
		}
		text, err := decodeSafely(decoder, frame)
		if err != nil {
			if !errors.Is(err, ErrNoCode) {
				slog.Debug("frame decode failed", "error", err)
			}
			continue
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.text, s.decoded = text, true
		s.mu.Unlock()

		s.halt()
		if onDecode != nil {
			onDecode(text)
		}
		return
	}
}

func decodeSafely(decoder Decoder, frame image.Image) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("decoder panicked", "panic", r)
			err = ErrNoCode
		}
	}()
	return decoder.Decode(frame)
}

// halt stops the media tracks and then the sampling timer.
func (s *Session) halt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.stopped = true
	s.stream.Stop()
	s.ticker.Stop()
	s.timers = 0
	close(s.quit)
	return true
}

// Stop releases the camera, then cancels sampling, and waits for the
// sampling goroutine to exit. It is safe to call from any goroutine other
// than the onDecode callback, and more than once.
func (s *Session) Stop() {
	s.halt()
	<-s.done
}

func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Done is closed once sampling has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result is the decoded text, if any.
func (s *Session) Result() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, s.decoded
}

func (s *Session) ActiveTracks() int {
	return s.stream.ActiveTracks()
}

func (s *Session) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers
}
