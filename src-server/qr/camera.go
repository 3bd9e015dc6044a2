package qr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"sync"
)

type FacingMode string

const (
	FacingEnvironment FacingMode = "environment"
	FacingUser        FacingMode = "user"
	// FacingAny leaves the choice of device to the camera.
	FacingAny FacingMode = ""
)

type Constraints struct {
	Facing FacingMode
}

func (c Constraints) String() string {
	if c.Facing == FacingAny {
		return "unconstrained"
	}
	return string(c.Facing)
}

// ConstraintChain is tried in order until a camera opens.
var ConstraintChain = []Constraints{
	{Facing: FacingEnvironment},
	{Facing: FacingUser},
	{Facing: FacingAny},
}

var (
	ErrCameraDenied       = errors.New("camera access denied")
	ErrConstraintRejected = errors.New("camera can't satisfy constraints")
	ErrCameraUnavailable  = errors.New("camera unavailable")
)

type Camera interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open camera with its media tracks.
type Stream interface {
	// Frame returns the newest frame not yet returned.
	Frame() (image.Image, bool)
	// Stop ends every track. It is safe to call more than once.
	Stop()
	ActiveTracks() int
}

// Acquire walks ConstraintChain and returns the first stream that opens.
func Acquire(ctx context.Context, cam Camera) (Stream, Constraints, error) {
	if cam == nil {
		return nil, Constraints{}, ErrCameraUnavailable
	}
	var errs []error
	for _, c := range ConstraintChain {
		if err := ctx.Err(); err != nil {
			return nil, Constraints{}, err
		}
		stream, err := cam.Open(ctx, c)
		if err == nil {
			slog.Debug("camera opened", "constraints", c.String())
			return stream, c, nil
		}
		slog.Debug("camera constraints failed", "constraints", c.String(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", c, err))
	}
	return nil, Constraints{}, fmt.Errorf("Acquire: %w: %w", ErrCameraUnavailable, errors.Join(errs...))
}

// FrameFeed is a Camera whose frames are pushed in from outside, for
// instance snapshots uploaded by the admin's browser.
type FrameFeed struct {
	mu      sync.Mutex
	facings []FacingMode
	denied  bool
	streams map[*feedStream]struct{}
}

// NewFrameFeed builds a feed for a device offering the given facing modes.
// Unconstrained requests always succeed unless the feed is denied.
func NewFrameFeed(facings ...FacingMode) *FrameFeed {
	return &FrameFeed{facings: facings, streams: make(map[*feedStream]struct{})}
}

// Deny makes every later Open fail like a refused permission prompt.
func (f *FrameFeed) Deny() {
	f.mu.Lock()
	f.denied = true
	f.mu.Unlock()
}

func (f *FrameFeed) Open(_ context.Context, c Constraints) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denied {
		return nil, ErrCameraDenied
	}
	if c.Facing != FacingAny && !slices.Contains(f.facings, c.Facing) {
		return nil, ErrConstraintRejected
	}
	s := &feedStream{feed: f, tracks: 1}
	f.streams[s] = struct{}{}
	return s, nil
}

// Push delivers a frame to every open stream.
func (f *FrameFeed) Push(img image.Image) {
	f.mu.Lock()
	streams := make([]*feedStream, 0, len(f.streams))
	for s := range f.streams {
		streams = append(streams, s)
	}
	f.mu.Unlock()
	for _, s := range streams {
		s.push(img)
	}
}

// OpenStreams counts streams that have not been stopped.
func (f *FrameFeed) OpenStreams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

type feedStream struct {
	feed *FrameFeed

	mu     sync.Mutex
	tracks int
	latest image.Image
}

func (s *feedStream) push(img image.Image) {
	s.mu.Lock()
	if s.tracks > 0 {
		s.latest = img
	}
	s.mu.Unlock()
}

func (s *feedStream) Frame() (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracks == 0 || s.latest == nil {
		return nil, false
	}
	img := s.latest
	s.latest = nil
	return img, true
}

func (s *feedStream) Stop() {
	s.mu.Lock()
	s.tracks = 0
	s.latest = nil
	s.mu.Unlock()

	s.feed.mu.Lock()
	delete(s.feed.streams, s)
	s.feed.mu.Unlock()
}

func (s *feedStream) ActiveTracks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks
}
