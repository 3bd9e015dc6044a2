package admin

import (
	"context"
	"errors"
	"image"
	"invitation/src-server/qr"
	"log/slog"
	"sync"
	"time"
)

var ErrNoScan = errors.New("no scan in progress")

// ScanState is what the admin's scanner panel shows.
type ScanState struct {
	Active      bool           `json:"active"`
	Constraints string         `json:"constraints,omitempty"`
	Acceptance  *qr.Acceptance `json:"acceptance,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Console is the live state of one signed-in admin: the visible section,
// the auto-refresh timer and the scan session.
type Console struct {
	AdminID     string
	Navigator   *Navigator
	AutoRefresh *AutoRefresh
	Desk        *qr.Desk

	scanner *qr.Scanner
	feed    *qr.FrameFeed

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	session *qr.Session
	state   ScanState
}

type ConsoleOptions struct {
	Loaders         map[Section]Loader
	Desk            *qr.Desk
	Scanner         *qr.Scanner
	RefreshInterval time.Duration
	// OnRefresh receives the reloaded visible section on every auto-refresh tick.
	OnRefresh func(section Section, data any)
}

func NewConsole(adminID string, opts ConsoleOptions) *Console {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Console{
		AdminID:   adminID,
		Navigator: NewNavigator(opts.Loaders),
		Desk:      opts.Desk,
		scanner:   opts.Scanner,
		feed:      qr.NewFrameFeed(qr.FacingEnvironment, qr.FacingUser),
		ctx:       ctx,
		cancel:    cancel,
	}
	c.AutoRefresh = NewAutoRefresh(opts.RefreshInterval, func(ctx context.Context) {
		section, data, err := c.Navigator.Reload(ctx)
		if err != nil {
			slog.Warn("auto refresh failed", "admin_id", adminID, "section", section, "error", err)
			return
		}
		if opts.OnRefresh != nil {
			opts.OnRefresh(section, data)
		}
	})
	return c
}

// StartScan opens the camera and begins sampling. A running scan is
// stopped first.
func (c *Console) StartScan(ctx context.Context) (ScanState, error) {
	c.StopScan()

	stream, constraints, err := qr.Acquire(ctx, c.feed)
	if err != nil {
		c.mu.Lock()
		c.state = ScanState{Error: err.Error()}
		c.mu.Unlock()
		return c.Scan(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = ScanState{Active: true, Constraints: constraints.String()}
	c.session = c.scanner.Start(c.ctx, stream, func(text string) {
		acceptance, err := c.Desk.Accept(c.ctx, text)
		c.mu.Lock()
		defer c.mu.Unlock()
		c.state.Active = false
		if err != nil {
			c.state.Error = err.Error()
			return
		}
		c.state.Acceptance = &acceptance
	})
	return c.state, nil
}

// PushFrame hands a camera frame from the admin's browser to the scanner.
func (c *Console) PushFrame(img image.Image) error {
	c.mu.Lock()
	active := c.session != nil && !c.session.Stopped()
	c.mu.Unlock()
	if !active {
		return ErrNoScan
	}
	c.feed.Push(img)
	return nil
}

// StopScan releases the camera and the sampling timer. The last result
// stays visible.
func (c *Console) StopScan() {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()
	if session == nil {
		return
	}
	session.Stop()
	c.mu.Lock()
	c.state.Active = false
	c.mu.Unlock()
}

func (c *Console) Scan() ScanState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ClearScan forgets the last result, after a confirm or reject.
func (c *Console) ClearScan() {
	c.mu.Lock()
	c.state = ScanState{Active: c.session != nil && !c.session.Stopped()}
	c.mu.Unlock()
}

// Resources reports open camera tracks and pending timers.
func (c *Console) Resources() (tracks, timers int) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session != nil {
		timers = session.PendingTimers()
	}
	if c.AutoRefresh.Enabled() {
		timers++
	}
	return c.feed.OpenStreams(), timers
}

// Teardown cancels every timer and releases the camera.
func (c *Console) Teardown() {
	c.AutoRefresh.Stop()
	c.StopScan()
	c.cancel()
	c.Desk.Reject()
}

// Consoles holds one console per signed-in admin.
type Consoles struct {
	newConsole func(adminID string) *Console

	mu       sync.Mutex
	consoles map[string]*Console
}

func NewConsoles(newConsole func(adminID string) *Console) *Consoles {
	return &Consoles{newConsole: newConsole, consoles: make(map[string]*Console)}
}

func (cs *Consoles) Get(adminID string) *Console {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c, ok := cs.consoles[adminID]
	if !ok {
		c = cs.newConsole(adminID)
		cs.consoles[adminID] = c
	}
	return c
}

// Remove tears down the console of adminID, on logout.
func (cs *Consoles) Remove(adminID string) {
	cs.mu.Lock()
	c, ok := cs.consoles[adminID]
	delete(cs.consoles, adminID)
	cs.mu.Unlock()
	if ok {
		c.Teardown()
	}
}

func (cs *Consoles) Close() {
	cs.mu.Lock()
	all := cs.consoles
	cs.consoles = make(map[string]*Console)
	cs.mu.Unlock()
	for _, c := range all {
		c.Teardown()
	}
}
