package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type Section string

const (
	SectionDashboard Section = "dashboard"
	SectionAttendees Section = "attendees"
	SectionGuestbook Section = "guestbook"
	SectionContent   Section = "content"
	SectionQR        Section = "qr"
	SectionSettings  Section = "settings"
)

var Sections = []Section{SectionDashboard, SectionAttendees, SectionGuestbook, SectionContent, SectionQR, SectionSettings}

var ErrUnknownSection = errors.New("unknown section")

// Loader fetches the data a section renders.
type Loader func(ctx context.Context) (any, error)

// Navigator keeps exactly one section visible.
type Navigator struct {
	loaders map[Section]Loader

	mu      sync.Mutex
	visible Section
}

func NewNavigator(loaders map[Section]Loader) *Navigator {
	return &Navigator{loaders: loaders, visible: SectionDashboard}
}

// Show makes section the visible one and runs its loader.
func (n *Navigator) Show(ctx context.Context, section Section) (any, error) {
	loader, ok := n.loaders[section]
	if !ok {
		return nil, fmt.Errorf("(*Navigator).Show: %w: %q", ErrUnknownSection, section)
	}
	n.mu.Lock()
	n.visible = section
	n.mu.Unlock()
	return loader(ctx)
}

// Reload runs the loader of the visible section again.
func (n *Navigator) Reload(ctx context.Context) (Section, any, error) {
	section := n.Visible()
	data, err := n.Show(ctx, section)
	return section, data, err
}

func (n *Navigator) Visible() Section {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.visible
}

// IsVisible is true for exactly one section at a time.
func (n *Navigator) IsVisible(section Section) bool {
	return n.Visible() == section
}
