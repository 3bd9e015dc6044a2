package admin

import (
	"context"
	"errors"
	"fmt"
	"invitation/src-server/content"
	"invitation/src-server/model"
	"invitation/src-server/qr"
	"invitation/src-server/remote"
	"invitation/src-server/storage"
	"log/slog"
	"slices"
)

var ErrNotFound = errors.New("record not found")

// Dashboard reads and edits the event data shown to admins. Reads prefer
// the remote store and fall back to the local copies.
type Dashboard struct {
	store     *storage.Adapter
	gateway   *remote.Gateway
	generator *qr.Generator
}

func NewDashboard(store *storage.Adapter, gateway *remote.Gateway, generator *qr.Generator) *Dashboard {
	return &Dashboard{store: store, gateway: gateway, generator: generator}
}

type StatsView struct {
	model.Statistics
	UsageRate float64 `json:"usageRate"`
	Remote    bool    `json:"remote"`
}

func (d *Dashboard) Stats(ctx context.Context) StatsView {
	if d.gateway.IsConnected() {
		if stats, ok := d.gateway.GetRSVPStatistics(ctx); ok {
			return StatsView{Statistics: stats, UsageRate: stats.UsageRate(), Remote: true}
		}
	}
	stats := CountLocal(
		storage.Get(ctx, d.store, storage.KeyRSVPResponses, []model.AttendeeRecord{}),
		storage.Get(ctx, d.store, storage.KeyGuestbookMessages, []model.GuestbookMessage{}),
		storage.Get(ctx, d.store, storage.KeyQRCodes, []model.QRRecord{}),
	)
	return StatsView{Statistics: stats, UsageRate: stats.UsageRate()}
}

// CountLocal aggregates the local copies the same way the remote
// statistics view does.
func CountLocal(rsvps []model.AttendeeRecord, guestbook []model.GuestbookMessage, codes []model.QRRecord) model.Statistics {
	stats := model.Statistics{
		TotalRSVP:   len(rsvps),
		Guestbook:   len(guestbook),
		QRGenerated: len(codes),
	}
	for _, r := range rsvps {
		switch r.Response {
		case model.ResponseYes:
			stats.Yes++
		case model.ResponseNo:
			stats.No++
		case model.ResponseMaybe:
			stats.Maybe++
		}
	}
	for _, c := range codes {
		if c.Status == model.QRStatusUsed {
			stats.QRUsed++
		}
	}
	return stats
}

func (d *Dashboard) Attendees(ctx context.Context) []model.AttendeeRecord {
	if d.gateway.IsConnected() {
		if rsvps, ok := d.gateway.ListRSVPs(ctx); ok {
			return rsvps
		}
	}
	local := storage.Get(ctx, d.store, storage.KeyRSVPResponses, []model.AttendeeRecord{})
	slices.Reverse(local)
	return local
}

// Guestbook lists every message, hidden ones included.
func (d *Dashboard) Guestbook(ctx context.Context) []model.GuestbookMessage {
	if d.gateway.IsConnected() {
		if msgs, ok := d.gateway.ListGuestbookMessages(ctx); ok {
			return msgs
		}
	}
	return storage.Get(ctx, d.store, storage.KeyGuestbookMessages, []model.GuestbookMessage{})
}

func (d *Dashboard) QRCodes(ctx context.Context) []model.QRRecord {
	return d.generator.Codes(ctx)
}

func (d *Dashboard) DeleteRSVP(ctx context.Context, id string) error {
	found, err := removeLocal(ctx, d.store, storage.KeyRSVPResponses, func(r model.AttendeeRecord) bool { return r.ID == id })
	if err != nil {
		return fmt.Errorf("(*Dashboard).DeleteRSVP: %w", err)
	}
	if d.remoteEdit(ctx, "rsvp", id, d.gateway.DeleteRSVP) {
		found = true
	}
	if !found {
		return fmt.Errorf("(*Dashboard).DeleteRSVP: %w: %s", ErrNotFound, id)
	}
	return nil
}

func (d *Dashboard) DeleteGuestbook(ctx context.Context, id string) error {
	found, err := removeLocal(ctx, d.store, storage.KeyGuestbookMessages, func(m model.GuestbookMessage) bool { return m.ID == id })
	if err != nil {
		return fmt.Errorf("(*Dashboard).DeleteGuestbook: %w", err)
	}
	if d.remoteEdit(ctx, "guestbook", id, d.gateway.DeleteGuestbookMessage) {
		found = true
	}
	if !found {
		return fmt.Errorf("(*Dashboard).DeleteGuestbook: %w: %s", ErrNotFound, id)
	}
	return nil
}

// SetGuestbookApproval hides or shows a message on the guest page.
func (d *Dashboard) SetGuestbookApproval(ctx context.Context, id string, approved bool) error {
	found := false
	if _, err := storage.Update(ctx, d.store, storage.KeyGuestbookMessages, []model.GuestbookMessage{}, func(list []model.GuestbookMessage) ([]model.GuestbookMessage, error) {
		for i := range list {
			if list[i].ID == id {
				list[i].Approved = approved
				found = true
			}
		}
		return list, nil
	}); err != nil {
		return fmt.Errorf("(*Dashboard).SetGuestbookApproval: %w", err)
	}
	if d.remoteEdit(ctx, "guestbook approval", id, func(ctx context.Context, id string) error {
		return d.gateway.SetGuestbookApproval(ctx, id, approved)
	}) {
		found = true
	}
	if !found {
		return fmt.Errorf("(*Dashboard).SetGuestbookApproval: %w: %s", ErrNotFound, id)
	}
	return nil
}

// remoteEdit runs a remote edit when connected and reports whether the
// record existed there.
func (d *Dashboard) remoteEdit(ctx context.Context, what, id string, fn func(ctx context.Context, id string) error) bool {
	if !d.gateway.IsConnected() {
		return false
	}
	err := fn(ctx, id)
	switch {
	case err == nil:
		return true
	case errors.Is(err, remote.ErrNotFound):
	default:
		slog.Warn("remote edit failed", "what", what, "id", id, "error", err)
	}
	return false
}

func removeLocal[T any](ctx context.Context, store *storage.Adapter, key string, match func(T) bool) (bool, error) {
	found := false
	_, err := storage.Update(ctx, store, key, []T{}, func(list []T) ([]T, error) {
		n := len(list)
		list = slices.DeleteFunc(list, match)
		found = len(list) != n
		return list, nil
	})
	return found, err
}

type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	EventID   string `json:"eventId"`
	Error     string `json:"error,omitempty"`
}

// Connection tests the remote store, reconnecting when it was down.
func (d *Dashboard) Connection(ctx context.Context) ConnectionStatus {
	status := ConnectionStatus{EventID: d.gateway.EventID()}
	if err := d.gateway.TestConnection(ctx); err != nil {
		status.Error = err.Error()
		return status
	}
	status.Connected = true
	status.EventID = d.gateway.EventID()
	return status
}

// MigrateLocal copies the local RSVPs, guestbook and content to the
// remote store.
func (d *Dashboard) MigrateLocal(ctx context.Context) (remote.MigrationReport, error) {
	report, err := d.gateway.Migrate(ctx,
		storage.Get(ctx, d.store, storage.KeyRSVPResponses, []model.AttendeeRecord{}),
		storage.Get(ctx, d.store, storage.KeyGuestbookMessages, []model.GuestbookMessage{}),
		storage.Get(ctx, d.store, storage.KeyContentData, model.NewContentOverrides()),
	)
	if err != nil {
		return report, fmt.Errorf("(*Dashboard).MigrateLocal: %w", err)
	}
	slog.Info("local data migrated", "rsvps", report.RSVPs, "guestbook", report.Guestbook, "content", report.Content)
	return report, nil
}

// Loaders wires every dashboard section to its data.
func (d *Dashboard) Loaders(desk *qr.Desk, contents *content.Engine) map[Section]Loader {
	return map[Section]Loader{
		SectionDashboard: func(ctx context.Context) (any, error) {
			return d.Stats(ctx), nil
		},
		SectionAttendees: func(ctx context.Context) (any, error) {
			return map[string]any{"attendees": d.Attendees(ctx), "entries": desk.Entries(ctx)}, nil
		},
		SectionGuestbook: func(ctx context.Context) (any, error) {
			return d.Guestbook(ctx), nil
		},
		SectionContent: func(ctx context.Context) (any, error) {
			overrides, source := contents.Load(ctx)
			return map[string]any{"merged": contents.Merged(ctx), "overrides": overrides, "source": source}, nil
		},
		SectionQR: func(ctx context.Context) (any, error) {
			return map[string]any{"codes": d.QRCodes(ctx), "entries": desk.Entries(ctx)}, nil
		},
		SectionSettings: func(ctx context.Context) (any, error) {
			return d.Connection(ctx), nil
		},
	}
}
