package remote

import (
	"context"
	"encoding/json"
	"errors"
	"invitation/src-server/model"
	"log/slog"
	"time"
)

const DefaultGuestbookLimit = 50

func (g *Gateway) channel(kind string) string {
	return "invitation:" + g.EventID() + ":" + kind
}

func (g *Gateway) publish(ctx context.Context, kind string, v any) {
	if g.realtime == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("can't marshal realtime payload", "kind", kind, "error", err)
		return
	}
	if err := g.realtime.Publish(ctx, g.channel(kind), payload); err != nil {
		slog.Warn("can't publish realtime notification", "kind", kind, "error", err)
	}
}

// #region rsvp

func (g *Gateway) SaveRSVP(ctx context.Context, response model.Response, info model.AttendeeRecord) bool {
	info.Response = response
	ok := g.write(ctx, "SaveRSVP", func(ctx context.Context, eventID string) error {
		return g.backend.InsertRSVP(ctx, eventID, info)
	})
	if ok {
		g.publish(ctx, "rsvp", info)
	}
	return ok
}

func (g *Gateway) ListRSVPs(ctx context.Context) ([]model.AttendeeRecord, bool) {
	rsvps, err := run(ctx, g, "ListRSVPs", func(ctx context.Context, eventID string) ([]model.AttendeeRecord, error) {
		return g.backend.ListRSVPs(ctx, eventID)
	})
	return rsvps, err == nil
}

func (g *Gateway) DeleteRSVP(ctx context.Context, id string) error {
	_, err := run(ctx, g, "DeleteRSVP", func(ctx context.Context, eventID string) (struct{}, error) {
		return struct{}{}, g.backend.DeleteRSVP(ctx, eventID, id)
	})
	return err
}

func (g *Gateway) GetRSVPStatistics(ctx context.Context) (model.Statistics, bool) {
	stats, err := run(ctx, g, "GetRSVPStatistics", func(ctx context.Context, eventID string) (model.Statistics, error) {
		return g.backend.Statistics(ctx, eventID)
	})
	return stats, err == nil
}

// #endregion

// #region guestbook

func (g *Gateway) SaveGuestbookMessage(ctx context.Context, msg model.GuestbookMessage) bool {
	ok := g.write(ctx, "SaveGuestbookMessage", func(ctx context.Context, eventID string) error {
		return g.backend.InsertGuestbook(ctx, eventID, msg)
	})
	if ok {
		g.publish(ctx, "guestbook", msg)
	}
	return ok
}

// LoadGuestbookMessages returns approved messages, newest first.
func (g *Gateway) LoadGuestbookMessages(ctx context.Context, limit int) ([]model.GuestbookMessage, bool) {
	if limit <= 0 {
		limit = DefaultGuestbookLimit
	}
	msgs, err := run(ctx, g, "LoadGuestbookMessages", func(ctx context.Context, eventID string) ([]model.GuestbookMessage, error) {
		return g.backend.ListGuestbook(ctx, eventID, true, limit)
	})
	return msgs, err == nil
}

// ListGuestbookMessages returns every message including unapproved ones.
func (g *Gateway) ListGuestbookMessages(ctx context.Context) ([]model.GuestbookMessage, bool) {
	msgs, err := run(ctx, g, "ListGuestbookMessages", func(ctx context.Context, eventID string) ([]model.GuestbookMessage, error) {
		return g.backend.ListGuestbook(ctx, eventID, false, 0)
	})
	return msgs, err == nil
}

func (g *Gateway) SetGuestbookApproval(ctx context.Context, id string, approved bool) error {
	_, err := run(ctx, g, "SetGuestbookApproval", func(ctx context.Context, eventID string) (struct{}, error) {
		return struct{}{}, g.backend.SetGuestbookApproval(ctx, eventID, id, approved)
	})
	return err
}

func (g *Gateway) DeleteGuestbookMessage(ctx context.Context, id string) error {
	_, err := run(ctx, g, "DeleteGuestbookMessage", func(ctx context.Context, eventID string) (struct{}, error) {
		return struct{}{}, g.backend.DeleteGuestbook(ctx, eventID, id)
	})
	return err
}

// #endregion

// #region content

// GetContentData returns empty overrides when the store is unavailable or
// holds nothing for the event.
func (g *Gateway) GetContentData(ctx context.Context) model.ContentOverrides {
	content, err := run(ctx, g, "GetContentData", func(ctx context.Context, eventID string) (model.ContentOverrides, error) {
		return g.backend.GetContent(ctx, eventID)
	})
	if err != nil {
		return model.NewContentOverrides()
	}
	return content
}

func (g *Gateway) SaveContentData(ctx context.Context, data model.ContentOverrides) bool {
	return g.write(ctx, "SaveContentData", func(ctx context.Context, eventID string) error {
		return g.backend.UpsertContent(ctx, eventID, data)
	})
}

func (g *Gateway) ResetContentData(ctx context.Context) bool {
	return g.write(ctx, "ResetContentData", func(ctx context.Context, eventID string) error {
		return g.backend.DeleteContent(ctx, eventID)
	})
}

func (g *Gateway) GetEventInfo(ctx context.Context) (*model.EventInfo, bool) {
	event, err := run(ctx, g, "GetEventInfo", func(ctx context.Context, _ string) (*model.EventInfo, error) {
		return g.backend.ActiveEvent(ctx)
	})
	return event, err == nil
}

// #endregion

// #region qr

func (g *Gateway) SaveQRCode(ctx context.Context, rec model.QRRecord) bool {
	return g.write(ctx, "SaveQRCode", func(ctx context.Context, eventID string) error {
		return g.backend.InsertQR(ctx, eventID, rec)
	})
}

func (g *Gateway) GetQRCode(ctx context.Context, id string) (*model.QRRecord, bool) {
	rec, err := run(ctx, g, "GetQRCode", func(ctx context.Context, eventID string) (*model.QRRecord, error) {
		return g.backend.GetQR(ctx, eventID, id)
	})
	return rec, err == nil
}

func (g *Gateway) ListQRCodes(ctx context.Context) ([]model.QRRecord, bool) {
	recs, err := run(ctx, g, "ListQRCodes", func(ctx context.Context, eventID string) ([]model.QRRecord, error) {
		return g.backend.ListQR(ctx, eventID)
	})
	return recs, err == nil
}

func (g *Gateway) MarkQRCodeUsed(ctx context.Context, id string, at time.Time) bool {
	return g.write(ctx, "MarkQRCodeUsed", func(ctx context.Context, eventID string) error {
		return g.backend.MarkQRUsed(ctx, eventID, id, at)
	})
}

func (g *Gateway) DeleteQRCode(ctx context.Context, id string) error {
	_, err := run(ctx, g, "DeleteQRCode", func(ctx context.Context, eventID string) (struct{}, error) {
		return struct{}{}, g.backend.DeleteQR(ctx, eventID, id)
	})
	return err
}

// #endregion

// #region entries

func (g *Gateway) SaveEntry(ctx context.Context, entry model.ScannedEntryRecord) bool {
	return g.write(ctx, "SaveEntry", func(ctx context.Context, eventID string) error {
		return g.backend.InsertEntry(ctx, eventID, entry)
	})
}

func (g *Gateway) ListEntries(ctx context.Context) ([]model.ScannedEntryRecord, bool) {
	entries, err := run(ctx, g, "ListEntries", func(ctx context.Context, eventID string) ([]model.ScannedEntryRecord, error) {
		return g.backend.ListEntries(ctx, eventID)
	})
	return entries, err == nil
}

func (g *Gateway) DeleteEntry(ctx context.Context, id string) error {
	_, err := run(ctx, g, "DeleteEntry", func(ctx context.Context, eventID string) (struct{}, error) {
		return struct{}{}, g.backend.DeleteEntry(ctx, eventID, id)
	})
	return err
}

// #endregion

// #region realtime

func (g *Gateway) subscribe(ctx context.Context, kind string, fn func([]byte)) Subscription {
	if !g.IsConnected() || g.realtime == nil {
		return noopSubscription{}
	}
	sub, err := g.realtime.Subscribe(ctx, g.channel(kind), fn)
	if err != nil {
		slog.Warn("can't subscribe to realtime channel", "kind", kind, "error", err)
		return noopSubscription{}
	}
	return sub
}

// SubscribeToGuestbook calls fn once per new remote guestbook row. The
// returned Subscription is never nil; callers must Unsubscribe on teardown.
func (g *Gateway) SubscribeToGuestbook(ctx context.Context, fn func(model.GuestbookMessage)) Subscription {
	return g.subscribe(ctx, "guestbook", func(payload []byte) {
		var msg model.GuestbookMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			slog.Warn("malformed guestbook notification", "error", err)
			return
		}
		fn(msg)
	})
}

func (g *Gateway) SubscribeToRSVP(ctx context.Context, fn func(model.AttendeeRecord)) Subscription {
	return g.subscribe(ctx, "rsvp", func(payload []byte) {
		var rec model.AttendeeRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			slog.Warn("malformed rsvp notification", "error", err)
			return
		}
		fn(rec)
	})
}

// #endregion

type MigrationReport struct {
	RSVPs     int  `json:"rsvps"`
	Guestbook int  `json:"guestbook"`
	Content   bool `json:"content"`
}

// Migrate copies locally stored records to the remote store. Rows already
// present remotely are left untouched.
func (g *Gateway) Migrate(ctx context.Context, rsvps []model.AttendeeRecord, guestbook []model.GuestbookMessage, content model.ContentOverrides) (MigrationReport, error) {
	var report MigrationReport
	if !g.IsConnected() {
		return report, ErrUnavailable
	}
	for _, rec := range rsvps {
		if g.write(ctx, "Migrate", func(ctx context.Context, eventID string) error {
			return g.backend.InsertRSVP(ctx, eventID, rec)
		}) {
			report.RSVPs++
		}
	}
	for _, msg := range guestbook {
		if g.write(ctx, "Migrate", func(ctx context.Context, eventID string) error {
			return g.backend.InsertGuestbook(ctx, eventID, msg)
		}) {
			report.Guestbook++
		}
	}
	if !content.IsEmpty() {
		report.Content = g.SaveContentData(ctx, content)
	}
	if report.RSVPs < len(rsvps) || report.Guestbook < len(guestbook) {
		return report, errors.New("some records were not migrated")
	}
	return report, nil
}
