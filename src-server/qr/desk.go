package qr

import (
	"context"
	"errors"
	"fmt"
	"invitation/src-server/model"
	"invitation/src-server/remote"
	"invitation/src-server/storage"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrUnrecognized = errors.New("unrecognized code")
	ErrNoPending    = errors.New("no scanned code awaiting confirmation")
	ErrNotFound     = errors.New("entry not found")
)

type AcceptKind string

const (
	AcceptPending   AcceptKind = "pending"
	AcceptDuplicate AcceptKind = "duplicate"
)

// Acceptance is the outcome of a decoded scan. For duplicates FirstSeen is
// the entry time of the original record.
type Acceptance struct {
	Kind      AcceptKind      `json:"kind"`
	Payload   model.QRPayload `json:"payload"`
	FirstSeen time.Time       `json:"firstSeen,omitzero"`
}

type ConfirmResult struct {
	Entry         model.ScannedEntryRecord `json:"entry"`
	SavedRemotely bool                     `json:"savedRemotely"`
}

// Desk is the check-in desk of one admin: it holds at most one scanned
// code awaiting confirmation.
type Desk struct {
	store   *storage.Adapter
	gateway *remote.Gateway
	now     func() time.Time

	mu      sync.Mutex
	pending *model.QRPayload
}

func NewDesk(store *storage.Adapter, gateway *remote.Gateway) *Desk {
	return &Desk{store: store, gateway: gateway, now: time.Now}
}

func (d *Desk) WithClock(now func() time.Time) *Desk {
	d.now = now
	return d
}

// Accept parses a decoded payload. Already recorded ids are reported as
// duplicates and never become pending.
func (d *Desk) Accept(ctx context.Context, raw string) (Acceptance, error) {
	payload, err := model.ParseQRPayload(raw)
	if err != nil {
		slog.Warn("scanned code is not an invitation payload", "error", err)
		return Acceptance{}, fmt.Errorf("(*Desk).Accept: %w", ErrUnrecognized)
	}

	if first, ok := d.findEntry(ctx, payload.ID); ok {
		d.mu.Lock()
		d.pending = nil
		d.mu.Unlock()
		return Acceptance{Kind: AcceptDuplicate, Payload: *payload, FirstSeen: first.EntryTime}, nil
	}

	d.mu.Lock()
	d.pending = payload
	d.mu.Unlock()
	return Acceptance{Kind: AcceptPending, Payload: *payload}, nil
}

// Pending is the scanned code awaiting Confirm or Reject.
func (d *Desk) Pending() (model.QRPayload, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return model.QRPayload{}, false
	}
	return *d.pending, true
}

// Confirm records the pending code as an entry. A concurrent confirm of the
// same id from another desk keeps the first record.
func (d *Desk) Confirm(ctx context.Context) (ConfirmResult, error) {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()
	if pending == nil {
		return ConfirmResult{}, ErrNoPending
	}

	now := d.now()
	entry := model.ScannedEntryRecord{QRPayload: *pending, EntryTime: now, ScannedAt: now}
	entry.MarkUsed()

	entries, err := storage.Update(ctx, d.store, storage.KeyScannedEntries, []model.ScannedEntryRecord{}, func(entries []model.ScannedEntryRecord) ([]model.ScannedEntryRecord, error) {
		for _, e := range entries {
			if e.ID == entry.ID {
				return entries, nil
			}
		}
		return append(entries, entry), nil
	})
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("(*Desk).Confirm: %w", err)
	}
	for _, e := range entries {
		if e.ID == entry.ID {
			entry = e
			break
		}
	}

	d.markLocalCodeUsed(ctx, entry.ID, now)
	saved := d.gateway.SaveEntry(ctx, entry)
	if saved {
		d.gateway.MarkQRCodeUsed(ctx, entry.ID, now)
	}
	slog.Info("entry confirmed", "qr_id", entry.ID, "name", entry.Name, "remote", saved)
	return ConfirmResult{Entry: entry, SavedRemotely: saved}, nil
}

// Reject drops the pending code without writing anything.
func (d *Desk) Reject() {
	d.mu.Lock()
	d.pending = nil
	d.mu.Unlock()
}

// AddManual records an entry for an attendee without a code, for guests
// who arrive without their phone.
func (d *Desk) AddManual(ctx context.Context, attendee model.AttendeeRecord) (ConfirmResult, error) {
	payload, err := NewPayload(attendee, d.gateway.EventID(), d.now(), false)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("(*Desk).AddManual: %w", err)
	}
	d.mu.Lock()
	d.pending = &payload
	d.mu.Unlock()
	return d.Confirm(ctx)
}

// Entries lists recorded entries, newest first, remote when connected.
func (d *Desk) Entries(ctx context.Context) []model.ScannedEntryRecord {
	if entries, ok := d.gateway.ListEntries(ctx); ok {
		return entries
	}
	local := storage.Get(ctx, d.store, storage.KeyScannedEntries, []model.ScannedEntryRecord{})
	out := make([]model.ScannedEntryRecord, 0, len(local))
	for i := len(local) - 1; i >= 0; i-- {
		out = append(out, local[i])
	}
	return out
}

// Delete removes an entry locally and best-effort remotely. An id known to
// neither store is ErrNotFound.
func (d *Desk) Delete(ctx context.Context, id string) error {
	found := false
	if _, err := storage.Update(ctx, d.store, storage.KeyScannedEntries, []model.ScannedEntryRecord{}, func(entries []model.ScannedEntryRecord) ([]model.ScannedEntryRecord, error) {
		out := entries[:0:0]
		for _, e := range entries {
			if e.ID == id {
				found = true
				continue
			}
			out = append(out, e)
		}
		return out, nil
	}); err != nil {
		return fmt.Errorf("(*Desk).Delete: %w", err)
	}

	err := d.gateway.DeleteEntry(ctx, id)
	switch {
	case err == nil:
		found = true
	case !errors.Is(err, remote.ErrNotFound) && !errors.Is(err, remote.ErrUnavailable):
		slog.Warn("can't delete remote entry", "id", id, "error", err)
	}
	if !found {
		return fmt.Errorf("(*Desk).Delete: %w: %s", ErrNotFound, id)
	}
	return nil
}

func (d *Desk) findEntry(ctx context.Context, id string) (model.ScannedEntryRecord, bool) {
	for _, e := range storage.Get(ctx, d.store, storage.KeyScannedEntries, []model.ScannedEntryRecord{}) {
		if e.ID == id {
			return e, true
		}
	}
	if entries, ok := d.gateway.ListEntries(ctx); ok {
		for _, e := range entries {
			if e.ID == id {
				return e, true
			}
		}
	}
	return model.ScannedEntryRecord{}, false
}

func (d *Desk) markLocalCodeUsed(ctx context.Context, id string, at time.Time) {
	_, err := storage.Update(ctx, d.store, storage.KeyQRCodes, []model.QRRecord{}, func(codes []model.QRRecord) ([]model.QRRecord, error) {
		for i := range codes {
			if codes[i].ID == id && codes[i].Status != model.QRStatusUsed {
				codes[i].MarkUsed()
				codes[i].UsedAt = &at
			}
		}
		return codes, nil
	})
	if err != nil {
		slog.Error("can't mark local qr code used", "qr_id", id, "error", err)
	}
}
