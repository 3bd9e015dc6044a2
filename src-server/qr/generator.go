package qr

import (
	"context"
	"errors"
	"fmt"
	"invitation/src-server/model"
	"invitation/src-server/remote"
	"invitation/src-server/storage"
	"log/slog"
	"time"
)

var ErrUnknownCode = errors.New("unknown qr code")

// Generator issues codes. The local store is written first, the remote
// store best-effort.
type Generator struct {
	store   *storage.Adapter
	gateway *remote.Gateway
	chain   Chain
	now     func() time.Time
}

func NewGenerator(store *storage.Adapter, gateway *remote.Gateway, chain Chain) *Generator {
	return &Generator{store: store, gateway: gateway, chain: chain, now: time.Now}
}

// WithClock replaces the time source, used by tests to pin ids.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

type Generated struct {
	*Issued
	SavedRemotely bool
}

func (g *Generator) Generate(ctx context.Context, attendee model.AttendeeRecord, requireContact bool) (*Generated, error) {
	payload, err := NewPayload(attendee, g.gateway.EventID(), g.now(), requireContact)
	if err != nil {
		return nil, err
	}
	content, err := payload.Marshal()
	if err != nil {
		return nil, err
	}
	issued := &Issued{Payload: payload, Rendered: g.chain.Render(content)}

	rec := model.QRRecord{QRPayload: payload}
	if err := g.store.Set(ctx, storage.KeyCurrentQR, payload); err != nil {
		return nil, fmt.Errorf("(*Generator).Generate: %w", err)
	}
	if _, err := storage.Update(ctx, g.store, storage.KeyQRCodes, []model.QRRecord{}, func(codes []model.QRRecord) ([]model.QRRecord, error) {
		return append(codes, rec), nil
	}); err != nil {
		return nil, fmt.Errorf("(*Generator).Generate: %w", err)
	}

	saved := g.gateway.SaveQRCode(ctx, rec)
	slog.Info("qr code issued", "qr_id", payload.ID, "encoder", issued.Rendered.Encoder, "degraded", issued.Rendered.Degraded, "remote", saved)
	return &Generated{Issued: issued, SavedRemotely: saved}, nil
}

// Current returns the most recently issued code on this instance.
func (g *Generator) Current(ctx context.Context) (*Issued, bool) {
	payload := storage.Get(ctx, g.store, storage.KeyCurrentQR, model.QRPayload{})
	if payload.ID == "" {
		return nil, false
	}
	return g.render(payload)
}

// Lookup re-renders a previously issued code, local records first.
func (g *Generator) Lookup(ctx context.Context, id string) (*Issued, error) {
	for _, rec := range storage.Get(ctx, g.store, storage.KeyQRCodes, []model.QRRecord{}) {
		if rec.ID != id {
			continue
		}
		if issued, ok := g.render(rec.QRPayload); ok {
			return issued, nil
		}
	}
	if rec, ok := g.gateway.GetQRCode(ctx, id); ok && rec != nil {
		if issued, ok := g.render(rec.QRPayload); ok {
			return issued, nil
		}
	}
	return nil, fmt.Errorf("(*Generator).Lookup: %w: %s", ErrUnknownCode, id)
}

// Codes lists every issued code, remote when connected.
func (g *Generator) Codes(ctx context.Context) []model.QRRecord {
	if codes, ok := g.gateway.ListQRCodes(ctx); ok {
		return codes
	}
	return storage.Get(ctx, g.store, storage.KeyQRCodes, []model.QRRecord{})
}

func (g *Generator) render(payload model.QRPayload) (*Issued, bool) {
	content, err := payload.Marshal()
	if err != nil {
		slog.Error("can't marshal stored qr payload", "qr_id", payload.ID, "error", err)
		return nil, false
	}
	return &Issued{Payload: payload, Rendered: g.chain.Render(content)}, true
}
