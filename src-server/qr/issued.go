package qr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"invitation/src-server/model"
	"log/slog"
	"strings"
	"time"
	"unicode"
)

// Issued is a generated code together with its rendered surface.
type Issued struct {
	Payload  model.QRPayload
	Rendered Rendered
}

// FileName is deterministic in the attendee name and the code id.
func (i *Issued) FileName() string {
	name := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case unicode.IsSpace(r), r == '-', r == '_':
			return '_'
		}
		return -1
	}, strings.TrimSpace(i.Payload.Name))
	if name == "" {
		return fmt.Sprintf("QR-Code-%s.png", i.Payload.ID)
	}
	return fmt.Sprintf("QR-Code-%s-%s.png", name, i.Payload.ID)
}

func (i *Issued) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, i.Rendered.Image); err != nil {
		return nil, fmt.Errorf("(*Issued).PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// ShareSummary is the text handed to the clipboard when native sharing is
// not available.
func (i *Issued) ShareSummary() string {
	return fmt.Sprintf("QR ID: %s\nAttendee: %s\nIssued: %s",
		i.Payload.ID,
		i.Payload.Name,
		i.Payload.CreatedAt().UTC().Format(time.RFC3339),
	)
}

// Sharer hands a file to a platform share sheet.
type Sharer interface {
	Share(ctx context.Context, fileName string, data []byte) error
}

type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

type ShareOutcome string

const (
	SharedNatively   ShareOutcome = "shared"
	SharedClipboard  ShareOutcome = "clipboard"
	ShareUnsupported ShareOutcome = "unsupported"
)

var ErrShareUnsupported = errors.New("sharing is not supported")

// Share prefers the native sharer and falls back to copying ShareSummary.
// Either capability may be nil.
func (i *Issued) Share(ctx context.Context, sharer Sharer, clipboard Clipboard) (ShareOutcome, error) {
	if sharer != nil {
		data, err := i.PNG()
		if err == nil {
			err = sharer.Share(ctx, i.FileName(), data)
		}
		if err == nil {
			return SharedNatively, nil
		}
		slog.Warn("native share failed, falling back to clipboard", "qr_id", i.Payload.ID, "error", err)
	}
	if clipboard == nil {
		return ShareUnsupported, ErrShareUnsupported
	}
	if err := clipboard.WriteText(ctx, i.ShareSummary()); err != nil {
		return ShareUnsupported, fmt.Errorf("(*Issued).Share: %w", err)
	}
	return SharedClipboard, nil
}
