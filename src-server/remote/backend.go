package remote

import (
	"context"
	"errors"
	"invitation/src-server/model"
	"time"
)

var (
	ErrNotFound    = errors.New("remote record not found")
	ErrUnavailable = errors.New("remote store unavailable")
)

// Backend is the remote store capability. Every collection is scoped by
// an event id.
type Backend interface {
	Ping(ctx context.Context) error
	Close() error

	ActiveEvent(ctx context.Context) (*model.EventInfo, error)
	CreateEvent(ctx context.Context, event model.EventInfo) (*model.EventInfo, error)

	InsertRSVP(ctx context.Context, eventID string, rec model.AttendeeRecord) error
	ListRSVPs(ctx context.Context, eventID string) ([]model.AttendeeRecord, error)
	DeleteRSVP(ctx context.Context, eventID, id string) error

	InsertGuestbook(ctx context.Context, eventID string, msg model.GuestbookMessage) error
	ListGuestbook(ctx context.Context, eventID string, approvedOnly bool, limit int) ([]model.GuestbookMessage, error)
	SetGuestbookApproval(ctx context.Context, eventID, id string, approved bool) error
	DeleteGuestbook(ctx context.Context, eventID, id string) error

	GetContent(ctx context.Context, eventID string) (model.ContentOverrides, error)
	UpsertContent(ctx context.Context, eventID string, content model.ContentOverrides) error
	DeleteContent(ctx context.Context, eventID string) error

	InsertQR(ctx context.Context, eventID string, rec model.QRRecord) error
	GetQR(ctx context.Context, eventID, id string) (*model.QRRecord, error)
	ListQR(ctx context.Context, eventID string) ([]model.QRRecord, error)
	MarkQRUsed(ctx context.Context, eventID, id string, at time.Time) error
	DeleteQR(ctx context.Context, eventID, id string) error

	InsertEntry(ctx context.Context, eventID string, entry model.ScannedEntryRecord) error
	ListEntries(ctx context.Context, eventID string) ([]model.ScannedEntryRecord, error)
	DeleteEntry(ctx context.Context, eventID, id string) error

	Statistics(ctx context.Context, eventID string) (model.Statistics, error)
}
