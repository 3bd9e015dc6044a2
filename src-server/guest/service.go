package guest

import (
	"context"
	"errors"
	"fmt"
	"invitation/src-server/input"
	"invitation/src-server/model"
	"invitation/src-server/remote"
	"invitation/src-server/storage"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidResponse = errors.New("response must be yes, no or maybe")
	ErrDetailsRequired = errors.New("attendance details are required")
	ErrInvalidInput    = errors.New("invalid input")
)

type Notifier interface {
	NotifyRSVP(ctx context.Context, rec model.AttendeeRecord)
	NotifyGuestbook(ctx context.Context, msg model.GuestbookMessage)
}

// Details is the second step of an RSVP.
type Details struct {
	Name    string `json:"name" validate:"required,max=20"`
	Phone   string `json:"phone" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"max=500"`
}

// Saved reports where a write landed. The local write always succeeded
// when a Saved is returned.
type Saved struct {
	Remote bool `json:"savedRemotely"`
}

// Service holds the guest page workflows: RSVP and guestbook.
type Service struct {
	store    *storage.Adapter
	gateway  *remote.Gateway
	notifier Notifier
	now      func() time.Time
}

// NewService accepts a nil notifier.
func NewService(store *storage.Adapter, gateway *remote.Gateway, notifier Notifier) *Service {
	return &Service{store: store, gateway: gateway, notifier: notifier, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RecordRSVP stores a response. "no" needs no details, "yes" requires
// them and "maybe" takes them when given.
func (s *Service) RecordRSVP(ctx context.Context, response model.Response, details *Details) (model.AttendeeRecord, Saved, error) {
	if !response.Valid() {
		return model.AttendeeRecord{}, Saved{}, ErrInvalidResponse
	}
	rec := model.AttendeeRecord{
		ID:        uuid.NewString(),
		Response:  response,
		Source:    model.SourceRSVP,
		CreatedAt: s.now().UTC(),
	}

	switch {
	case response == model.ResponseYes && details == nil:
		return model.AttendeeRecord{}, Saved{}, ErrDetailsRequired
	case details != nil && response != model.ResponseNo:
		normalized, err := normalizeDetails(*details)
		if err != nil {
			return model.AttendeeRecord{}, Saved{}, err
		}
		rec.Name = normalized.Name
		rec.Phone = normalized.Phone
		rec.Email = normalized.Email
		rec.Message = normalized.Message
		rec.Source = model.SourceAttendee
	case details != nil:
		rec.Name = input.Normalize(details.Name)
	}

	if _, err := storage.Update(ctx, s.store, storage.KeyRSVPResponses, []model.AttendeeRecord{}, func(list []model.AttendeeRecord) ([]model.AttendeeRecord, error) {
		return append(list, rec), nil
	}); err != nil {
		return model.AttendeeRecord{}, Saved{}, fmt.Errorf("(*Service).RecordRSVP: %w", err)
	}
	if rec.Source == model.SourceAttendee {
		if err := s.store.Set(ctx, storage.KeyAttendeeDetail, rec); err != nil {
			return model.AttendeeRecord{}, Saved{}, fmt.Errorf("(*Service).RecordRSVP: %w", err)
		}
	}

	saved := Saved{Remote: s.gateway.SaveRSVP(ctx, response, rec)}
	if s.notifier != nil {
		s.notifier.NotifyRSVP(ctx, rec)
	}
	slog.Info("rsvp recorded", "response", response, "remote", saved.Remote)
	return rec, saved, nil
}

func normalizeDetails(d Details) (Details, error) {
	d.Name = input.Normalize(d.Name)
	d.Email = input.Normalize(d.Email)
	d.Message = input.Normalize(d.Message)
	if err := input.Validate(&d); err != nil {
		return Details{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	phone, err := FormatPhoneNumber(d.Phone)
	if err != nil {
		return Details{}, err
	}
	d.Phone = phone
	return d, nil
}

// Responses returns every locally recorded RSVP, oldest first.
func (s *Service) Responses(ctx context.Context) []model.AttendeeRecord {
	return storage.Get(ctx, s.store, storage.KeyRSVPResponses, []model.AttendeeRecord{})
}
