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

	"github.com/google/uuid"
)

const (
	MaxNameLength    = 20
	MaxMessageLength = 200
)

var (
	ErrEmptyGuestbookField = errors.New("name and message are required")
	ErrNameTooLong         = fmt.Errorf("name must be at most %d characters", MaxNameLength)
	ErrMessageTooLong      = fmt.Errorf("message must be at most %d characters", MaxMessageLength)
)

// PostGuestbook validates and stores a message. New messages are approved
// so they show right away; admins can hide them later.
func (s *Service) PostGuestbook(ctx context.Context, name, message, email string) (model.GuestbookMessage, Saved, error) {
	name, message, email = input.Normalize(name), input.Normalize(message), input.Normalize(email)
	switch {
	case name == "" || message == "":
		return model.GuestbookMessage{}, Saved{}, ErrEmptyGuestbookField
	case input.Len(name) > MaxNameLength:
		return model.GuestbookMessage{}, Saved{}, ErrNameTooLong
	case input.Len(message) > MaxMessageLength:
		return model.GuestbookMessage{}, Saved{}, ErrMessageTooLong
	}

	msg := model.GuestbookMessage{
		ID:        uuid.NewString(),
		Name:      name,
		Message:   message,
		Email:     email,
		Approved:  true,
		CreatedAt: s.now().UTC(),
	}

	// newest first
	if _, err := storage.Update(ctx, s.store, storage.KeyGuestbookMessages, []model.GuestbookMessage{}, func(list []model.GuestbookMessage) ([]model.GuestbookMessage, error) {
		return append([]model.GuestbookMessage{msg}, list...), nil
	}); err != nil {
		return model.GuestbookMessage{}, Saved{}, fmt.Errorf("(*Service).PostGuestbook: %w", err)
	}

	saved := Saved{Remote: s.gateway.SaveGuestbookMessage(ctx, msg)}
	if s.notifier != nil {
		s.notifier.NotifyGuestbook(ctx, msg)
	}
	slog.Info("guestbook message posted", "id", msg.ID, "remote", saved.Remote)
	return msg, saved, nil
}

// Guestbook lists approved messages newest first, from the remote store
// when connected. A limit of zero or less means the default page size.
func (s *Service) Guestbook(ctx context.Context, limit int) []model.GuestbookMessage {
	if limit <= 0 {
		limit = remote.DefaultGuestbookLimit
	}
	if msgs, ok := s.gateway.LoadGuestbookMessages(ctx, limit); ok {
		return msgs
	}
	local := storage.Get(ctx, s.store, storage.KeyGuestbookMessages, []model.GuestbookMessage{})
	out := make([]model.GuestbookMessage, 0, len(local))
	for _, msg := range local {
		if msg.Approved {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
