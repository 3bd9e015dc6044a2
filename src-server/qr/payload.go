package qr

import (
	"fmt"
	"invitation/src-server/model"
	"strconv"
	"strings"
	"time"
)

// NewID derives a code id from the issue time: "QR-" followed by the epoch
// milliseconds in upper-case base 36.
func NewID(now time.Time) string {
	return "QR-" + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
}

// NewPayload validates attendee and builds the payload carried by the code.
// An empty eventID falls back to model.DefaultEventID.
func NewPayload(attendee model.AttendeeRecord, eventID string, now time.Time, requireContact bool) (model.QRPayload, error) {
	if err := attendee.Validate(requireContact); err != nil {
		return model.QRPayload{}, fmt.Errorf("NewPayload: %w", err)
	}
	if eventID == "" {
		eventID = model.DefaultEventID
	}
	return model.QRPayload{
		ID:        NewID(now),
		Name:      strings.TrimSpace(attendee.Name),
		Phone:     strings.TrimSpace(attendee.Phone),
		Email:     strings.TrimSpace(attendee.Email),
		EventID:   eventID,
		Timestamp: now.UnixMilli(),
		Status:    model.QRStatusActive,
		Type:      model.QRTypeAttendee,
	}, nil
}
