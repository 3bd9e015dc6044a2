package remote

import (
	"encoding/json"
	"invitation/src-server/model"
	"time"
)

type eventRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Title     string
	Date      string
	Location  string
	IsActive  bool `gorm:"index"`
	CreatedAt time.Time
}

func (eventRow) TableName() string { return "events" }

func (r eventRow) toModel() *model.EventInfo {
	return &model.EventInfo{
		ID:        r.ID,
		Title:     r.Title,
		Date:      r.Date,
		Location:  r.Location,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
	}
}

type rsvpRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	EventID   string `gorm:"index;size:64"`
	Name      string
	Phone     string
	Email     string
	Message   string
	Response  string `gorm:"size:8;index"`
	Source    string `gorm:"size:16"`
	CreatedAt time.Time
}

func (rsvpRow) TableName() string { return "rsvp_responses" }

func newRSVPRow(eventID string, rec model.AttendeeRecord) rsvpRow {
	return rsvpRow{
		ID:        rec.ID,
		EventID:   eventID,
		Name:      rec.Name,
		Phone:     rec.Phone,
		Email:     rec.Email,
		Message:   rec.Message,
		Response:  string(rec.Response),
		Source:    string(rec.Source),
		CreatedAt: rec.CreatedAt,
	}
}

func (r rsvpRow) toModel() model.AttendeeRecord {
	return model.AttendeeRecord{
		ID:        r.ID,
		Name:      r.Name,
		Phone:     r.Phone,
		Email:     r.Email,
		Message:   r.Message,
		Response:  model.Response(r.Response),
		Source:    model.Source(r.Source),
		CreatedAt: r.CreatedAt,
	}
}

type guestbookRow struct {
	ID         string `gorm:"primaryKey;size:64"`
	EventID    string `gorm:"index;size:64"`
	Name       string `gorm:"size:64"`
	Message    string
	Email      string
	IsApproved bool `gorm:"index"`
	CreatedAt  time.Time
}

func (guestbookRow) TableName() string { return "guestbook_messages" }

func newGuestbookRow(eventID string, msg model.GuestbookMessage) guestbookRow {
	return guestbookRow{
		ID:         msg.ID,
		EventID:    eventID,
		Name:       msg.Name,
		Message:    msg.Message,
		Email:      msg.Email,
		IsApproved: msg.Approved,
		CreatedAt:  msg.CreatedAt,
	}
}

func (r guestbookRow) toModel() model.GuestbookMessage {
	return model.GuestbookMessage{
		ID:        r.ID,
		Name:      r.Name,
		Message:   r.Message,
		Email:     r.Email,
		Approved:  r.IsApproved,
		CreatedAt: r.CreatedAt,
	}
}

type contentRow struct {
	EventID   string `gorm:"primaryKey;size:64"`
	Data      string `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (contentRow) TableName() string { return "event_content" }

func (r contentRow) toModel() (model.ContentOverrides, error) {
	var c model.ContentOverrides
	err := json.Unmarshal([]byte(r.Data), &c)
	return c, err
}

type qrRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	EventID   string `gorm:"index;size:64"`
	Name      string
	Phone     string
	Email     string
	Timestamp int64
	Status    string `gorm:"size:8"`
	Type      string `gorm:"size:16"`
	IsUsed    bool
	UsedAt    *time.Time
}

func (qrRow) TableName() string { return "qr_codes" }

func newQRRow(eventID string, rec model.QRRecord) qrRow {
	return qrRow{
		ID:        rec.ID,
		EventID:   eventID,
		Name:      rec.Name,
		Phone:     rec.Phone,
		Email:     rec.Email,
		Timestamp: rec.Timestamp,
		Status:    string(rec.Status),
		Type:      rec.Type,
		IsUsed:    rec.Status == model.QRStatusUsed,
		UsedAt:    rec.UsedAt,
	}
}

func (r qrRow) toModel() model.QRRecord {
	return model.QRRecord{
		QRPayload: model.QRPayload{
			ID:        r.ID,
			Name:      r.Name,
			Phone:     r.Phone,
			Email:     r.Email,
			EventID:   r.EventID,
			Timestamp: r.Timestamp,
			Status:    model.QRStatus(r.Status),
			Type:      r.Type,
		},
		UsedAt: r.UsedAt,
	}
}

type entryRow struct {
	ID          string `gorm:"primaryKey;size:64"`
	EventID     string `gorm:"index;size:64"`
	Name        string
	Phone       string
	Email       string
	QRTimestamp int64
	Status      string `gorm:"size:8"`
	Type        string `gorm:"size:16"`
	EntryTime   time.Time
	ScannedAt   time.Time
}

func (entryRow) TableName() string { return "entry_records" }

func newEntryRow(eventID string, e model.ScannedEntryRecord) entryRow {
	return entryRow{
		ID:          e.ID,
		EventID:     eventID,
		Name:        e.Name,
		Phone:       e.Phone,
		Email:       e.Email,
		QRTimestamp: e.Timestamp,
		Status:      string(e.Status),
		Type:        e.Type,
		EntryTime:   e.EntryTime,
		ScannedAt:   e.ScannedAt,
	}
}

func (r entryRow) toModel() model.ScannedEntryRecord {
	return model.ScannedEntryRecord{
		QRPayload: model.QRPayload{
			ID:        r.ID,
			Name:      r.Name,
			Phone:     r.Phone,
			Email:     r.Email,
			EventID:   r.EventID,
			Timestamp: r.QRTimestamp,
			Status:    model.QRStatus(r.Status),
			Type:      r.Type,
		},
		EntryTime: r.EntryTime,
		ScannedAt: r.ScannedAt,
	}
}
