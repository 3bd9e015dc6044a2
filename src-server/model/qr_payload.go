package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type QRStatus string

const (
	QRStatusActive QRStatus = "active"
	QRStatusUsed   QRStatus = "used"
)

const QRTypeAttendee = "attendee"

var ErrQRAlreadyUsed = errors.New("qr code already used")

// QRPayload is the scanned content of an issued code. Field order is the
// wire order; codes generated by one run must be readable by another.
type QRPayload struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Phone     string   `json:"phone,omitempty"`
	Email     string   `json:"email,omitempty"`
	EventID   string   `json:"eventId"`
	Timestamp int64    `json:"timestamp"`
	Status    QRStatus `json:"status"`
	Type      string   `json:"type"`
}

func (p *QRPayload) CreatedAt() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// MarkUsed is one-way, a used payload never becomes active again.
func (p *QRPayload) MarkUsed() {
	p.Status = QRStatusUsed
}

func (p *QRPayload) Marshal() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("(*QRPayload).Marshal: %w", err)
	}
	return string(b), nil
}

func ParseQRPayload(raw string) (*QRPayload, error) {
	p := new(QRPayload)
	if err := json.Unmarshal([]byte(raw), p); err != nil {
		return nil, fmt.Errorf("ParseQRPayload: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("ParseQRPayload: missing id")
	}
	return p, nil
}

type QRRecord struct {
	QRPayload
	UsedAt *time.Time `json:"usedAt,omitempty"`
}

type ScannedEntryRecord struct {
	QRPayload
	EntryTime time.Time `json:"entryTime"`
	ScannedAt time.Time `json:"scannedAt"`
}
