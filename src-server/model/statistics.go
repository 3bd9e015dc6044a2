package model

import "time"

type Statistics struct {
	TotalRSVP   int `json:"totalRsvp"`
	Yes         int `json:"yes"`
	No          int `json:"no"`
	Maybe       int `json:"maybe"`
	Guestbook   int `json:"guestbook"`
	QRGenerated int `json:"qrGenerated"`
	QRUsed      int `json:"qrUsed"`
}

// UsageRate is the percentage of generated codes that were used.
func (s Statistics) UsageRate() float64 {
	if s.QRGenerated == 0 {
		return 0
	}
	return float64(s.QRUsed) / float64(s.QRGenerated) * 100
}

type EventInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	Location  string    `json:"location"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

const DefaultEventID = "default-event"
