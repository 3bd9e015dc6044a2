package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

type Response string

const (
	ResponseYes   Response = "yes"
	ResponseNo    Response = "no"
	ResponseMaybe Response = "maybe"
)

func (r Response) Valid() bool {
	switch r {
	case ResponseYes, ResponseNo, ResponseMaybe:
		return true
	}
	return false
}

type Source string

const (
	SourceRSVP      Source = "rsvp"
	SourceAttendee  Source = "attendee"
	SourceGuestbook Source = "guestbook"
)

var (
	ErrNameRequired    = errors.New("name is required")
	ErrContactRequired = errors.New("phone and email are required")
)

type AttendeeRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Message   string    `json:"message,omitempty"`
	Response  Response  `json:"response"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the required fields. Contact details are only required
// when a QR code will be issued for the attendee.
func (a *AttendeeRecord) Validate(requireContact bool) error {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return fmt.Errorf("(*AttendeeRecord).Validate: %w", ErrNameRequired)
	case requireContact && (strings.TrimSpace(a.Phone) == "" || strings.TrimSpace(a.Email) == ""):
		return fmt.Errorf("(*AttendeeRecord).Validate: %w", ErrContactRequired)
	case a.Response != "" && !a.Response.Valid():
		return fmt.Errorf("(*AttendeeRecord).Validate: unknown response %q", a.Response)
	}
	return nil
}

func (a *AttendeeRecord) ToDiscordEmbed() *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Response", Value: string(a.Response), Inline: true},
	}
	if a.Phone != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Phone", Value: a.Phone, Inline: true})
	}
	if a.Email != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Email", Value: a.Email, Inline: true})
	}
	if a.Message != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Message", Value: a.Message})
	}
	return &discordgo.MessageEmbed{
		Title:     "New RSVP: " + a.Name,
		Type:      discordgo.EmbedTypeRich,
		Fields:    fields,
		Timestamp: a.CreatedAt.Format(time.RFC3339),
	}
}
