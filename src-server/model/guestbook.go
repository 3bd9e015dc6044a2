package model

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

type GuestbookMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Email     string    `json:"email,omitempty"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"createdAt"`
}

func (g *GuestbookMessage) ToDiscordEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "New guestbook message from " + g.Name,
		Type:        discordgo.EmbedTypeRich,
		Description: g.Message,
		Timestamp:   g.CreatedAt.Format(time.RFC3339),
	}
}
