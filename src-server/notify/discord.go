package notify

import (
	"context"
	"fmt"
	"invitation/src-server/model"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Discord posts embeds for new RSVPs and guestbook messages to a webhook.
// A Discord without webhook credentials drops everything silently.
type Discord struct {
	session *discordgo.Session
	id      string
	token   string
	onSend  func(time.Duration)
}

func NewDiscord(webhookID, webhookToken string) (*Discord, error) {
	if webhookID == "" || webhookToken == "" {
		slog.Info("discord webhook not configured, notifications disabled")
		return &Discord{}, nil
	}
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("NewDiscord: %w", err)
	}
	return &Discord{session: session, id: webhookID, token: webhookToken}, nil
}

func (d *Discord) Enabled() bool {
	return d != nil && d.session != nil
}

// ObserveLatency installs a hook called after each successful webhook call.
func (d *Discord) ObserveLatency(fn func(time.Duration)) {
	d.onSend = fn
}

func (d *Discord) NotifyRSVP(ctx context.Context, rec model.AttendeeRecord) {
	d.send(ctx, rec.ToDiscordEmbed())
}

func (d *Discord) NotifyGuestbook(ctx context.Context, msg model.GuestbookMessage) {
	d.send(ctx, msg.ToDiscordEmbed())
}

func (d *Discord) send(ctx context.Context, embed *discordgo.MessageEmbed) {
	if !d.Enabled() {
		return
	}
	go func() {
		start := time.Now()
		if _, err := d.session.WebhookExecute(d.id, d.token, false, &discordgo.WebhookParams{
			Embeds: []*discordgo.MessageEmbed{embed},
		}, discordgo.WithContext(context.WithoutCancel(ctx))); err != nil {
			slog.Warn("can't send discord notification", "error", err)
			return
		}
		if d.onSend != nil {
			d.onSend(time.Since(start))
		}
	}()
}
