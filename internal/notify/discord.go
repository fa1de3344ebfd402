package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// DiscordSender delivers notifications via a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *resty.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(webhookURL string, policy RetryPolicy) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     newHTTPClient(10*time.Second, policy),
	}
}

// Send posts a message to the Discord webhook. The title is rendered in bold
// using Discord markdown syntax.
func (d *DiscordSender) Send(ctx context.Context, ev Event) domain.DeliveryReport {
	payload := map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", ev.Title, ev.Message),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.DeliveryReport{Channel: d.Name(), Event: ev.Type, Error: fmt.Sprintf("discord: marshal payload: %v", err), SentAt: time.Now().UTC()}
	}
	// Discord returns 204 No Content on success.
	return post(ctx, d.client, d.Name(), ev.Type, d.webhookURL, nil, body)
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
