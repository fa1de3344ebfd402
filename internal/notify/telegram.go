package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// DefaultTelegramAPI is the Telegram Bot API root.
const DefaultTelegramAPI = "https://api.telegram.org"

// TelegramSender delivers notifications via the Telegram Bot API.
type TelegramSender struct {
	apiBase string
	token   string
	chatID  string
	client  *resty.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and chat
// ID. An empty apiBase means DefaultTelegramAPI.
func NewTelegramSender(apiBase, token, chatID string, policy RetryPolicy) *TelegramSender {
	if apiBase == "" {
		apiBase = DefaultTelegramAPI
	}
	return &TelegramSender{
		apiBase: strings.TrimSuffix(apiBase, "/"),
		token:   token,
		chatID:  chatID,
		client:  newHTTPClient(10*time.Second, policy),
	}
}

// Send posts a message to the configured Telegram chat using the sendMessage
// API. The title is rendered in bold using Markdown syntax.
func (t *TelegramSender) Send(ctx context.Context, ev Event) domain.DeliveryReport {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)

	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("*%s*\n%s", ev.Title, ev.Message),
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.DeliveryReport{Channel: t.Name(), Event: ev.Type, Error: fmt.Sprintf("telegram: marshal payload: %v", err), SentAt: time.Now().UTC()}
	}

	r := post(ctx, t.client, t.Name(), ev.Type, url, nil, body)
	// The token is part of the URL; keep it out of reports.
	r.Error = strings.ReplaceAll(r.Error, t.token, "<token>")
	return r
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
