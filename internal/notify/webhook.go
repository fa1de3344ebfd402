package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/marketsync/internal/crypto"
	"github.com/alanyoungcy/marketsync/internal/domain"
)

// WebhookSender POSTs the event as JSON to an arbitrary URL, signing the body
// when a secret is configured.
type WebhookSender struct {
	url    string
	signer *crypto.WebhookSigner
	client *resty.Client
}

// NewWebhookSender creates a WebhookSender. An empty secret disables signing.
func NewWebhookSender(url, secret string, policy RetryPolicy) *WebhookSender {
	w := &WebhookSender{
		url:    url,
		client: newHTTPClient(10*time.Second, policy),
	}
	if secret != "" {
		w.signer = &crypto.WebhookSigner{Secret: secret}
	}
	return w
}

// Send posts the event.
func (w *WebhookSender) Send(ctx context.Context, ev Event) domain.DeliveryReport {
	body, err := json.Marshal(ev)
	if err != nil {
		return domain.DeliveryReport{
			Channel: w.Name(),
			Event:   ev.Type,
			Error:   fmt.Sprintf("webhook: marshal payload: %v", err),
			SentAt:  time.Now().UTC(),
		}
	}
	var headers map[string]string
	if w.signer != nil {
		headers = w.signer.Headers(body)
	}
	return post(ctx, w.client, w.Name(), ev.Type, w.url, headers, body)
}

// Name returns the sender identifier.
func (w *WebhookSender) Name() string {
	return "webhook"
}
