package webhook

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// Payload is the body of a Discord style webhook call
type Payload struct {
	Content string  `json:"content"`
	Embeds  []Embed `json:"embeds"`
}

type Embed struct {
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Image       Image    `json:"image"`
	Provider    Provider `json:"provider"`
}

type Image struct {
	URL string `json:"url"`
}

type Provider struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Dispatcher posts alert payloads to webhook URLs
type Dispatcher struct {
	client *resty.Client
}

// NewDispatcher creates a dispatcher whose calls give up after timeout
func NewDispatcher(timeout time.Duration) *Dispatcher {
	client := resty.New()
	client.SetTimeout(timeout)

	return &Dispatcher{client: client}
}

// Send posts payload to url once. The outcome is logged and never returned as an error,
// the result only tells whether the endpoint answered with a 2xx status.
func (d *Dispatcher) Send(ctx context.Context, url string, payload Payload) bool {
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(url)
	if err != nil {
		log.WithField("webhook", url).Errorf("❌ Failed to send webhook: %v", err)
		return false
	}

	log.WithField("webhook", url).Infof("%s: %s", resp.Status(), resp.String())

	if !resp.IsSuccess() {
		log.WithField("webhook", url).Warnf("⚠️ Webhook rejected alert with status %d", resp.StatusCode())
		return false
	}
	return true
}
