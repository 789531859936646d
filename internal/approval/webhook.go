package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/platform/sentinel"
)

const dispatchTimeout = 10 * time.Second

// WebhookChannel forwards approval requests to the bot bridge that owns the
// actual DM delivery. The bridge acknowledges with 2xx once the message is
// queued for the channel identity.
type WebhookChannel struct {
	url    string
	client *http.Client
}

func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: dispatchTimeout},
	}
}

func (c *WebhookChannel) Dispatch(ctx context.Context, req Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal approval request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build approval request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("dispatch approval: %w", sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("approval channel returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	return nil
}
