package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

var _ Channel = (*WebhookChannel)(nil)

// WebhookChannel 向固定 URL 推送 JSON, 用于接入自建面板或聊天机器人网关
type WebhookChannel struct {
	cli  *resty.Client
	name string
	url  string
}

func NewWebhookChannel(name, url string) *WebhookChannel {
	return &WebhookChannel{
		cli:  resty.New().SetTimeout(10 * time.Second),
		name: name,
		url:  url,
	}
}

func (c *WebhookChannel) Name() string {
	return c.name
}

func (c *WebhookChannel) Send(ctx context.Context, recipient int64, message string) error {
	resp, err := c.cli.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"recipient": recipient,
			"message":   message,
		}).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("webhook %s request failed: %w", c.name, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("webhook %s returned status %d: %s", c.name, resp.StatusCode(), resp.String())
	}
	return nil
}
