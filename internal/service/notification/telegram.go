package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

var _ Channel = (*TelegramChannel)(nil)

// TelegramChannel 通过 Bot API 发送 Markdown 消息
type TelegramChannel struct {
	cli           *resty.Client
	token         string
	defaultChatId int64
}

func NewTelegramChannel(token string, defaultChatId int64) *TelegramChannel {
	return &TelegramChannel{
		cli:           resty.New().SetTimeout(10 * time.Second),
		token:         token,
		defaultChatId: defaultChatId,
	}
}

func (c *TelegramChannel) Name() string {
	return "telegram"
}

func (c *TelegramChannel) Send(ctx context.Context, recipient int64, message string) error {
	chatId := recipient
	if chatId == 0 {
		chatId = c.defaultChatId
	}
	if chatId == 0 {
		return fmt.Errorf("telegram: no recipient and no default chat id")
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.token)
	resp, err := c.cli.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"chat_id":    chatId,
			"text":       message,
			"parse_mode": "Markdown",
		}).
		Post(url)
	if err != nil {
		return fmt.Errorf("telegram API request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
