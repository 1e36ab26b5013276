package ioc

import (
	"github.com/cryptowatch/sentinel/internal/service/notification"
	"github.com/spf13/viper"
)

// InitChannels 按配置组装通知渠道, 没有任何配置时退回控制台渠道
func InitChannels() []notification.Channel {
	type TelegramConfig struct {
		Token         string `mapstructure:"token"`
		DefaultChatId int64  `mapstructure:"default_chat_id"`
	}
	type WebhookConfig struct {
		Name string `mapstructure:"name"`
		URL  string `mapstructure:"url"`
	}
	type Config struct {
		Telegram TelegramConfig  `mapstructure:"telegram"`
		Webhooks []WebhookConfig `mapstructure:"webhooks"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("notification", &cfg); err != nil {
		panic(err)
	}

	var channels []notification.Channel
	if cfg.Telegram.Token != "" {
		channels = append(channels, notification.NewTelegramChannel(cfg.Telegram.Token, cfg.Telegram.DefaultChatId))
	}
	for _, wh := range cfg.Webhooks {
		if wh.URL != "" {
			channels = append(channels, notification.NewWebhookChannel(wh.Name, wh.URL))
		}
	}
	if len(channels) == 0 {
		channels = append(channels, notification.NewConsoleChannel())
	}
	return channels
}
