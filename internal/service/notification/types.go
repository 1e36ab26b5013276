package notification

import "context"

// Channel 通知渠道, 不同传输方式对分发器呈现统一形状
// recipient 为接收方标识 (如 Telegram chat id), 0 表示发给渠道默认接收方
type Channel interface {
	Name() string
	Send(ctx context.Context, recipient int64, message string) error
}
