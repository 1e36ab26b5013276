package notification

import (
	"context"
	"fmt"
)

var _ Channel = (*ConsoleChannel)(nil)

// ConsoleChannel 打印到标准输出, 开发调试用
type ConsoleChannel struct {
}

func NewConsoleChannel() *ConsoleChannel {
	return &ConsoleChannel{}
}

func (c *ConsoleChannel) Name() string {
	return "console"
}

func (c *ConsoleChannel) Send(ctx context.Context, recipient int64, message string) error {
	fmt.Printf("[alert] to=%d\n%s\n", recipient, message)
	return nil
}
