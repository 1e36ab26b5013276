package monitor

import (
	"testing"
	"time"

	"github.com/cryptowatch/sentinel/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestShouldSuppress(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	lastAt := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name     string
		task     entity.MonitorTask
		suppress bool
	}{
		{
			name:     "从未触发过",
			task:     entity.MonitorTask{CooldownSeconds: 300},
			suppress: false,
		},
		{
			name:     "冷却期内",
			task:     entity.MonitorTask{CooldownSeconds: 300, LastTriggeredAt: lastAt(60 * time.Second)},
			suppress: true,
		},
		{
			name:     "恰好到达冷却边界",
			task:     entity.MonitorTask{CooldownSeconds: 300, LastTriggeredAt: lastAt(300 * time.Second)},
			suppress: false,
		},
		{
			name:     "冷却已过",
			task:     entity.MonitorTask{CooldownSeconds: 300, LastTriggeredAt: lastAt(301 * time.Second)},
			suppress: false,
		},
		{
			name:     "冷却为零视为关闭",
			task:     entity.MonitorTask{CooldownSeconds: 0, LastTriggeredAt: lastAt(time.Second)},
			suppress: false,
		},
		{
			name:     "冷却为负视为关闭",
			task:     entity.MonitorTask{CooldownSeconds: -1, LastTriggeredAt: lastAt(time.Second)},
			suppress: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.suppress, ShouldSuppress(tt.task, now))
		})
	}
}
