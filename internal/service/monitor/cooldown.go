package monitor

import (
	"time"

	"github.com/cryptowatch/sentinel/internal/entity"
)

// ShouldSuppress 冷却门控: 上次触发后未满冷却时间的任务不再触发
// cooldown_seconds <= 0 视为关闭冷却, 任务始终处于可触发状态
func ShouldSuppress(task entity.MonitorTask, now time.Time) bool {
	if task.CooldownSeconds <= 0 {
		return false
	}
	if task.LastTriggeredAt == nil {
		return false
	}
	cooldown := time.Duration(task.CooldownSeconds) * time.Second
	return now.Sub(*task.LastTriggeredAt) < cooldown
}
