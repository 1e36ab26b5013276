package entity

import (
	"time"
)

// AlertEvent 预警历史记录, 每次触发只写入一条, 写入后不可变
type AlertEvent struct {
	AlertId      int64  `gorm:"primaryKey;autoIncrement"`
	TaskId       *int64 `gorm:"index"` // 为空表示系统级预警, 不关联任务
	UserId       int64  `gorm:"index"`
	Symbol       string `gorm:"index;size:20"`
	TriggerPrice string
	Message      string    `gorm:"type:text"`
	TriggeredAt  time.Time `gorm:"index"`
	SentSuccess  bool      // 至少一个通知渠道确认送达才为 true
}
