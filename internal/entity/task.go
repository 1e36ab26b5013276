package entity

import (
	"time"
)

// MonitorTask 用户的价格监控任务
type MonitorTask struct {
	TaskId          int64  `gorm:"primaryKey;autoIncrement"`
	UserId          int64  `gorm:"index"`
	Symbol          string `gorm:"index;size:20"` // 规范化大写, 如 BTC
	MarketType      string `gorm:"size:10"`       // SPOT / FUTURES
	RuleType        string `gorm:"size:50"`       // PRICE_THRESHOLD / PERCENTAGE
	RuleConfig      string `gorm:"type:text"`     // JSON 格式
	Status          string `gorm:"index;size:20"` // ACTIVE / PAUSED / DELETED
	CooldownSeconds int
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const (
	TaskStatusActive  = "ACTIVE"
	TaskStatusPaused  = "PAUSED"
	TaskStatusDeleted = "DELETED"
)

const (
	MarketTypeSpot    = "SPOT"
	MarketTypeFutures = "FUTURES"
)

const DefaultCooldownSeconds = 300
