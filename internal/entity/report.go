package entity

import (
	"strings"
	"time"
)

// ReportConfig 用户定时价格汇报配置
type ReportConfig struct {
	UserId          int64 `gorm:"primaryKey"`
	Enabled         bool
	IntervalMinutes int
	Symbols         string `gorm:"type:text"` // 逗号分隔
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

var defaultReportSymbols = []string{"BTC", "ETH", "ADA"}

func (c *ReportConfig) SymbolList() []string {
	if c.Symbols == "" {
		return defaultReportSymbols
	}
	parts := strings.Split(c.Symbols, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			res = append(res, p)
		}
	}
	if len(res) == 0 {
		return defaultReportSymbols
	}
	return res
}
