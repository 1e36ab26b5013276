package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cryptowatch/sentinel/internal/entity"
	"github.com/shopspring/decimal"
)

type RuleType string

const (
	RuleTypePriceThreshold RuleType = "PRICE_THRESHOLD"
	RuleTypePercentage     RuleType = "PERCENTAGE"
)

// ErrInvalidConfig 永久性配置错误, 不重试, 配置被修改前任务一直跳过
var ErrInvalidConfig = errors.New("invalid rule config")

// ThresholdConfig 价格阈值规则配置, 上下限至少存在一个, 可同时配置构成区间突破监控
type ThresholdConfig struct {
	High *decimal.Decimal `json:"threshold_high,omitempty"`
	Low  *decimal.Decimal `json:"threshold_low,omitempty"`
}

// PercentageConfig 涨跌幅规则配置, 阈值按绝对值解释, 正负都允许
type PercentageConfig struct {
	ReferencePrice      decimal.Decimal `json:"reference_price"`
	PercentageThreshold decimal.Decimal `json:"percentage_threshold"`
}

// Rule 封闭的规则变体集合, 新规则类型通过扩展变体加入, 不做运行时类型探测
type Rule struct {
	Type       RuleType
	Threshold  *ThresholdConfig
	Percentage *PercentageConfig
}

// ParseRule 解析并校验规则配置
// 解析失败或形状不匹配都是永久性失败, 返回 ErrInvalidConfig
func ParseRule(ruleType string, rawConfig string) (Rule, error) {
	switch RuleType(ruleType) {
	case RuleTypePriceThreshold:
		var cfg ThresholdConfig
		if err := json.Unmarshal([]byte(rawConfig), &cfg); err != nil {
			return Rule{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err)
		}
		if cfg.High == nil && cfg.Low == nil {
			return Rule{}, fmt.Errorf("%w: at least one of threshold_high/threshold_low required", ErrInvalidConfig)
		}
		return Rule{Type: RuleTypePriceThreshold, Threshold: &cfg}, nil

	case RuleTypePercentage:
		var cfg PercentageConfig
		if err := json.Unmarshal([]byte(rawConfig), &cfg); err != nil {
			return Rule{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err)
		}
		if !cfg.ReferencePrice.IsPositive() {
			return Rule{}, fmt.Errorf("%w: reference_price must be positive", ErrInvalidConfig)
		}
		if cfg.PercentageThreshold.IsZero() {
			return Rule{}, fmt.Errorf("%w: percentage_threshold must be non-zero", ErrInvalidConfig)
		}
		return Rule{Type: RuleTypePercentage, Percentage: &cfg}, nil

	default:
		return Rule{}, fmt.Errorf("%w: unknown rule type %q", ErrInvalidConfig, ruleType)
	}
}

// Decision 规则评估结果
type Decision struct {
	Triggered    bool
	Message      string
	Condition    string // 触发条件描述, 如 "价格 ≥ $50000.00"
	TriggerPrice decimal.Decimal
}

// ErrDailyLimitReached 用户当日预警数量已达上限, 本次触发被拒绝
var ErrDailyLimitReached = errors.New("daily alert limit reached")

// Dispatcher 触发决定的下游, 负责落库与多渠道通知分发
type Dispatcher interface {
	Dispatch(ctx context.Context, task *entity.MonitorTask, symbol, message string, triggerPrice decimal.Decimal) (entity.AlertEvent, error)
}
