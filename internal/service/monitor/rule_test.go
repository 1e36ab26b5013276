package monitor

import (
	"testing"
	"time"

	"github.com/cryptowatch/sentinel/internal/service/exchange"
	"github.com/cryptowatch/sentinel/pkg/decimalx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotAt(symbol string, price string) exchange.PriceQuote {
	return exchange.PriceQuote{
		Symbol:     symbol,
		Price:      decimalx.MustFromString(price),
		ObservedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		name       string
		ruleType   string
		rawConfig  string
		expectErr  bool
		expectType RuleType
	}{
		{
			name:       "仅上限",
			ruleType:   "PRICE_THRESHOLD",
			rawConfig:  `{"threshold_high": 50000}`,
			expectType: RuleTypePriceThreshold,
		},
		{
			name:       "仅下限",
			ruleType:   "PRICE_THRESHOLD",
			rawConfig:  `{"threshold_low": 40000}`,
			expectType: RuleTypePriceThreshold,
		},
		{
			name:       "区间突破",
			ruleType:   "PRICE_THRESHOLD",
			rawConfig:  `{"threshold_high": 50000, "threshold_low": 40000}`,
			expectType: RuleTypePriceThreshold,
		},
		{
			name:      "阈值配置为空",
			ruleType:  "PRICE_THRESHOLD",
			rawConfig: `{}`,
			expectErr: true,
		},
		{
			name:      "非法 JSON",
			ruleType:  "PRICE_THRESHOLD",
			rawConfig: `{threshold_high:`,
			expectErr: true,
		},
		{
			name:       "涨跌幅配置",
			ruleType:   "PERCENTAGE",
			rawConfig:  `{"reference_price": 90000, "percentage_threshold": 5}`,
			expectType: RuleTypePercentage,
		},
		{
			name:       "负数阈值按绝对值",
			ruleType:   "PERCENTAGE",
			rawConfig:  `{"reference_price": 90000, "percentage_threshold": -5}`,
			expectType: RuleTypePercentage,
		},
		{
			name:      "参考价为零",
			ruleType:  "PERCENTAGE",
			rawConfig: `{"reference_price": 0, "percentage_threshold": 5}`,
			expectErr: true,
		},
		{
			name:      "阈值为零",
			ruleType:  "PERCENTAGE",
			rawConfig: `{"reference_price": 90000, "percentage_threshold": 0}`,
			expectErr: true,
		},
		{
			name:      "未知规则类型",
			ruleType:  "MOON_PHASE",
			rawConfig: `{}`,
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := ParseRule(tt.ruleType, tt.rawConfig)
			if tt.expectErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectType, rule.Type)
		})
	}
}

func TestEvaluate_PriceThreshold(t *testing.T) {
	tests := []struct {
		name            string
		config          string
		price           string
		expectTriggered bool
		expectContains  []string
	}{
		{
			name:            "突破上限",
			config:          `{"threshold_high": 50000}`,
			price:           "50125",
			expectTriggered: true,
			expectContains:  []string{"≥", "50000"},
		},
		{
			name:            "恰好等于上限",
			config:          `{"threshold_high": 50000}`,
			price:           "50000",
			expectTriggered: true,
			expectContains:  []string{"≥"},
		},
		{
			name:            "未达上限",
			config:          `{"threshold_high": 50000}`,
			price:           "49999.99",
			expectTriggered: false,
		},
		{
			name:            "跌破下限",
			config:          `{"threshold_low": 40000}`,
			price:           "39500",
			expectTriggered: true,
			expectContains:  []string{"≤", "40000"},
		},
		{
			name:            "区间内不触发",
			config:          `{"threshold_high": 50000, "threshold_low": 40000}`,
			price:           "45000",
			expectTriggered: false,
		},
		{
			name:            "区间上沿触发上限消息",
			config:          `{"threshold_high": 50000, "threshold_low": 40000}`,
			price:           "51000",
			expectTriggered: true,
			expectContains:  []string{"≥", "50000"},
		},
		{
			name:            "区间下沿触发下限消息",
			config:          `{"threshold_high": 50000, "threshold_low": 40000}`,
			price:           "39000",
			expectTriggered: true,
			expectContains:  []string{"≤", "40000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := ParseRule("PRICE_THRESHOLD", tt.config)
			require.NoError(t, err)

			snapshot := snapshotAt("BTC", tt.price)
			decision := Evaluate(rule, snapshot)

			assert.Equal(t, tt.expectTriggered, decision.Triggered)
			assert.True(t, decision.TriggerPrice.Equal(snapshot.Price))
			for _, s := range tt.expectContains {
				assert.Contains(t, decision.Message, s)
			}
		})
	}
}

func TestEvaluate_Percentage(t *testing.T) {
	tests := []struct {
		name            string
		config          string
		price           string
		expectTriggered bool
		expectContains  []string
	}{
		{
			name:            "涨幅超阈值",
			config:          `{"reference_price": 90000, "percentage_threshold": 5}`,
			price:           "94600", // +5.11%
			expectTriggered: true,
			expectContains:  []string{"+5.11%", "涨幅"},
		},
		{
			name:            "跌幅超阈值",
			config:          `{"reference_price": 90000, "percentage_threshold": 5}`,
			price:           "85000", // -5.56%
			expectTriggered: true,
			expectContains:  []string{"-5.56%", "跌幅"},
		},
		{
			name:            "负数阈值同样按绝对值比较",
			config:          `{"reference_price": 90000, "percentage_threshold": -5}`,
			price:           "94600",
			expectTriggered: true,
			expectContains:  []string{"+5.11%"},
		},
		{
			name:            "偏离不足",
			config:          `{"reference_price": 90000, "percentage_threshold": 5}`,
			price:           "92000", // +2.22%
			expectTriggered: false,
		},
		{
			name:            "恰好等于阈值",
			config:          `{"reference_price": 100, "percentage_threshold": 5}`,
			price:           "105", // 正好 +5%
			expectTriggered: true,
			expectContains:  []string{"+5.00%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := ParseRule("PERCENTAGE", tt.config)
			require.NoError(t, err)

			decision := Evaluate(rule, snapshotAt("BTC", tt.price))
			assert.Equal(t, tt.expectTriggered, decision.Triggered)
			for _, s := range tt.expectContains {
				assert.Contains(t, decision.Message, s)
			}
		})
	}
}

// 相同输入必须得到相同决定, 评估器是纯函数
func TestEvaluate_Deterministic(t *testing.T) {
	rule, err := ParseRule("PERCENTAGE", `{"reference_price": 90000, "percentage_threshold": 5}`)
	require.NoError(t, err)

	snapshot := snapshotAt("BTC", "94600")
	first := Evaluate(rule, snapshot)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(rule, snapshot))
	}
}

func TestEvaluate_DecimalPrecision(t *testing.T) {
	// 0.1+0.2 这类二进制浮点误差不能导致阈值误判
	rule := Rule{Type: RuleTypePriceThreshold, Threshold: &ThresholdConfig{
		High: decimalx.Ptr(decimalx.MustFromString("0.3")),
	}}

	price := decimalx.MustFromString("0.1").Add(decimalx.MustFromString("0.2"))
	decision := Evaluate(rule, exchange.PriceQuote{Symbol: "XRP", Price: price, ObservedAt: time.Now()})
	assert.True(t, decision.Triggered)

	below := decimal.RequireFromString("0.29999999")
	decision = Evaluate(rule, exchange.PriceQuote{Symbol: "XRP", Price: below, ObservedAt: time.Now()})
	assert.False(t, decision.Triggered)
}
