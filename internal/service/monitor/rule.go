package monitor

import (
	"fmt"

	"github.com/cryptowatch/sentinel/internal/service/exchange"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluate 对一条已校验的规则评估一个价格快照
// 纯函数, 不做 IO 不改状态, 相同输入永远得到相同决定
func Evaluate(rule Rule, snapshot exchange.PriceQuote) Decision {
	switch rule.Type {
	case RuleTypePriceThreshold:
		return evaluateThreshold(rule.Threshold, snapshot)
	case RuleTypePercentage:
		return evaluatePercentage(rule.Percentage, snapshot)
	default:
		// ParseRule 已拒绝未知类型
		return Decision{}
	}
}

func evaluateThreshold(cfg *ThresholdConfig, snapshot exchange.PriceQuote) Decision {
	price := snapshot.Price

	if cfg.High != nil && price.GreaterThanOrEqual(*cfg.High) {
		condition := fmt.Sprintf("价格 ≥ $%s", cfg.High.StringFixed(2))
		return Decision{
			Triggered: true,
			Condition: condition,
			Message: fmt.Sprintf("🔴 *%s 价格预警*\n\n当前价格: `$%s`\n已达到上限: `≥ $%s`\n\n📈 突破上限阈值！",
				snapshot.Symbol, price.StringFixed(2), cfg.High.StringFixed(2)),
			TriggerPrice: price,
		}
	}

	if cfg.Low != nil && price.LessThanOrEqual(*cfg.Low) {
		condition := fmt.Sprintf("价格 ≤ $%s", cfg.Low.StringFixed(2))
		return Decision{
			Triggered: true,
			Condition: condition,
			Message: fmt.Sprintf("🟢 *%s 价格预警*\n\n当前价格: `$%s`\n已达到下限: `≤ $%s`\n\n📉 跌破下限阈值！",
				snapshot.Symbol, price.StringFixed(2), cfg.Low.StringFixed(2)),
			TriggerPrice: price,
		}
	}

	return Decision{TriggerPrice: price}
}

func evaluatePercentage(cfg *PercentageConfig, snapshot exchange.PriceQuote) Decision {
	price := snapshot.Price

	// 偏离幅度带符号, 阈值按绝对值比较
	deviation := price.Sub(cfg.ReferencePrice).Div(cfg.ReferencePrice).Mul(hundred)
	if deviation.Abs().LessThan(cfg.PercentageThreshold.Abs()) {
		return Decision{TriggerPrice: price}
	}

	signed := deviation.StringFixed(2)
	if !deviation.IsNegative() {
		signed = "+" + signed
	}

	icon := "📈"
	direction := "涨幅"
	if deviation.IsNegative() {
		icon = "📉"
		direction = "跌幅"
	}

	return Decision{
		Triggered: true,
		Condition: fmt.Sprintf("%s ≥ %s%%", direction, cfg.PercentageThreshold.Abs().String()),
		Message: fmt.Sprintf("%s *%s %s预警*\n\n当前价格: `$%s`\n参考价格: `$%s`\n涨跌幅: `%s%%`\n\n🔥 %s已达 %s%%！",
			icon, snapshot.Symbol, direction,
			price.StringFixed(2), cfg.ReferencePrice.StringFixed(2),
			signed, direction, cfg.PercentageThreshold.Abs().String()),
		TriggerPrice: price,
	}
}
