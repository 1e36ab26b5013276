package exchange

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidSymbol = errors.New("invalid symbol")

// PriceQuote 某个币种在某一时刻的行情
type PriceQuote struct {
	Symbol     string
	Price      decimal.Decimal
	ChangePct  decimal.Decimal // 24h 涨跌幅, 百分比
	HasChange  bool            // 数据源是否提供 24h 涨跌幅
	ObservedAt time.Time
}

// PriceSource 价格数据源, 上游视为不可信且可能很慢, 重试与降级都在 Gateway 层做
type PriceSource interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (PriceQuote, error)
}

// NormalizeSymbol 规范化币种符号: 大写, 去掉 USDT 后缀
// BTCUSDT / btc / BTC 都规范化为 BTC
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.TrimSuffix(s, "USDT")
	return s
}
