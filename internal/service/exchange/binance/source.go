package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/cryptowatch/sentinel/internal/service/exchange"
	"github.com/shopspring/decimal"
)

var _ exchange.PriceSource = (*PriceSource)(nil)

// PriceSource 币安现货行情数据源
type PriceSource struct {
	cli   *binance.Client
	quote string
}

func NewPriceSource(cli *binance.Client) *PriceSource {
	return &PriceSource{
		cli:   cli,
		quote: "USDT",
	}
}

func (s *PriceSource) Name() string {
	return "Binance"
}

func (s *PriceSource) Fetch(ctx context.Context, symbol string) (exchange.PriceQuote, error) {
	pair := fmt.Sprintf("%s%s", exchange.NormalizeSymbol(symbol), s.quote)

	stats, err := s.cli.NewListPriceChangeStatsService().Symbol(pair).Do(ctx)
	if err != nil {
		return exchange.PriceQuote{}, err
	}
	if len(stats) == 0 {
		return exchange.PriceQuote{}, fmt.Errorf("%w: %s", exchange.ErrInvalidSymbol, symbol)
	}

	price, err := decimal.NewFromString(stats[0].LastPrice)
	if err != nil {
		return exchange.PriceQuote{}, fmt.Errorf("parse price %q: %w", stats[0].LastPrice, err)
	}
	if !price.IsPositive() {
		return exchange.PriceQuote{}, fmt.Errorf("%w: %s has no traded price", exchange.ErrInvalidSymbol, symbol)
	}

	quote := exchange.PriceQuote{
		Symbol:     exchange.NormalizeSymbol(symbol),
		Price:      price,
		ObservedAt: time.Now(),
	}
	if changePct, err := decimal.NewFromString(stats[0].PriceChangePercent); err == nil {
		quote.ChangePct = changePct
		quote.HasChange = true
	}
	return quote, nil
}
