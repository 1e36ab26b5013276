package cryptocompare

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cryptowatch/sentinel/internal/service/exchange"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://min-api.cryptocompare.com/data"

var _ exchange.PriceSource = (*PriceSource)(nil)

// PriceSource Cryptocompare 行情数据源
// 固定使用 Binance 交易所数据, 保证和主数据源口径一致
type PriceSource struct {
	cli      *resty.Client
	exchange string
}

func NewPriceSource(opts ...Option) *PriceSource {
	s := &PriceSource{
		cli:      resty.New().SetBaseURL(defaultBaseURL).SetTimeout(10 * time.Second),
		exchange: "Binance",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Option func(s *PriceSource)

func WithBaseURL(url string) Option {
	return func(s *PriceSource) {
		s.cli.SetBaseURL(url)
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(s *PriceSource) {
		s.cli.SetTimeout(timeout)
	}
}

func (s *PriceSource) Name() string {
	return "Cryptocompare"
}

type fullPriceResp struct {
	Raw map[string]map[string]struct {
		Price           float64 `json:"PRICE"`
		ChangePct24Hour float64 `json:"CHANGEPCT24HOUR"`
	} `json:"RAW"`
	Response string `json:"Response"`
	Message  string `json:"Message"`
}

func (s *PriceSource) Fetch(ctx context.Context, symbol string) (exchange.PriceQuote, error) {
	base := exchange.NormalizeSymbol(symbol)

	var result fullPriceResp
	resp, err := s.cli.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fsyms": base,
			"tsyms": "USDT",
			"e":     s.exchange,
		}).
		SetResult(&result).
		Get("/pricemultifull")
	if err != nil {
		return exchange.PriceQuote{}, fmt.Errorf("cryptocompare request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return exchange.PriceQuote{}, fmt.Errorf("cryptocompare rate limit exceeded")
	}
	if resp.StatusCode() != http.StatusOK {
		return exchange.PriceQuote{}, fmt.Errorf("cryptocompare status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.Response == "Error" {
		return exchange.PriceQuote{}, fmt.Errorf("cryptocompare error: %s", result.Message)
	}

	raw, ok := result.Raw[base]["USDT"]
	if !ok {
		return exchange.PriceQuote{}, fmt.Errorf("%w: %s", exchange.ErrInvalidSymbol, symbol)
	}

	price := decimal.NewFromFloat(raw.Price)
	if !price.IsPositive() {
		return exchange.PriceQuote{}, fmt.Errorf("%w: %s has no traded price", exchange.ErrInvalidSymbol, symbol)
	}

	return exchange.PriceQuote{
		Symbol:     base,
		Price:      price,
		ChangePct:  decimal.NewFromFloat(raw.ChangePct24Hour),
		HasChange:  true,
		ObservedAt: time.Now(),
	}, nil
}
