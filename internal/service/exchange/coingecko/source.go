package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cryptowatch/sentinel/internal/service/exchange"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// 常见币种符号到 CoinGecko coin id 的映射, 未收录的符号按小写全名直接查询
var symbolToId = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"USDT":  "tether",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"AVAX":  "avalanche-2",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"LINK":  "chainlink",
	"UNI":   "uniswap",
	"LTC":   "litecoin",
	"ATOM":  "cosmos",
	"ETC":   "ethereum-classic",
	"XLM":   "stellar",
	"NEAR":  "near",
	"ALGO":  "algorand",
	"BCH":   "bitcoin-cash",
	"FIL":   "filecoin",
	"APT":   "aptos",
	"ARB":   "arbitrum",
	"OP":    "optimism",
	"IMX":   "immutable-x",
	"STX":   "blockstack",
	"HBAR":  "hedera-hashgraph",
	"VET":   "vechain",
	"GRT":   "the-graph",
	"SAND":  "the-sandbox",
	"MANA":  "decentraland",
	"AAVE":  "aave",
	"RUNE":  "thorchain",
}

var _ exchange.PriceSource = (*PriceSource)(nil)

// PriceSource CoinGecko 行情数据源, 免费且无地理限制, 作为末级备用源
type PriceSource struct {
	cli *resty.Client
}

func NewPriceSource(opts ...Option) *PriceSource {
	s := &PriceSource{
		cli: resty.New().SetBaseURL(defaultBaseURL).SetTimeout(30 * time.Second),
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
	return "CoinGecko"
}

// coinId 把规范化符号转换为 CoinGecko coin id
func coinId(symbol string) string {
	base := exchange.NormalizeSymbol(symbol)
	if id, ok := symbolToId[base]; ok {
		return id
	}
	return strings.ToLower(base)
}

type simplePrice struct {
	USD       float64  `json:"usd"`
	Change24h *float64 `json:"usd_24h_change"`
}

func (s *PriceSource) Fetch(ctx context.Context, symbol string) (exchange.PriceQuote, error) {
	id := coinId(symbol)

	var result map[string]simplePrice
	resp, err := s.cli.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":                 id,
			"vs_currencies":       "usd",
			"include_24hr_change": "true",
		}).
		SetResult(&result).
		Get("/simple/price")
	if err != nil {
		return exchange.PriceQuote{}, fmt.Errorf("coingecko request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return exchange.PriceQuote{}, fmt.Errorf("coingecko rate limit exceeded")
	}
	if resp.StatusCode() != http.StatusOK {
		return exchange.PriceQuote{}, fmt.Errorf("coingecko status %d: %s", resp.StatusCode(), resp.String())
	}

	raw, ok := result[id]
	if !ok {
		return exchange.PriceQuote{}, fmt.Errorf("%w: %s", exchange.ErrInvalidSymbol, symbol)
	}

	price := decimal.NewFromFloat(raw.USD)
	if !price.IsPositive() {
		return exchange.PriceQuote{}, fmt.Errorf("%w: %s has no traded price", exchange.ErrInvalidSymbol, symbol)
	}

	quote := exchange.PriceQuote{
		Symbol:     exchange.NormalizeSymbol(symbol),
		Price:      price,
		ObservedAt: time.Now(),
	}
	if raw.Change24h != nil {
		quote.ChangePct = decimal.NewFromFloat(*raw.Change24h)
		quote.HasChange = true
	}
	return quote, nil
}
