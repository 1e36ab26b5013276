package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cryptowatch/sentinel/internal/service/exchange"
	"github.com/jpillora/backoff"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrDataUnavailable 数据源完全不可用且缓存过期, 仅影响该币种, 下一轮重试
var ErrDataUnavailable = errors.New("market data unavailable")

// Gateway 行情网关, 对外提供带缓存的并发安全读
type Gateway interface {
	// GetPrice 返回不超过新鲜度上限的快照, 必要时重新拉取
	GetPrice(ctx context.Context, symbol string) (exchange.PriceQuote, error)
	// Refresh 并发刷新一批币种, 返回每个币种的快照或错误
	Refresh(ctx context.Context, symbols []string) (map[string]exchange.PriceQuote, map[string]error)
}

type Config struct {
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	InitialDelay  time.Duration `mapstructure:"initial_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
	// StalenessCeiling 内的缓存直接命中, 超过则强制刷新
	StalenessCeiling time.Duration `mapstructure:"staleness_ceiling"`
	// GraceWindow 刷新失败时允许降级返回的最大缓存年龄
	GraceWindow time.Duration `mapstructure:"grace_window"`
	// RefreshConcurrency 单轮批量刷新的最大并发
	RefreshConcurrency int `mapstructure:"refresh_concurrency"`
}

func DefaultConfig() Config {
	return Config{
		FetchTimeout:       10 * time.Second,
		MaxAttempts:        3,
		InitialDelay:       time.Second,
		BackoffFactor:      2.0,
		StalenessCeiling:   3 * time.Second,
		GraceWindow:        time.Minute,
		RefreshConcurrency: 8,
	}
}

var _ Gateway = (*CachedGateway)(nil)

// CachedGateway 缓存网关
// 同一币种的并发刷新合并为一次上游调用, N 个任务共享一个币种每个刷新周期最多打一次上游
type CachedGateway struct {
	source exchange.PriceSource
	cfg    Config

	mu    sync.RWMutex
	cache map[string]exchange.PriceQuote

	group singleflight.Group

	now func() time.Time
}

func NewCachedGateway(source exchange.PriceSource, cfg Config) *CachedGateway {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.RefreshConcurrency <= 0 {
		cfg.RefreshConcurrency = 1
	}
	return &CachedGateway{
		source: source,
		cfg:    cfg,
		cache:  make(map[string]exchange.PriceQuote),
		now:    time.Now,
	}
}

func (g *CachedGateway) GetPrice(ctx context.Context, symbol string) (exchange.PriceQuote, error) {
	sym := exchange.NormalizeSymbol(symbol)

	if quote, ok := g.cached(sym, g.cfg.StalenessCeiling); ok {
		return quote, nil
	}

	// 合并同一币种的并发刷新, 迟到的调用方挂在同一个进行中的结果上
	v, err, _ := g.group.Do(sym, func() (any, error) {
		return g.refresh(ctx, sym)
	})
	if err != nil {
		return exchange.PriceQuote{}, err
	}
	return v.(exchange.PriceQuote), nil
}

func (g *CachedGateway) Refresh(ctx context.Context, symbols []string) (map[string]exchange.PriceQuote, map[string]error) {
	var (
		mu     sync.Mutex
		quotes = make(map[string]exchange.PriceQuote, len(symbols))
		errs   = make(map[string]error)
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.RefreshConcurrency)
	for _, symbol := range symbols {
		symbol := symbol
		eg.Go(func() error {
			quote, err := g.GetPrice(ctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[exchange.NormalizeSymbol(symbol)] = err
			} else {
				quotes[quote.Symbol] = quote
			}
			// 单个币种失败不影响其他币种
			return nil
		})
	}
	_ = eg.Wait()

	return quotes, errs
}

// refresh 带退避重试地拉取一次, 全部失败时在宽限窗口内降级返回旧缓存
func (g *CachedGateway) refresh(ctx context.Context, symbol string) (exchange.PriceQuote, error) {
	// 拉取不随单个调用方取消而中断, 合并组里的其他调用方还在等结果
	fetchCtx := context.WithoutCancel(ctx)

	bo := &backoff.Backoff{
		Min:    g.cfg.InitialDelay,
		Max:    g.cfg.InitialDelay * 16,
		Factor: g.cfg.BackoffFactor,
		Jitter: false,
	}

	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(fetchCtx, g.cfg.FetchTimeout)
		quote, err := g.source.Fetch(attemptCtx, symbol)
		cancel()

		if err == nil {
			g.store(quote)
			return g.mustCached(symbol), nil
		}
		lastErr = err
		slog.Warn("price fetch failed",
			"symbol", symbol, "source", g.source.Name(),
			"attempt", attempt, "error", err)

		if attempt < g.cfg.MaxAttempts {
			select {
			case <-time.After(bo.Duration()):
			case <-fetchCtx.Done():
				return exchange.PriceQuote{}, fetchCtx.Err()
			}
		}
	}

	if quote, ok := g.cached(symbol, g.cfg.GraceWindow); ok {
		slog.Warn("serving stale snapshot within grace window",
			"symbol", symbol, "observed_at", quote.ObservedAt)
		return quote, nil
	}

	return exchange.PriceQuote{}, fmt.Errorf("%w: %s: %s", ErrDataUnavailable, symbol, lastErr)
}

func (g *CachedGateway) cached(symbol string, maxAge time.Duration) (exchange.PriceQuote, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	quote, ok := g.cache[symbol]
	if !ok {
		return exchange.PriceQuote{}, false
	}
	if g.now().Sub(quote.ObservedAt) >= maxAge {
		return exchange.PriceQuote{}, false
	}
	return quote, true
}

// store 原子替换整个快照, 按 ObservedAt 取最新者
// 合并拉取迟到返回但采集时间更早的结果不会覆盖更新的缓存
func (g *CachedGateway) store(quote exchange.PriceQuote) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.cache[quote.Symbol]; ok && cur.ObservedAt.After(quote.ObservedAt) {
		return
	}
	g.cache[quote.Symbol] = quote
}

func (g *CachedGateway) mustCached(symbol string) exchange.PriceQuote {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cache[symbol]
}
