package market

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cryptowatch/sentinel/internal/service/exchange"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource 可编程的数据源, 记录上游调用次数
type stubSource struct {
	mu       sync.Mutex
	calls    atomic.Int64
	delay    time.Duration
	failures int // 前 N 次调用返回错误
	price    decimal.Decimal
}

func (s *stubSource) Name() string {
	return "stub"
}

func (s *stubSource) Fetch(ctx context.Context, symbol string) (exchange.PriceQuote, error) {
	n := s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return exchange.PriceQuote{}, ctx.Err()
		}
	}
	s.mu.Lock()
	failures := s.failures
	price := s.price
	s.mu.Unlock()
	if int(n) <= failures {
		return exchange.PriceQuote{}, errors.New("upstream unavailable")
	}
	return exchange.PriceQuote{
		Symbol:     symbol,
		Price:      price,
		ObservedAt: time.Now(),
	}, nil
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.FetchTimeout = time.Second
	return cfg
}

func TestCachedGateway_Coalescing(t *testing.T) {
	source := &stubSource{delay: 30 * time.Millisecond, price: decimal.NewFromInt(50000)}
	gateway := NewCachedGateway(source, fastConfig())

	const n = 50
	var wg sync.WaitGroup
	quotes := make([]exchange.PriceQuote, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			quote, err := gateway.GetPrice(context.Background(), "BTC")
			assert.NoError(t, err)
			quotes[i] = quote
		}(i)
	}
	wg.Wait()

	// N 个并发请求合并为一次上游调用
	assert.Equal(t, int64(1), source.calls.Load())
	for _, quote := range quotes {
		assert.True(t, quote.Price.Equal(decimal.NewFromInt(50000)))
		assert.Equal(t, quotes[0].ObservedAt, quote.ObservedAt)
	}
}

func TestCachedGateway_CacheHitWithinCeiling(t *testing.T) {
	source := &stubSource{price: decimal.NewFromInt(100)}
	gateway := NewCachedGateway(source, fastConfig())

	_, err := gateway.GetPrice(context.Background(), "ETH")
	require.NoError(t, err)
	_, err = gateway.GetPrice(context.Background(), "ETH")
	require.NoError(t, err)

	assert.Equal(t, int64(1), source.calls.Load())
}

func TestCachedGateway_StalenessForcesRefetch(t *testing.T) {
	source := &stubSource{price: decimal.NewFromInt(100)}
	cfg := fastConfig()
	gateway := NewCachedGateway(source, cfg)

	_, err := gateway.GetPrice(context.Background(), "ETH")
	require.NoError(t, err)

	// 把时钟拨过新鲜度上限, 缓存不可直接命中
	gateway.now = func() time.Time {
		return time.Now().Add(cfg.StalenessCeiling + time.Second)
	}
	_, err = gateway.GetPrice(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, int64(2), source.calls.Load())
}

func TestCachedGateway_RetryWithBackoff(t *testing.T) {
	source := &stubSource{failures: 2, price: decimal.NewFromInt(100)}
	gateway := NewCachedGateway(source, fastConfig())

	quote, err := gateway.GetPrice(context.Background(), "BTC")
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(3), source.calls.Load())
}

func TestCachedGateway_GraceWindowServesStale(t *testing.T) {
	source := &stubSource{price: decimal.NewFromInt(100)}
	cfg := fastConfig()
	cfg.MaxAttempts = 2
	gateway := NewCachedGateway(source, cfg)

	_, err := gateway.GetPrice(context.Background(), "BTC")
	require.NoError(t, err)

	// 上游开始持续失败, 缓存超过新鲜度上限但仍在宽限窗口内
	source.mu.Lock()
	source.failures = 1 << 30
	source.mu.Unlock()
	gateway.now = func() time.Time {
		return time.Now().Add(cfg.StalenessCeiling + time.Second)
	}

	quote, err := gateway.GetPrice(context.Background(), "BTC")
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.NewFromInt(100)))
}

func TestCachedGateway_DataUnavailable(t *testing.T) {
	// 无缓存且连续失败, 只能对该币种报数据不可用
	source := &stubSource{failures: 1 << 30}
	cfg := fastConfig()
	cfg.MaxAttempts = 3
	gateway := NewCachedGateway(source, cfg)

	_, err := gateway.GetPrice(context.Background(), "ETH")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.Equal(t, int64(3), source.calls.Load())
}

func TestCachedGateway_RefreshIsolatesFailures(t *testing.T) {
	source := &stubSource{price: decimal.NewFromInt(100)}
	cfg := fastConfig()
	cfg.MaxAttempts = 1
	gateway := NewCachedGateway(source, cfg)

	// 先给 BTC 建好缓存, 再让上游全挂
	_, err := gateway.GetPrice(context.Background(), "BTC")
	require.NoError(t, err)
	source.mu.Lock()
	source.failures = 1 << 30
	source.mu.Unlock()

	quotes, errs := gateway.Refresh(context.Background(), []string{"BTC", "ETH"})

	// BTC 命中缓存不受影响, ETH 单独失败
	assert.Contains(t, quotes, "BTC")
	assert.NotContains(t, quotes, "ETH")
	require.Contains(t, errs, "ETH")
	assert.ErrorIs(t, errs["ETH"], ErrDataUnavailable)
}

func TestCachedGateway_LastWriterWinsByObservedAt(t *testing.T) {
	gateway := NewCachedGateway(&stubSource{}, fastConfig())

	newer := exchange.PriceQuote{
		Symbol:     "BTC",
		Price:      decimal.NewFromInt(200),
		ObservedAt: time.Now(),
	}
	older := exchange.PriceQuote{
		Symbol:     "BTC",
		Price:      decimal.NewFromInt(100),
		ObservedAt: newer.ObservedAt.Add(-time.Minute),
	}

	gateway.store(newer)
	// 迟到但采集时间更早的结果不能覆盖更新的缓存
	gateway.store(older)

	cached := gateway.mustCached("BTC")
	assert.True(t, cached.Price.Equal(newer.Price))
	assert.Equal(t, newer.ObservedAt, cached.ObservedAt)
}
