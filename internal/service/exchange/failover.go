package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
)

var _ PriceSource = (*FailoverSource)(nil)

// FailoverSource 多数据源故障转移
// 从上一次成功的源开始轮询, 某个源成功后后续请求优先使用它
type FailoverSource struct {
	sources []PriceSource
	current atomic.Int32
}

func NewFailoverSource(sources ...PriceSource) *FailoverSource {
	if len(sources) == 0 {
		panic("failover source requires at least one price source")
	}
	return &FailoverSource{
		sources: sources,
	}
}

func (f *FailoverSource) Name() string {
	return f.sources[f.currentIndex()].Name()
}

func (f *FailoverSource) currentIndex() int {
	return int(f.current.Load()) % len(f.sources)
}

func (f *FailoverSource) Fetch(ctx context.Context, symbol string) (PriceQuote, error) {
	start := f.currentIndex()
	errs := make([]string, 0, len(f.sources))

	for attempt := 0; attempt < len(f.sources); attempt++ {
		idx := (start + attempt) % len(f.sources)
		src := f.sources[idx]

		quote, err := src.Fetch(ctx, symbol)
		if err == nil {
			if idx != start {
				slog.Info("switched primary price source", "source", src.Name())
				f.current.Store(int32(idx))
			}
			return quote, nil
		}

		errs = append(errs, fmt.Sprintf("%s: %s", src.Name(), err))
		slog.Warn("price source failed", "source", src.Name(), "symbol", symbol, "error", err)

		if ctx.Err() != nil {
			break
		}
	}

	return PriceQuote{}, fmt.Errorf("all price sources failed for %s: %s", symbol, strings.Join(errs, "; "))
}
