package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cryptowatch/sentinel/internal/entity"
	"github.com/cryptowatch/sentinel/internal/repo"
	"github.com/cryptowatch/sentinel/internal/schedule"
	"github.com/cryptowatch/sentinel/internal/service/market"
	"github.com/cryptowatch/sentinel/internal/service/notification"
)

// Reporter 定时价格汇报
// 每轮扫描启用汇报的用户, 到期的用户收到一份其关注币种的价格摘要
// 取价走 Gateway, 与监控引擎共享缓存和合并拉取
type Reporter struct {
	reportRepo repo.ReportRepo
	gateway    market.Gateway
	channels   []notification.Channel

	mu       sync.Mutex
	lastSent map[int64]time.Time

	now func() time.Time
}

func NewReporter(reportRepo repo.ReportRepo, gateway market.Gateway, channels ...notification.Channel) *Reporter {
	return &Reporter{
		reportRepo: reportRepo,
		gateway:    gateway,
		channels:   channels,
		lastSent:   make(map[int64]time.Time),
		now:        time.Now,
	}
}

var _ schedule.Task = (*Reporter)(nil)

func (r *Reporter) Name() string {
	return "price reporter"
}

func (r *Reporter) Run(ctx context.Context) error {
	cfgs, err := r.reportRepo.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("list enabled report configs: %w", err)
	}

	for _, cfg := range cfgs {
		if !r.due(cfg) {
			continue
		}
		r.sendReport(ctx, cfg)
	}
	return nil
}

func (r *Reporter) due(cfg entity.ReportConfig) bool {
	interval := time.Duration(cfg.IntervalMinutes) * time.Minute
	if interval <= 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	last, ok := r.lastSent[cfg.UserId]
	return !ok || r.now().Sub(last) >= interval
}

func (r *Reporter) sendReport(ctx context.Context, cfg entity.ReportConfig) {
	symbols := cfg.SymbolList()
	quotes, fetchErrs := r.gateway.Refresh(ctx, symbols)

	var b strings.Builder
	b.WriteString("📊 *定时价格汇报*\n\n")
	for _, symbol := range symbols {
		quote, ok := quotes[symbol]
		if !ok {
			b.WriteString(fmt.Sprintf("%s: 暂时无法获取\n", symbol))
			slog.Warn("report price unavailable", "symbol", symbol, "error", fetchErrs[symbol])
			continue
		}
		if quote.HasChange {
			sign := ""
			if !quote.ChangePct.IsNegative() {
				sign = "+"
			}
			b.WriteString(fmt.Sprintf("%s: `$%s` (%s%s%%)\n",
				symbol, quote.Price.StringFixed(2), sign, quote.ChangePct.StringFixed(2)))
		} else {
			b.WriteString(fmt.Sprintf("%s: `$%s`\n", symbol, quote.Price.StringFixed(2)))
		}
	}

	delivered := false
	for _, ch := range r.channels {
		if err := ch.Send(ctx, cfg.UserId, b.String()); err != nil {
			slog.Error("price report delivery failed",
				"channel", ch.Name(), "user_id", cfg.UserId, "error", err)
			continue
		}
		delivered = true
	}

	if delivered {
		r.mu.Lock()
		r.lastSent[cfg.UserId] = r.now()
		r.mu.Unlock()
		slog.Info("price report sent", "user_id", cfg.UserId, "symbols", symbols)
	}
}
