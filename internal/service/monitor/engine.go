package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cryptowatch/sentinel/internal/entity"
	"github.com/cryptowatch/sentinel/internal/repo"
	"github.com/cryptowatch/sentinel/internal/schedule"
	"github.com/cryptowatch/sentinel/internal/service/exchange"
	"github.com/cryptowatch/sentinel/internal/service/market"
	"github.com/samber/lo"
)

type EngineConfig struct {
	// Workers 单轮任务评估的最大并发
	Workers int `mapstructure:"workers"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{Workers: 16}
}

// Engine 监控引擎, 每轮: 拉活跃任务 -> 按币种合并取价 -> 评估规则 -> 冷却门控 -> 分发预警
type Engine struct {
	taskRepo   repo.TaskRepo
	gateway    market.Gateway
	dispatcher Dispatcher
	cfg        EngineConfig

	mu sync.Mutex
	// 已知坏配置的跳过缓存, 记录判定时的 UpdatedAt, 配置被编辑后重新评估
	badConfigs map[int64]time.Time

	now func() time.Time
}

func NewEngine(taskRepo repo.TaskRepo, gateway market.Gateway, dispatcher Dispatcher, cfg EngineConfig) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Engine{
		taskRepo:   taskRepo,
		gateway:    gateway,
		dispatcher: dispatcher,
		cfg:        cfg,
		badConfigs: make(map[int64]time.Time),
		now:        time.Now,
	}
}

var _ schedule.Task = (*Engine)(nil)

func (e *Engine) Name() string {
	return "price monitor engine"
}

// Run 执行一轮检查
// 任务列表读取失败视为本轮致命错误, 整轮放弃, 下一轮重新开始
func (e *Engine) Run(ctx context.Context) error {
	tasks, err := e.taskRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active tasks: %w", err)
	}
	e.pruneBadConfigs(tasks)

	tasks = lo.Reject(tasks, func(task entity.MonitorTask, _ int) bool {
		return e.knownBadConfig(task)
	})
	if len(tasks) == 0 {
		return nil
	}

	// 按币种合并取价: 同一币种 50 个任务也只打一次上游
	symbols := lo.Uniq(lo.Map(tasks, func(task entity.MonitorTask, _ int) string {
		return exchange.NormalizeSymbol(task.Symbol)
	}))
	quotes, fetchErrs := e.gateway.Refresh(ctx, symbols)

	for symbol, fetchErr := range fetchErrs {
		// 该币种本轮跳过, 其他币种不受影响
		slog.Warn("symbol unavailable this cycle", "symbol", symbol, "error", fetchErr)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.cfg.Workers)
	for _, task := range tasks {
		quote, ok := quotes[exchange.NormalizeSymbol(task.Symbol)]
		if !ok {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(task entity.MonitorTask, quote exchange.PriceQuote) {
			defer wg.Done()
			defer func() { <-sem }()
			e.checkTask(ctx, task, quote)
		}(task, quote)
	}
	wg.Wait()

	return nil
}

// checkTask 检查单个任务, 同一轮内同一币种的所有任务看到同一个快照
func (e *Engine) checkTask(ctx context.Context, task entity.MonitorTask, snapshot exchange.PriceQuote) {
	rule, err := ParseRule(task.RuleType, task.RuleConfig)
	if err != nil {
		if errors.Is(err, ErrInvalidConfig) {
			e.markBadConfig(task, err)
			return
		}
		slog.Error("failed to parse rule", "task_id", task.TaskId, "error", err)
		return
	}

	decision := Evaluate(rule, snapshot)
	if !decision.Triggered {
		return
	}

	if ShouldSuppress(task, e.now()) {
		return
	}

	if _, err := e.dispatcher.Dispatch(ctx, &task, snapshot.Symbol, decision.Message, decision.TriggerPrice); err != nil {
		if errors.Is(err, ErrDailyLimitReached) {
			slog.Warn("alert suppressed by daily limit",
				"task_id", task.TaskId, "user_id", task.UserId)
			return
		}
		slog.Error("failed to dispatch alert",
			"task_id", task.TaskId, "symbol", snapshot.Symbol, "error", err)
	}
}

// markBadConfig 记录坏配置, 同一个任务同一版本配置只告警一次, 避免刷日志
func (e *Engine) markBadConfig(task entity.MonitorTask, cause error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seen, ok := e.badConfigs[task.TaskId]; ok && seen.Equal(task.UpdatedAt) {
		return
	}
	e.badConfigs[task.TaskId] = task.UpdatedAt
	slog.Error("permanent invalid rule config, task skipped until edited",
		"task_id", task.TaskId, "rule_type", task.RuleType, "error", cause)
}

// pruneBadConfigs 清理已不在活跃列表里的坏配置标记, 任务被暂停或删除后不再占用内存
func (e *Engine) pruneBadConfigs(tasks []entity.MonitorTask) {
	e.mu.Lock()
	defer e.mu.Unlock()
	active := make(map[int64]struct{}, len(tasks))
	for _, task := range tasks {
		active[task.TaskId] = struct{}{}
	}
	for taskId := range e.badConfigs {
		if _, ok := active[taskId]; !ok {
			delete(e.badConfigs, taskId)
		}
	}
}

func (e *Engine) knownBadConfig(task entity.MonitorTask) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	seen, ok := e.badConfigs[task.TaskId]
	return ok && seen.Equal(task.UpdatedAt)
}
