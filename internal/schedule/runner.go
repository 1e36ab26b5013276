package schedule

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type scheduledTask struct {
	task     Task
	interval time.Duration
	// budget 单轮软预算, 超过后该轮的 ctx 被取消, 卡住的一轮不会一直占住调度位
	budget  time.Duration
	running atomic.Bool
}

// Runner 按固定节奏驱动任务
// 下一轮从固定周期排定而不是从上一轮结束时间排定, 负载高时不会产生节奏漂移;
// 超时未完成的一轮继续在后台跑完, 与它重叠的那一轮跳过, 避免同一任务并发执行
type Runner struct {
	mu    sync.Mutex
	tasks []*scheduledTask
}

func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) Schedule(task Task, interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, &scheduledTask{task: task, interval: interval, budget: 3 * interval})
}

// Start 阻塞运行直到 ctx 取消
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	tasks := make([]*scheduledTask, len(r.tasks))
	copy(tasks, r.tasks)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, st := range tasks {
		wg.Add(1)
		go func(st *scheduledTask) {
			defer wg.Done()
			r.loop(ctx, st)
		}(st)
	}
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, st *scheduledTask) {
	slog.Info("scheduled task started", "task", st.task.Name(), "interval", st.interval)

	ticker := time.NewTicker(st.interval)
	defer ticker.Stop()

	r.runOnce(ctx, st)
	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduled task stopped", "task", st.task.Name())
			return
		case <-ticker.C:
			r.runOnce(ctx, st)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, st *scheduledTask) {
	if !st.running.CompareAndSwap(false, true) {
		slog.Warn("previous run still in progress, skipping this cycle", "task", st.task.Name())
		return
	}
	go func() {
		runCtx, cancel := context.WithTimeout(ctx, st.budget)
		defer cancel()
		defer st.running.Store(false)
		start := time.Now()
		if err := st.task.Run(runCtx); err != nil {
			// 单轮失败不是进程级失败, 记日志等下一轮
			slog.Error("scheduled task run failed", "task", st.task.Name(), "error", err)
		}
		if elapsed := time.Since(start); elapsed > st.interval {
			slog.Warn("task run exceeded its interval", "task", st.task.Name(), "elapsed", elapsed)
		}
	}()
}
