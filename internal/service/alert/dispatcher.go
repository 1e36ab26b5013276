package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cryptowatch/sentinel/internal/entity"
	"github.com/cryptowatch/sentinel/internal/repo"
	"github.com/cryptowatch/sentinel/internal/service/monitor"
	"github.com/cryptowatch/sentinel/internal/service/notification"
	"github.com/shopspring/decimal"
)

var _ monitor.Dispatcher = (*Dispatcher)(nil)

type Config struct {
	// MaxDailyAlerts 单个用户每日预警数量上限, <= 0 表示不限制
	MaxDailyAlerts int `mapstructure:"max_daily_alerts"`
}

func DefaultConfig() Config {
	return Config{MaxDailyAlerts: 100}
}

// Dispatcher 预警分发器
// 先落库再发通知: 历史记录是事实来源, 所有渠道都失败预警记录也必须存在
type Dispatcher struct {
	alertRepo repo.AlertRepo
	taskRepo  repo.TaskRepo
	channels  []notification.Channel
	cfg       Config

	now func() time.Time
}

func NewDispatcher(alertRepo repo.AlertRepo, taskRepo repo.TaskRepo, cfg Config, channels ...notification.Channel) *Dispatcher {
	return &Dispatcher{
		alertRepo: alertRepo,
		taskRepo:  taskRepo,
		channels:  channels,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Dispatch 对一次触发决定落一条预警记录并向所有渠道分发
// task 为空表示系统级预警, 不关联任务也不写冷却时间
func (d *Dispatcher) Dispatch(ctx context.Context, task *entity.MonitorTask, symbol, message string, triggerPrice decimal.Decimal) (entity.AlertEvent, error) {
	triggeredAt := d.now()

	// 当日预警限额: 限额统计失败不阻塞分发, 宁可多发也不漏报
	if task != nil && d.cfg.MaxDailyAlerts > 0 {
		dayStart := time.Date(triggeredAt.Year(), triggeredAt.Month(), triggeredAt.Day(),
			0, 0, 0, 0, triggeredAt.Location())
		count, err := d.alertRepo.CountSince(ctx, task.UserId, dayStart)
		if err != nil {
			slog.Error("failed to count daily alerts, limit check skipped",
				"user_id", task.UserId, "error", err)
		} else if count >= int64(d.cfg.MaxDailyAlerts) {
			return entity.AlertEvent{}, fmt.Errorf("%w: user %d already has %d alerts today",
				monitor.ErrDailyLimitReached, task.UserId, count)
		}
	}

	event := entity.AlertEvent{
		Symbol:       symbol,
		TriggerPrice: triggerPrice.String(),
		Message:      message,
		TriggeredAt:  triggeredAt,
		SentSuccess:  false,
	}
	var recipient int64
	if task != nil {
		taskId := task.TaskId
		event.TaskId = &taskId
		event.UserId = task.UserId
		recipient = task.UserId
	}

	alertId, err := d.alertRepo.Create(ctx, event)
	if err != nil {
		return entity.AlertEvent{}, fmt.Errorf("persist alert: %w", err)
	}
	event.AlertId = alertId

	// 渠道互相隔离: 逐个发送, 单个渠道失败只记日志, 不影响其余渠道
	delivered := 0
	for _, ch := range d.channels {
		if err := ch.Send(ctx, recipient, message); err != nil {
			slog.Error("notification channel failed",
				"channel", ch.Name(), "alert_id", alertId, "symbol", symbol, "error", err)
			continue
		}
		delivered++
	}

	if delivered > 0 {
		if err := d.alertRepo.MarkSent(ctx, alertId, true); err != nil {
			slog.Error("failed to mark alert sent", "alert_id", alertId, "error", err)
		} else {
			event.SentSuccess = true
		}
	}

	// 预警先写, 冷却时间后写: 两次写之间崩溃重启后最多多触发一次
	if task != nil {
		if err := d.taskRepo.UpdateLastTriggered(ctx, task.TaskId, triggeredAt); err != nil {
			slog.Error("failed to update last triggered time",
				"task_id", task.TaskId, "error", err)
		}
	}

	slog.Info("alert dispatched",
		"alert_id", alertId, "symbol", symbol,
		"delivered", delivered, "channels", len(d.channels))
	return event, nil
}
