package repo

import (
	"context"
	"time"

	"github.com/cryptowatch/sentinel/internal/entity"
	"gorm.io/gorm"
)

type TaskRepo interface {
	Create(ctx context.Context, task entity.MonitorTask) (int64, error)
	FindById(ctx context.Context, taskId int64) (entity.MonitorTask, error)
	FindByUser(ctx context.Context, userId int64) ([]entity.MonitorTask, error)
	ListActive(ctx context.Context) ([]entity.MonitorTask, error)
	UpdateStatus(ctx context.Context, taskId int64, status string) error
	UpdateRuleConfig(ctx context.Context, taskId int64, ruleType, ruleConfig string) error
	UpdateLastTriggered(ctx context.Context, taskId int64, triggeredAt time.Time) error
}

type taskRepo struct {
	db *gorm.DB
}

func NewTaskRepo(db *gorm.DB) TaskRepo {
	return &taskRepo{
		db: db,
	}
}

func (r *taskRepo) Create(ctx context.Context, task entity.MonitorTask) (int64, error) {
	err := r.db.WithContext(ctx).Create(&task).Error
	if err != nil {
		return 0, err
	}
	return task.TaskId, nil
}

func (r *taskRepo) FindById(ctx context.Context, taskId int64) (entity.MonitorTask, error) {
	var task entity.MonitorTask
	err := r.db.WithContext(ctx).Where("task_id = ?", taskId).First(&task).Error
	if err != nil {
		return entity.MonitorTask{}, err
	}
	return task, nil
}

func (r *taskRepo) FindByUser(ctx context.Context, userId int64) ([]entity.MonitorTask, error) {
	var tasks []entity.MonitorTask
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userId, entity.TaskStatusDeleted).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepo) ListActive(ctx context.Context) ([]entity.MonitorTask, error) {
	var tasks []entity.MonitorTask
	err := r.db.WithContext(ctx).Where("status = ?", entity.TaskStatusActive).Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepo) UpdateStatus(ctx context.Context, taskId int64, status string) error {
	return r.db.WithContext(ctx).Model(&entity.MonitorTask{}).
		Where("task_id = ?", taskId).
		Update("status", status).Error
}

func (r *taskRepo) UpdateRuleConfig(ctx context.Context, taskId int64, ruleType, ruleConfig string) error {
	return r.db.WithContext(ctx).Model(&entity.MonitorTask{}).
		Where("task_id = ?", taskId).
		Updates(map[string]any{
			"rule_type":   ruleType,
			"rule_config": ruleConfig,
		}).Error
}

func (r *taskRepo) UpdateLastTriggered(ctx context.Context, taskId int64, triggeredAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&entity.MonitorTask{}).
		Where("task_id = ?", taskId).
		Update("last_triggered_at", triggeredAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
