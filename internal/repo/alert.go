package repo

import (
	"context"
	"time"

	"github.com/cryptowatch/sentinel/internal/entity"
	"gorm.io/gorm"
)

type AlertRepo interface {
	Create(ctx context.Context, alert entity.AlertEvent) (int64, error)
	MarkSent(ctx context.Context, alertId int64, success bool) error
	// CountSince 统计某用户自某时刻以来的预警数量, 用于当日预警限额
	CountSince(ctx context.Context, userId int64, since time.Time) (int64, error)
}

type alertRepo struct {
	db *gorm.DB
}

func NewAlertRepo(db *gorm.DB) AlertRepo {
	return &alertRepo{
		db: db,
	}
}

func (r *alertRepo) Create(ctx context.Context, alert entity.AlertEvent) (int64, error) {
	err := r.db.WithContext(ctx).Create(&alert).Error
	if err != nil {
		return 0, err
	}
	return alert.AlertId, nil
}

// MarkSent 幂等, 重复确认同一结果不会改变记录语义
func (r *alertRepo) MarkSent(ctx context.Context, alertId int64, success bool) error {
	return r.db.WithContext(ctx).Model(&entity.AlertEvent{}).
		Where("alert_id = ?", alertId).
		Update("sent_success", success).Error
}

func (r *alertRepo) CountSince(ctx context.Context, userId int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.AlertEvent{}).
		Where("user_id = ? AND triggered_at >= ?", userId, since).
		Count(&count).Error
	return count, err
}
