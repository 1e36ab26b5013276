package repo

import (
	"context"

	"github.com/cryptowatch/sentinel/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReportRepo interface {
	Upsert(ctx context.Context, cfg entity.ReportConfig) error
	FindByUser(ctx context.Context, userId int64) (entity.ReportConfig, error)
	ListEnabled(ctx context.Context) ([]entity.ReportConfig, error)
}

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepo {
	return &reportRepo{
		db: db,
	}
}

func (r *reportRepo) Upsert(ctx context.Context, cfg entity.ReportConfig) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&cfg).Error
}

func (r *reportRepo) FindByUser(ctx context.Context, userId int64) (entity.ReportConfig, error) {
	var cfg entity.ReportConfig
	err := r.db.WithContext(ctx).Where("user_id = ?", userId).First(&cfg).Error
	if err != nil {
		return entity.ReportConfig{}, err
	}
	return cfg, nil
}

func (r *reportRepo) ListEnabled(ctx context.Context) ([]entity.ReportConfig, error) {
	var cfgs []entity.ReportConfig
	err := r.db.WithContext(ctx).Where("enabled = ?", true).Find(&cfgs).Error
	if err != nil {
		return nil, err
	}
	return cfgs, nil
}
