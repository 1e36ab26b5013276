package repo

import (
	"github.com/cryptowatch/sentinel/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.MonitorTask{}, &entity.AlertEvent{}, &entity.ReportConfig{})
}
