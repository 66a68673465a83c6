package storage

import (
	"dispatch-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB, log *zap.Logger) {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Link{},
		&models.Target{},
		&models.AccessLog{},
		&models.Alert{},
		&models.LinkTemplate{},
	); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}
	log.Info("database migration complete")
}
